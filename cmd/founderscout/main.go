package main

import (
	"fmt"
	"os"

	"github.com/shpitdev/founder-scout/internal/util"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "founderscout: %s\n", util.RedactSecrets(err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "founderscout",
		Short: "Discover founders' social profiles, DM availability, and founder-likelihood scores",
		Long: `founderscout runs a resumable batch pipeline over a CSV of company founders:
proxied search for each founder's profile, asynchronous snapshot resolution of
profile data, and LLM scoring of founder/executive likelihood. Progress is
checkpointed so an interrupted multi-day job resumes where it stopped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newReportCmd())
	return root
}
