package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/shpitdev/founder-scout/internal/mocksocial"
)

func main() {
	addr := defaultString("MOCK_SOCIAL_ADDR", ":8080")
	pollsBeforeReady := 2

	fs := flag.NewFlagSet("mock-social", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.IntVar(&pollsBeforeReady, "polls-before-ready", pollsBeforeReady, "Snapshot polls that report running before rows are served")
	_ = fs.Parse(os.Args[1:])

	srv := mocksocial.New()
	srv.SetPollsBeforeReady(pollsBeforeReady)

	// Seed a couple of founders so a local run produces output end to end.
	srv.AddSearchResult("Jane", "https://x.com/janedoe", "https://x.com/janedoe/status/123")
	srv.AddProfile("https://x.com/janedoe", "Founder & CEO at Acme. Building boring infrastructure.", "")
	srv.AddSearchResult("Ken", "https://x.com/kenadams", "https://x.com/kenadams?ref=serp")
	srv.AddProfile("https://x.com/kenadams", "Angel investor. Ex-founder.", "verified")

	_, _ = fmt.Fprintf(os.Stdout, "mock-social listening on %s (pollsBeforeReady=%d)\n", addr, pollsBeforeReady)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
