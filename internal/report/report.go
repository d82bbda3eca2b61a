// Package report renders and persists per-run outputs: the full run JSON,
// a filtered JSON of qualified founders, and a human-readable text listing.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shpitdev/founder-scout/internal/pipeline"
)

// Run statuses distinguish a normal completed run from an interrupted or
// windowed one.
const (
	RunCompleted = "completed"
	RunPartial   = "partial"
)

type Metadata struct {
	Total       int       `json:"total"`
	Processed   int       `json:"processed"`
	Failed      int       `json:"failed"`
	Errors      int       `json:"errors"`
	SuccessRate float64   `json:"success_rate"`
	Status      string    `json:"status"`
	GeneratedAt time.Time `json:"generated_at"`
}

type RunOutput struct {
	Results  []pipeline.ResultRecord `json:"results"`
	Metadata Metadata                `json:"metadata"`
}

// BuildRunOutput assembles the run output with counts and success rate.
func BuildRunOutput(results []pipeline.ResultRecord, status string) RunOutput {
	md := Metadata{
		Total:       len(results),
		Status:      status,
		GeneratedAt: time.Now().UTC(),
	}
	for _, r := range results {
		switch r.Status {
		case pipeline.StatusProcessed:
			md.Processed++
		case pipeline.StatusFailed:
			md.Failed++
		case pipeline.StatusError:
			md.Errors++
		}
	}
	if md.Total > 0 {
		md.SuccessRate = float64(md.Processed) / float64(md.Total)
	}
	return RunOutput{Results: results, Metadata: md}
}

var batchFileRe = regexp.MustCompile(`^founder_results_batch_(\d+)\.json$`)

// NextBatchNumber scans dir for prior run outputs and returns the next free
// batch number, so reruns never overwrite earlier results.
func NextBatchNumber(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 1
	}
	max := 0
	for _, e := range entries {
		m := batchFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

// WriteRunOutput writes the batch-numbered run JSON and returns its path.
func WriteRunOutput(dir string, batch int, out RunOutput) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("founder_results_batch_%d.json", batch))
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, append(b, '\n'), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// FilterQualified keeps only processed records that carry a confidence rank,
// ordered best-first (rank descending, input order preserved within a rank).
func FilterQualified(results []pipeline.ResultRecord) []pipeline.ResultRecord {
	var out []pipeline.ResultRecord
	for _, r := range results {
		if r.Status == pipeline.StatusProcessed && r.Rank > 0 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rank > out[j].Rank
	})
	return out
}

// WriteQualified writes the filtered founders JSON and its text rendering.
func WriteQualified(dir string, qualified []pipeline.ResultRecord) (jsonPath, textPath string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", err
	}

	jsonPath = filepath.Join(dir, "qualified_founders.json")
	b, err := json.MarshalIndent(qualified, "", "  ")
	if err != nil {
		return "", "", err
	}
	if err := os.WriteFile(jsonPath, append(b, '\n'), 0644); err != nil {
		return "", "", err
	}

	textPath = filepath.Join(dir, "qualified_founders.txt")
	if err := os.WriteFile(textPath, []byte(RenderText(qualified)), 0644); err != nil {
		return "", "", err
	}
	return jsonPath, textPath, nil
}

// RenderText renders the qualified founders as a plain-text report.
func RenderText(qualified []pipeline.ResultRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Qualified founders: %d\n", len(qualified))
	sb.WriteString(strings.Repeat("=", 40) + "\n")
	for _, r := range qualified {
		fmt.Fprintf(&sb, "\n%s (%s)\n", r.FounderName, r.CompanyName)
		fmt.Fprintf(&sb, "  handle:  @%s (%s)\n", r.Handle, r.ProfileURL)
		fmt.Fprintf(&sb, "  role:    %s (rank %d/10)\n", r.Role, r.Rank)
		fmt.Fprintf(&sb, "  dm open: %t\n", r.CanDM)
		if r.ConfidenceReason != "" {
			fmt.Fprintf(&sb, "  why:     %s\n", r.ConfidenceReason)
		}
	}
	return sb.String()
}
