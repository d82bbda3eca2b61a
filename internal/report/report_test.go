package report_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shpitdev/founder-scout/internal/pipeline"
	"github.com/shpitdev/founder-scout/internal/report"
)

func TestBuildRunOutput(t *testing.T) {
	t.Parallel()

	results := []pipeline.ResultRecord{
		{FounderName: "A", Status: pipeline.StatusProcessed},
		{FounderName: "B", Status: pipeline.StatusProcessed},
		{FounderName: "C", Status: pipeline.StatusFailed},
		{FounderName: "D", Status: pipeline.StatusError},
	}

	out := report.BuildRunOutput(results, report.RunCompleted)
	md := out.Metadata
	if md.Total != 4 || md.Processed != 2 || md.Failed != 1 || md.Errors != 1 {
		t.Fatalf("unexpected counts: %#v", md)
	}
	if md.SuccessRate != 0.5 {
		t.Fatalf("expected success rate 0.5, got %v", md.SuccessRate)
	}
	if md.Status != report.RunCompleted || md.GeneratedAt.IsZero() {
		t.Fatalf("unexpected metadata: %#v", md)
	}

	empty := report.BuildRunOutput(nil, report.RunPartial)
	if empty.Metadata.SuccessRate != 0 {
		t.Fatalf("expected zero rate for empty run, got %v", empty.Metadata.SuccessRate)
	}
}

func TestNextBatchNumber(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if got := report.NextBatchNumber(dir); got != 1 {
		t.Fatalf("empty dir: expected 1, got %d", got)
	}

	for _, name := range []string{
		"founder_results_batch_1.json",
		"founder_results_batch_7.json",
		"founder_results_batch_notanumber.json",
		"qualified_founders.json",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if got := report.NextBatchNumber(dir); got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}

	if got := report.NextBatchNumber(filepath.Join(dir, "missing")); got != 1 {
		t.Fatalf("unreadable dir: expected 1, got %d", got)
	}
}

func TestWriteRunOutputRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := report.BuildRunOutput([]pipeline.ResultRecord{
		{FounderName: "Jane Doe", Status: pipeline.StatusProcessed, Handle: "janedoe", Rank: 9},
	}, report.RunCompleted)

	path, err := report.WriteRunOutput(dir, 3, out)
	if err != nil {
		t.Fatalf("WriteRunOutput: %v", err)
	}
	if filepath.Base(path) != "founder_results_batch_3.json" {
		t.Fatalf("unexpected path: %s", path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var got report.RunOutput
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Results) != 1 || got.Results[0].Handle != "janedoe" {
		t.Fatalf("unexpected round trip: %#v", got)
	}
}

func TestFilterQualified(t *testing.T) {
	t.Parallel()

	results := []pipeline.ResultRecord{
		{FounderName: "Low", Status: pipeline.StatusProcessed, Rank: 3},
		{FounderName: "Unranked", Status: pipeline.StatusProcessed, Rank: 0},
		{FounderName: "Failed", Status: pipeline.StatusFailed, Rank: 10},
		{FounderName: "High", Status: pipeline.StatusProcessed, Rank: 9},
		{FounderName: "AlsoHigh", Status: pipeline.StatusProcessed, Rank: 9},
	}

	q := report.FilterQualified(results)
	if len(q) != 3 {
		t.Fatalf("expected 3 qualified, got %d: %#v", len(q), q)
	}
	if q[0].FounderName != "High" || q[1].FounderName != "AlsoHigh" || q[2].FounderName != "Low" {
		t.Fatalf("unexpected order: %v %v %v", q[0].FounderName, q[1].FounderName, q[2].FounderName)
	}
}

func TestRenderText(t *testing.T) {
	t.Parallel()

	text := report.RenderText([]pipeline.ResultRecord{{
		FounderName:      "Jane Doe",
		CompanyName:      "Acme",
		Handle:           "janedoe",
		ProfileURL:       "https://x.com/janedoe",
		Role:             "Founder",
		Rank:             9,
		CanDM:            true,
		ConfidenceReason: "bio states founder",
	}})

	for _, want := range []string{
		"Qualified founders: 1",
		"Jane Doe (Acme)",
		"@janedoe (https://x.com/janedoe)",
		"Founder (rank 9/10)",
		"dm open: true",
		"bio states founder",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}

	if empty := report.RenderText(nil); !strings.Contains(empty, "Qualified founders: 0") {
		t.Fatalf("unexpected empty report: %q", empty)
	}
}
