package util_test

import (
	"strings"
	"testing"

	"github.com/shpitdev/founder-scout/internal/util"
)

func TestRedactSecrets(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in       string
		mustHide string
	}{
		{`request failed: Authorization: Bearer sk-live-abc123`, "sk-live-abc123"},
		{`config error: api_key=supersecret at startup`, "supersecret"},
		{`config error: DATASET_API_TOKEN=tok-9f8e7d`, "tok-9f8e7d"},
		{`GET https://proxy.test/search?q=jane&token=hunter2 failed`, "hunter2"},
	}
	for _, tc := range cases {
		out := util.RedactSecrets(tc.in)
		if strings.Contains(out, tc.mustHide) {
			t.Fatalf("secret %q survived redaction: %q", tc.mustHide, out)
		}
		if !strings.Contains(out, "redacted") {
			t.Fatalf("expected a redaction marker in %q", out)
		}
	}

	if got := util.RedactSecrets("nothing sensitive here"); got != "nothing sensitive here" {
		t.Fatalf("benign string modified: %q", got)
	}
	if got := util.RedactSecrets(""); got != "" {
		t.Fatalf("empty string modified: %q", got)
	}
}
