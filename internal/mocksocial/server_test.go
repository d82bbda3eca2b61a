package mocksocial_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shpitdev/founder-scout/internal/mocksocial"
)

func TestSearchEndpoint(t *testing.T) {
	t.Parallel()

	mock := mocksocial.New()
	mock.AddSearchResult("(Jane)", "https://x.com/janedoe")
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/search?q=" + url.QueryEscape("site:x.com (Jane) (Doe)"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var out struct {
		Organic []struct {
			Link string `json:"link"`
		} `json:"organic"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal %q: %v", body, err)
	}
	if len(out.Organic) != 1 || out.Organic[0].Link != "https://x.com/janedoe" {
		t.Fatalf("unexpected payload: %s", body)
	}

	resp, err = http.Get(srv.URL + "/search?q=" + url.QueryEscape("site:x.com (Nobody)"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(bytes.TrimSpace(body)) != `{"status":"no_results"}` {
		t.Fatalf("expected zero-results marker, got %s", body)
	}
}

func TestSearchFailures(t *testing.T) {
	t.Parallel()

	mock := mocksocial.New()
	mock.FailSearches(2)
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	for i, wantStatus := range []int{503, 503, 200} {
		resp, err := http.Get(srv.URL + "/search?q=anything")
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != wantStatus {
			t.Fatalf("request %d: expected %d, got %d", i, wantStatus, resp.StatusCode)
		}
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	t.Parallel()

	mock := mocksocial.New()
	mock.SetPollsBeforeReady(1)
	mock.AddProfile("https://x.com/janedoe", "Founder at Acme", "")
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	payload := []byte(`[{"url":"https://x.com/janedoe","max_number_of_posts":1}]`)
	resp, err := http.Post(srv.URL+"/datasets/trigger", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	var trig struct {
		SnapshotID string `json:"snapshot_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&trig); err != nil {
		t.Fatalf("decode trigger response: %v", err)
	}
	resp.Body.Close()
	if trig.SnapshotID == "" {
		t.Fatal("missing snapshot_id")
	}

	// First poll reports running, second serves the rows.
	resp, err = http.Get(srv.URL + "/datasets/snapshot/" + trig.SnapshotID)
	if err != nil {
		t.Fatalf("poll 1: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(bytes.TrimSpace(body)) != `{"status":"running"}` {
		t.Fatalf("expected running marker, got %s", body)
	}

	resp, err = http.Get(srv.URL + "/datasets/snapshot/" + trig.SnapshotID)
	if err != nil {
		t.Fatalf("poll 2: %v", err)
	}
	var rows []mocksocial.Profile
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	resp.Body.Close()
	if len(rows) != 1 || rows[0].Biography != "Founder at Acme" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestSnapshotNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(mocksocial.New().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/datasets/snapshot/snap-999")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestBearerTokenEnforcement(t *testing.T) {
	t.Parallel()

	mock := mocksocial.New()
	mock.RequireBearerToken("secret")
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/datasets/trigger", "application/json", bytes.NewReader([]byte(`[]`)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/datasets/trigger", bytes.NewReader([]byte(`[]`)))
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post with token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}
