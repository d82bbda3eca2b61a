// Package mocksocial implements a minimal mock of the external services the
// pipeline depends on: the proxied search endpoint and the dataset
// trigger/snapshot API. Used by package tests and runnable standalone via
// cmd/mock-social for local development.
package mocksocial

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
}

// Profile is a canned social profile served through the snapshot API.
type Profile struct {
	URL           string `json:"url"`
	Biography     string `json:"biography"`
	DMRestriction string `json:"dm_restriction"`
}

type snapshotState struct {
	urls  []string
	polls int
}

// Server implements the mock search + dataset API surface.
type Server struct {
	mu sync.Mutex

	calls []Call

	expectedAuthorization string

	// searchResults maps a query substring to the organic links returned for
	// matching queries; queries matching nothing get the zero-results marker.
	searchResults map[string][]string

	// searchFailures makes the next N search requests fail with 503, for
	// retry/backoff tests.
	searchFailures int

	profiles map[string]Profile // keyed by normalized profile URL

	pollsBeforeReady int
	nextSnapshot     int
	snapshots        map[string]*snapshotState
}

func New() *Server {
	return &Server{
		searchResults: make(map[string][]string),
		profiles:      make(map[string]Profile),
		nextSnapshot:  1,
		snapshots:     make(map[string]*snapshotState),
	}
}

// Handler returns an http.Handler serving the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/datasets/trigger", s.handleTrigger)
	mux.HandleFunc("/datasets/snapshot/", s.handleSnapshot)
	return mux
}

// AddSearchResult serves links for any search query containing substr.
func (s *Server) AddSearchResult(substr string, links ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchResults[substr] = links
}

// AddProfile registers a profile row returned by ready snapshots.
func (s *Server) AddProfile(url, biography, dmRestriction string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[normalizeURL(url)] = Profile{URL: url, Biography: biography, DMRestriction: dmRestriction}
}

// SetPollsBeforeReady makes each snapshot report running for n polls.
func (s *Server) SetPollsBeforeReady(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollsBeforeReady = n
}

// FailSearches makes the next n search requests respond 503.
func (s *Server) FailSearches(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchFailures = n
}

// RequireBearerToken enforces Authorization on dataset endpoints. An empty
// token disables enforcement.
func (s *Server) RequireBearerToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token = strings.TrimSpace(token)
	if token == "" {
		s.expectedAuthorization = ""
		return
	}
	s.expectedAuthorization = "Bearer " + token
}

// Calls returns a snapshot of requests made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Server) recordCall(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path})
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	expected := s.expectedAuthorization
	s.mu.Unlock()

	if expected == "" {
		return true
	}
	if r.Header.Get("Authorization") != expected {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.recordCall(r)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	if s.searchFailures > 0 {
		s.searchFailures--
		s.mu.Unlock()
		http.Error(w, `{"error":"upstream unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	query := r.URL.Query().Get("q")
	var links []string
	found := false
	for substr, l := range s.searchResults {
		if strings.Contains(query, substr) {
			links = l
			found = true
			break
		}
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !found {
		_, _ = w.Write([]byte(`{"status":"no_results"}`))
		return
	}
	type organic struct {
		Link string `json:"link"`
	}
	out := struct {
		Organic []organic `json:"organic"`
	}{Organic: make([]organic, 0, len(links))}
	for _, l := range links {
		out.Organic = append(out.Organic, organic{Link: l})
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	s.recordCall(r)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(w, r) {
		return
	}

	var reqs []struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		http.Error(w, `{"error":"bad request body"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	id := fmt.Sprintf("snap-%d", s.nextSnapshot)
	s.nextSnapshot++
	urls := make([]string, 0, len(reqs))
	for _, req := range reqs {
		urls = append(urls, req.URL)
	}
	s.snapshots[id] = &snapshotState{urls: urls}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"snapshot_id": id})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.recordCall(r)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(w, r) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/datasets/snapshot/")

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.snapshots[id]
	if !ok {
		http.Error(w, `{"error":"snapshot not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	state.polls++
	if state.polls <= s.pollsBeforeReady {
		_, _ = w.Write([]byte(`{"status":"running"}`))
		return
	}

	rows := make([]Profile, 0, len(state.urls))
	for _, u := range state.urls {
		if p, ok := s.profiles[normalizeURL(u)]; ok {
			rows = append(rows, p)
		}
	}
	_ = json.NewEncoder(w).Encode(rows)
}

func normalizeURL(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimRight(s, "/")
}
