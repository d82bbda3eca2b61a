package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shpitdev/founder-scout/internal/httputil"
	"github.com/shpitdev/founder-scout/internal/util"
)

// ProfileData is the resolution outcome for one requested handle.
type ProfileData struct {
	Status      string `json:"status"` // success | error
	CanDM       bool   `json:"can_dm"`
	Description string `json:"description"`
	Reason      string `json:"reason,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Config tunes the dataset trigger + snapshot polling client.
type Config struct {
	// TriggerURL receives the batch job as a JSON array of profile requests.
	TriggerURL string
	// SnapshotURL is the snapshot retrieval endpoint; the snapshot id is
	// appended as a path segment.
	SnapshotURL string
	Token       string

	// ProfileURLPrefix turns a handle into the profile URL submitted to the
	// dataset API and is also used to match returned rows back to handles.
	ProfileURLPrefix string

	PollInterval time.Duration
	MaxPolls     int

	// MaxHandlesPerTrigger caps one trigger call; handles beyond the cap are
	// never submitted and come back as error entries naming the cap, rather
	// than being dropped or mislabeled as not found.
	MaxHandlesPerTrigger int
	MaxPostsPerProfile   int

	// AssumeDMOpenOnFailure is the optimistic-DM policy: synthesized error
	// entries (resolution failure, handle missing from the snapshot) are
	// marked as accepting DMs so downstream outreach is not silently
	// filtered out on unknown status. This mirrors deliberate product
	// behavior; disable only if unknown should mean closed.
	AssumeDMOpenOnFailure bool

	RequestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ProfileURLPrefix == "" {
		c.ProfileURLPrefix = "https://x.com/"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = 10
	}
	if c.MaxHandlesPerTrigger <= 0 {
		c.MaxHandlesPerTrigger = 20
	}
	if c.MaxPostsPerProfile <= 0 {
		c.MaxPostsPerProfile = 1
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return c
}

// Client submits profile batches to the dataset API and polls snapshots.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *log.Logger
}

func NewClient(cfg Config, logger *log.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.TriggerURL) == "" || strings.TrimSpace(cfg.SnapshotURL) == "" {
		return nil, fmt.Errorf("dataset trigger and snapshot URLs are required")
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger,
	}, nil
}

type triggerRequest struct {
	URL              string `json:"url"`
	MaxNumberOfPosts int    `json:"max_number_of_posts"`
}

type triggerResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

type profileRow struct {
	URL           string `json:"url"`
	Biography     string `json:"biography"`
	DMRestriction string `json:"dm_restriction"`
}

// ResolveProfiles resolves profile data for the given handles.
//
// The returned slice always has the same length and order as handles. Failures
// never cross this boundary: a trigger error or an exhausted poll budget
// degrades every slot to a synthesized error entry, and a handle absent from
// the snapshot rows gets a not-found error entry in its original position.
func (c *Client) ResolveProfiles(ctx context.Context, handles []string) []ProfileData {
	if len(handles) == 0 {
		return nil
	}

	triggered := handles
	if len(triggered) > c.cfg.MaxHandlesPerTrigger {
		triggered = triggered[:c.cfg.MaxHandlesPerTrigger]
	}

	snapshotID, err := c.trigger(ctx, triggered)
	if err != nil {
		c.logf("snapshot trigger failed: handles=%d error=%q", len(handles), util.RedactSecrets(err.Error()))
		return c.failAll(handles, "profile batch trigger failed")
	}
	c.logf("snapshot triggered: id=%s handles=%d", snapshotID, len(triggered))

	rows, err := c.poll(ctx, snapshotID)
	if err != nil {
		c.logf("snapshot poll failed: id=%s error=%q", snapshotID, util.RedactSecrets(err.Error()))
		return c.failAll(handles, "profile snapshot did not complete")
	}
	c.logf("snapshot ready: id=%s rows=%d", snapshotID, len(rows))

	byURL := make(map[string]profileRow, len(rows))
	for _, row := range rows {
		key := normalizeProfileURL(row.URL)
		if key == "" {
			continue
		}
		byURL[key] = row
	}

	out := make([]ProfileData, len(handles))
	for i, handle := range handles {
		if i >= c.cfg.MaxHandlesPerTrigger {
			out[i] = ProfileData{
				Status: StatusError,
				CanDM:  c.cfg.AssumeDMOpenOnFailure,
				Reason: c.failReason(fmt.Sprintf("handle exceeded trigger cap of %d", c.cfg.MaxHandlesPerTrigger)),
			}
			continue
		}
		key := normalizeProfileURL(c.cfg.ProfileURLPrefix + strings.TrimSpace(handle))
		row, ok := byURL[key]
		if !ok {
			out[i] = ProfileData{
				Status: StatusError,
				CanDM:  c.cfg.AssumeDMOpenOnFailure,
				Reason: c.failReason("profile not found in snapshot"),
			}
			continue
		}
		out[i] = ProfileData{
			Status:      StatusSuccess,
			CanDM:       dmOpen(row.DMRestriction),
			Description: strings.TrimSpace(row.Biography),
		}
	}
	return out
}

func (c *Client) trigger(ctx context.Context, handles []string) (string, error) {
	reqs := make([]triggerRequest, 0, len(handles))
	for _, h := range handles {
		reqs = append(reqs, triggerRequest{
			URL:              c.cfg.ProfileURLPrefix + strings.TrimSpace(h),
			MaxNumberOfPosts: c.cfg.MaxPostsPerProfile,
		})
	}
	b, err := json.Marshal(reqs)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TriggerURL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode/100 != 2 {
		return "", httputil.NewHTTPError("triggerSnapshot", resp, rb)
	}

	var out triggerResponse
	if err := json.Unmarshal(rb, &out); err != nil {
		return "", fmt.Errorf("parse trigger response: %w", err)
	}
	if strings.TrimSpace(out.SnapshotID) == "" {
		return "", fmt.Errorf("trigger response missing snapshot_id")
	}
	return strings.TrimSpace(out.SnapshotID), nil
}

// terminalStateError marks a snapshot that reported a non-running terminal
// state; further polling cannot change the outcome.
type terminalStateError struct {
	status string
}

func (e *terminalStateError) Error() string {
	return fmt.Sprintf("snapshot in terminal state %q", e.status)
}

// poll fetches the snapshot until it stops reporting a running state. Poll
// errors count against the same attempt budget as running responses, except a
// terminal failure state, which stops polling immediately.
func (c *Client) poll(ctx context.Context, snapshotID string) ([]profileRow, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxPolls; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, running, err := c.pollOnce(ctx, snapshotID)
		if err == nil && !running {
			return rows, nil
		}
		if err != nil {
			lastErr = err
			c.logf("snapshot poll attempt failed: id=%s attempt=%d/%d error=%q", snapshotID, attempt, c.cfg.MaxPolls, util.RedactSecrets(err.Error()))
			var terminal *terminalStateError
			if errors.As(err, &terminal) {
				return nil, err
			}
		}

		if attempt == c.cfg.MaxPolls {
			break
		}
		t := time.NewTimer(c.cfg.PollInterval)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("snapshot %s: %d polls exhausted: %w", snapshotID, c.cfg.MaxPolls, lastErr)
	}
	return nil, fmt.Errorf("snapshot %s still running after %d polls", snapshotID, c.cfg.MaxPolls)
}

func (c *Client) pollOnce(ctx context.Context, snapshotID string) (rows []profileRow, running bool, err error) {
	u := strings.TrimRight(c.cfg.SnapshotURL, "/") + "/" + url.PathEscape(snapshotID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, false, httputil.NewHTTPError("getSnapshot", resp, rb)
	}

	trimmed := bytes.TrimSpace(rb)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, false, fmt.Errorf("parse snapshot rows: %w", err)
		}
		return rows, false, nil
	}

	var state struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(trimmed, &state); err != nil {
		return nil, false, fmt.Errorf("parse snapshot state: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(state.Status), "running") {
		return nil, true, nil
	}
	return nil, false, &terminalStateError{status: state.Status}
}

func (c *Client) failAll(handles []string, reason string) []ProfileData {
	out := make([]ProfileData, len(handles))
	for i := range handles {
		out[i] = ProfileData{
			Status: StatusError,
			CanDM:  c.cfg.AssumeDMOpenOnFailure,
			Reason: c.failReason(reason),
		}
	}
	return out
}

func (c *Client) failReason(reason string) string {
	if c.cfg.AssumeDMOpenOnFailure {
		return reason + "; assuming DMs are open"
	}
	return reason
}

func (c *Client) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func dmOpen(restriction string) bool {
	switch strings.ToLower(strings.TrimSpace(restriction)) {
	case "", "everyone", "open":
		return true
	default:
		return false
	}
}

func normalizeProfileURL(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimRight(s, "/")
}
