package search

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Payload is the parsed body of one search backend response.
//
// Two shapes are accepted: an explicit zero-results marker, which parses to an
// empty Organic list, and a payload carrying an "organic" results list. Any
// other shape is a parse failure so the fetcher treats it as a failed attempt.
type Payload struct {
	Organic []Result
}

// Result is a single organic search hit. Only the link is consumed downstream.
type Result struct {
	Link  string `json:"link"`
	Title string `json:"title"`
}

const zeroResultsStatus = "no_results"

type rawPayload struct {
	Status  string    `json:"status"`
	Organic *[]Result `json:"organic"`
}

// ParsePayload decodes a search response body into a Payload.
func ParsePayload(body []byte) (*Payload, error) {
	var raw rawPayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse search payload: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(raw.Status), zeroResultsStatus) {
		return &Payload{}, nil
	}
	if raw.Organic == nil {
		return nil, fmt.Errorf("parse search payload: unrecognized shape")
	}
	return &Payload{Organic: *raw.Organic}, nil
}

// Empty reports whether the payload carries no organic results.
func (p *Payload) Empty() bool {
	return p == nil || len(p.Organic) == 0
}
