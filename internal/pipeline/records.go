package pipeline

import "time"

// InputRecord is one founder row from the input CSV. Immutable after parse;
// the search query is precomputed at batch-preparation time.
type InputRecord struct {
	FounderName string
	CompanyName string
	Email       string
	SearchQuery string
}

// Terminal states for a record. Every InputRecord reaches exactly one.
const (
	StatusFailed    = "failed"    // pipeline stopped before profile resolution
	StatusError     = "error"     // unexpected failure during assembly
	StatusProcessed = "processed" // profile resolved; classification best-effort
)

// ResultRecord is the per-founder outcome. Exactly one is produced per
// InputRecord regardless of where in the pipeline it stopped.
type ResultRecord struct {
	FounderName string `json:"founder_name"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Status      string `json:"status"`

	Handle      string `json:"handle,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
	Description string `json:"description,omitempty"`
	CanDM       bool   `json:"can_dm"`

	Role             string `json:"role,omitempty"`
	Rank             int    `json:"rank,omitempty"`
	ConfidenceReason string `json:"confidence_reason,omitempty"`

	Reason      string    `json:"reason,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}
