package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

// Verdict is the structured classification result for one profile.
type Verdict struct {
	Role             string `json:"role"`
	Rank             int    `json:"rank"`
	ConfidenceReason string `json:"confidence_reason"`
}

// Classifier scores founder/executive likelihood from a profile summary.
type Classifier struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg Config) (*Classifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Classifier{
		client: client,
		model:  strings.TrimSpace(cfg.Model),
	}, nil
}

var verdictSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"role":              {Type: genai.TypeString},
		"rank":              {Type: genai.TypeInteger},
		"confidence_reason": {Type: genai.TypeString},
	},
	Required: []string{
		"role",
		"rank",
		"confidence_reason",
	},
}

// Classify asks the model whether the profile belongs to a founder/executive
// of the given company. Any request or parse failure surfaces as an error;
// callers degrade to a result without classification fields.
func (c *Classifier) Classify(ctx context.Context, handle, description, company string) (*Verdict, error) {
	prompt := buildPrompt(handle, description, company)
	resp, err := c.client.Models.GenerateContent(
		ctx,
		c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   verdictSchema,
		},
	)
	if err != nil {
		return nil, err
	}

	var v Verdict
	if err := json.Unmarshal([]byte(resp.Text()), &v); err != nil {
		return nil, fmt.Errorf("classify: parse structured json: %w", err)
	}
	v.Role = strings.TrimSpace(v.Role)
	v.Rank = clampRank(v.Rank)
	v.ConfidenceReason = strings.TrimSpace(v.ConfidenceReason)
	return &v, nil
}

func buildPrompt(handle, description, company string) string {
	// Keep this prompt public-safe: no secrets, and no PII beyond the profile
	// fields already retrieved for classification.
	return strings.TrimSpace(fmt.Sprintf(`
You are a lead-qualification tool. Given a social profile, decide whether the
account belongs to a founder or executive of the named company.

Return ONLY a single JSON object with these keys:
- role (string; the person's likely role, e.g. "Founder", "CEO", or "unknown")
- rank (integer 1-10; 10 = certainly a founder/executive of this company)
- confidence_reason (string; one short sentence explaining the rank)

Handle: @%s
Profile bio: %s
Company: %s
`, strings.TrimSpace(handle), strings.TrimSpace(description), strings.TrimSpace(company)))
}

func clampRank(rank int) int {
	if rank < 1 {
		return 1
	}
	if rank > 10 {
		return 10
	}
	return rank
}
