package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/balkashynov/emolyzer/internal/config"
	"github.com/balkashynov/emolyzer/internal/models"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini implements Oracle on top of the Google GenAI API using JSON-mode responses.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGemini creates a Gemini-backed oracle.
func NewGemini(ctx context.Context, cfg config.OracleConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set GEMINI_API_KEY)")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Gemini{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// DecideIntervention asks whether the employee's recent history warrants a conversation.
func (g *Gemini) DecideIntervention(ctx context.Context, bundle models.HistoryBundle) (Decision, error) {
	prompt, err := renderBundle(bundle)
	if err != nil {
		return Decision{}, err
	}
	raw, err := g.generate(ctx, interventionInstruction, prompt, decisionSchema())
	if err != nil {
		return Decision{}, err
	}
	return parseDecision(raw)
}

// JudgeFollowup decides whether the active reason needs more probing.
func (g *Gemini) JudgeFollowup(ctx context.Context, req FollowupRequest) (Followup, error) {
	raw, err := g.generate(ctx, followupInstruction, renderFollowup(req), followupSchema())
	if err != nil {
		return Followup{}, err
	}
	return parseFollowup(raw)
}

// Summarize produces the end-of-session assessment for human review.
func (g *Gemini) Summarize(ctx context.Context, req SummaryRequest) (Summary, error) {
	raw, err := g.generate(ctx, summaryInstruction, renderSummary(req), summarySchema())
	if err != nil {
		return Summary{}, err
	}
	return parseSummary(raw)
}

func (g *Gemini) generate(ctx context.Context, instruction, prompt string, schema *genai.Schema) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate failed: %w", ErrUnavailable, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", malformed("empty response from %s", g.model)
	}
	return text, nil
}

// =============================================================================
// PROMPTS
// =============================================================================

const interventionInstruction = `You assess employee wellbeing for a supportive check-in programme.
Given recent mood readings (scale 1 Frustrated to 5 Excited), awards, leave and the latest performance review,
decide whether a gentle supportive conversation should be started.
If it should, list the most likely causes of distress, most likely first, and pair each with one warm,
open question that invites the employee to talk about it without mentioning the underlying data.
Respond with JSON only.`

const followupInstruction = `You are a warm, non-judgmental wellbeing companion talking with an employee.
The conversation is currently exploring one possible cause of distress.
Decide whether that cause has been explored enough. If more listening would help, set continue_followup to true
and write your next short reply (at most three sentences) in response_text. If it has been explored enough,
set continue_followup to false. Always give a brief decision_reason. Respond with JSON only.`

const summaryInstruction = `You prepare concise, objective summaries of wellbeing conversations for HR review.
Respect the employee's privacy while giving enough context to act.
Provide a short title, a summary under 300 words, the single most likely underlying reason,
a severity_score from 1 (no concern) to 10 (urgent), and whether a human should follow up (escalation_required).
Respond with JSON only.`

func renderBundle(bundle models.HistoryBundle) (string, error) {
	var b strings.Builder
	sections := []struct {
		title string
		value interface{}
	}{
		{"Mood readings (recent)", bundle.Moods},
		{"Awards (last year)", bundle.Awards},
		{"Leave (last two months)", bundle.Leaves},
		{"Latest performance review", bundle.LatestReview},
	}
	for _, s := range sections {
		data, err := json.Marshal(s.value)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s: %w", s.title, err)
		}
		fmt.Fprintf(&b, "%s:\n%s\n\n", s.title, data)
	}
	return strings.TrimSpace(b.String()), nil
}

func renderFollowup(req FollowupRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cause being explored: %s\n", req.Reason)
	fmt.Fprintf(&b, "Opening question for it: %s\n\n", req.ProbeQuestion)
	b.WriteString("Conversation so far:\n")
	b.WriteString(renderTranscript(req.Transcript))
	return b.String()
}

func renderSummary(req SummaryRequest) string {
	var b strings.Builder
	b.WriteString("Causes considered:\n")
	for i, r := range req.CandidateReasons {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	b.WriteString("\nConversation:\n")
	b.WriteString(renderTranscript(req.Transcript))
	return b.String()
}

func renderTranscript(messages []models.Message) string {
	if len(messages) == 0 {
		return "(no messages)\n"
	}
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.CreatedAt.UTC().Format(time.RFC3339), m.Sender, m.Text)
	}
	return b.String()
}

// =============================================================================
// RESPONSE SCHEMAS AND PARSING
// =============================================================================

func decisionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"intervention_needed": {Type: genai.TypeBoolean},
			"confidence":          {Type: genai.TypeNumber},
			"reasons": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"reason":   {Type: genai.TypeString},
						"question": {Type: genai.TypeString},
					},
					Required: []string{"reason", "question"},
				},
			},
		},
		Required: []string{"intervention_needed", "confidence", "reasons"},
	}
}

func followupSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"continue_followup": {Type: genai.TypeBoolean},
			"response_text":     {Type: genai.TypeString},
			"decision_reason":   {Type: genai.TypeString},
		},
		Required: []string{"continue_followup", "response_text", "decision_reason"},
	}
}

func summarySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":               {Type: genai.TypeString},
			"summary":             {Type: genai.TypeString},
			"identified_reason":   {Type: genai.TypeString},
			"severity_score":      {Type: genai.TypeNumber},
			"escalation_required": {Type: genai.TypeBoolean},
		},
		Required: []string{"title", "summary", "identified_reason", "severity_score", "escalation_required"},
	}
}

func parseDecision(raw string) (Decision, error) {
	var wire struct {
		Needed     *bool       `json:"intervention_needed"`
		Confidence float64     `json:"confidence"`
		Reasons    []Candidate `json:"reasons"`
	}
	if err := decodeJSON(raw, &wire); err != nil {
		return Decision{}, err
	}
	if wire.Needed == nil {
		return Decision{}, malformed("intervention_needed missing")
	}

	d := Decision{Needed: *wire.Needed, Confidence: wire.Confidence, Reasons: wire.Reasons}
	for i := range d.Reasons {
		d.Reasons[i].Reason = strings.TrimSpace(d.Reasons[i].Reason)
		d.Reasons[i].ProbeQuestion = strings.TrimSpace(d.Reasons[i].ProbeQuestion)
	}
	return d, d.Validate()
}

func parseFollowup(raw string) (Followup, error) {
	var wire struct {
		Continue       *bool  `json:"continue_followup"`
		ResponseText   string `json:"response_text"`
		DecisionReason string `json:"decision_reason"`
	}
	if err := decodeJSON(raw, &wire); err != nil {
		return Followup{}, err
	}
	if wire.Continue == nil {
		return Followup{}, malformed("continue_followup missing")
	}

	f := Followup{
		ContinueFollowup: *wire.Continue,
		ResponseText:     strings.TrimSpace(wire.ResponseText),
		DecisionReason:   strings.TrimSpace(wire.DecisionReason),
	}
	return f, f.Validate()
}

func parseSummary(raw string) (Summary, error) {
	var wire struct {
		Title              string   `json:"title"`
		Summary            string   `json:"summary"`
		IdentifiedReason   string   `json:"identified_reason"`
		SeverityScore      *float64 `json:"severity_score"`
		EscalationRequired *bool    `json:"escalation_required"`
	}
	if err := decodeJSON(raw, &wire); err != nil {
		return Summary{}, err
	}
	if wire.SeverityScore == nil {
		return Summary{}, malformed("severity_score missing")
	}
	if wire.EscalationRequired == nil {
		return Summary{}, malformed("escalation_required missing")
	}

	s := Summary{
		Title:              strings.TrimSpace(wire.Title),
		Summary:            strings.TrimSpace(wire.Summary),
		IdentifiedReason:   strings.TrimSpace(wire.IdentifiedReason),
		SeverityScore:      int(math.Round(*wire.SeverityScore)),
		EscalationRequired: *wire.EscalationRequired,
	}
	if s.IdentifiedReason == "" {
		s.IdentifiedReason = UnknownReason
	}
	return s, s.Validate()
}
