package content

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"nurture_backend/internal/leads/domain"
	"nurture_backend/platform/logger"
)

// GeminiGenerator produces personalized message bodies with Gemini. Every
// failure degrades to the static template so a provider outage never blocks
// a dispatch cycle.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	static *StaticGenerator
	log    *logger.Logger
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, log *logger.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiGenerator{
		client: client,
		model:  model,
		static: NewStaticGenerator(),
		log:    log,
	}, nil
}

func (g *GeminiGenerator) FollowUpMessage(ctx context.Context, params MessageParams) (string, error) {
	prompt := buildPrompt(params)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.7),
	})
	if err != nil {
		g.log.Warn("content: generation failed, using template", "error", err)
		return g.static.FollowUpMessage(ctx, params)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		g.log.Warn("content: empty generation, using template")
		return g.static.FollowUpMessage(ctx, params)
	}
	return text, nil
}

func (g *GeminiGenerator) CallScript(ctx context.Context, params ScriptParams) (string, error) {
	prompt := buildScriptPrompt(params)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.7),
	})
	if err != nil {
		g.log.Warn("content: script generation failed, using template", "error", err)
		return g.static.CallScript(ctx, params)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		g.log.Warn("content: empty script generation, using template")
		return g.static.CallScript(ctx, params)
	}
	return text, nil
}

func buildPrompt(params MessageParams) string {
	var b strings.Builder
	b.WriteString("Write one short, friendly SMS (max 320 characters, no emoji, no links) from a sales team to a lead.\n")
	if params.CompanyName != "" {
		b.WriteString("Company: " + params.CompanyName + "\n")
	}
	if params.FirstName != "" {
		b.WriteString("Lead first name: " + params.FirstName + "\n")
	}

	switch params.FallbackType {
	case domain.FallbackVoicemail:
		b.WriteString("Context: we called twice today and reached voicemail. Mention the voicemail and invite a text reply.\n")
	case domain.FallbackMissed:
		b.WriteString("Context: we called twice today and got no answer. Invite a text reply, do not mention voicemail.\n")
	default:
		switch params.Status {
		case domain.StatusNew:
			b.WriteString("Context: first follow-up after the lead submitted an inquiry. Thank them and ask when suits them to talk.\n")
		case domain.StatusInactive:
			b.WriteString("Context: the lead went quiet a while ago. A light reactivation nudge, no pressure.\n")
		default:
			b.WriteString("Context: an ongoing conversation went quiet. A brief, helpful check-in.\n")
		}
	}
	b.WriteString("Return only the message text.")
	return b.String()
}

func buildScriptPrompt(params ScriptParams) string {
	var b strings.Builder
	b.WriteString("Write a short opening script (2-3 sentences) for an outbound sales call from a team to a lead. Conversational, no jargon.\n")
	if params.CompanyName != "" {
		b.WriteString("Company: " + params.CompanyName + "\n")
	}
	if params.FirstName != "" {
		b.WriteString("Lead first name: " + params.FirstName + "\n")
	}

	switch params.CallType {
	case domain.CallTypeNewLead:
		b.WriteString("Context: the lead just submitted an inquiry and this is the first call.\n")
	case domain.CallTypeReactivation:
		b.WriteString("Context: the lead went quiet months ago; a friendly re-engagement call.\n")
	default:
		b.WriteString("Context: a scheduled follow-up on an ongoing conversation.\n")
	}
	b.WriteString("Return only the script text.")
	return b.String()
}
