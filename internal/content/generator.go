// Package content produces the outbound message bodies and call scripts the
// dispatcher sends. A Gemini-backed generator personalizes them; static
// templates cover missing API keys and generation failures.
package content

import (
	"context"
	"fmt"
	"strings"

	"nurture_backend/internal/leads/domain"
)

// MessageParams describes the message to produce.
type MessageParams struct {
	FirstName    string
	Status       domain.Status
	FallbackType string
	CompanyName  string
}

// ScriptParams describes the call script to produce.
type ScriptParams struct {
	FirstName   string
	CallType    string
	CompanyName string
}

// Generator produces outbound message bodies and call scripts.
type Generator interface {
	FollowUpMessage(ctx context.Context, params MessageParams) (string, error)
	CallScript(ctx context.Context, params ScriptParams) (string, error)
}

// StaticGenerator renders fixed templates. It is the no-API-key mode and the
// fallback when generation fails.
type StaticGenerator struct{}

// NewStaticGenerator creates a template-only generator.
func NewStaticGenerator() *StaticGenerator { return &StaticGenerator{} }

func (g *StaticGenerator) FollowUpMessage(_ context.Context, params MessageParams) (string, error) {
	return renderTemplate(params), nil
}

func (g *StaticGenerator) CallScript(_ context.Context, params ScriptParams) (string, error) {
	return renderScript(params), nil
}

func renderTemplate(params MessageParams) string {
	name := strings.TrimSpace(params.FirstName)
	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}
	company := params.CompanyName
	if company == "" {
		company = "our team"
	}

	switch params.FallbackType {
	case domain.FallbackVoicemail:
		return fmt.Sprintf("%s, we just left you a voicemail from %s. Reply here whenever suits you and we'll pick it up from there.", greeting, company)
	case domain.FallbackMissed:
		return fmt.Sprintf("%s, we tried to reach you by phone from %s but couldn't get through. Reply here and we'll help you by text instead.", greeting, company)
	}

	switch params.Status {
	case domain.StatusNew:
		return fmt.Sprintf("%s, thanks for your interest! This is %s following up on your request. What would be a good moment to talk?", greeting, company)
	case domain.StatusInactive:
		return fmt.Sprintf("%s, it's been a while since we spoke at %s. Still interested? A quick reply is all we need to pick things back up.", greeting, company)
	default:
		return fmt.Sprintf("%s, just checking in from %s. Any questions we can help with?", greeting, company)
	}
}

func renderScript(params ScriptParams) string {
	name := strings.TrimSpace(params.FirstName)
	if name == "" {
		name = "there"
	}
	company := params.CompanyName
	if company == "" {
		company = "our team"
	}

	switch params.CallType {
	case domain.CallTypeNewLead:
		return fmt.Sprintf("Hi %s, this is %s calling about the request you just sent in. Is now a good moment to go over it together?", name, company)
	case domain.CallTypeReactivation:
		return fmt.Sprintf("Hi %s, this is %s. We spoke a while back and wanted to check whether you're still interested. Do you have a minute?", name, company)
	default:
		return fmt.Sprintf("Hi %s, this is %s following up on our earlier conversation. Is this a good time for a quick chat?", name, company)
	}
}
