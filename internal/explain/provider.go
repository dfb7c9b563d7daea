package explain

import (
	"context"
	"fmt"
	"strings"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// Provider generates text from a system and a user prompt
type Provider interface {
	Name() string
	Generate(ctx context.Context, system, user string) (string, error)
}

// NewProvider builds the configured provider. An empty provider name
// disables explanations and returns nil.
func NewProvider(cfg model.LLMConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "":
		return nil, nil
	case "openai":
		return NewOpenAIProvider(cfg)
	case "anthropic", "claude":
		return NewAnthropicProvider(cfg)
	case "stub":
		return NewStubProvider(""), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, stub)", cfg.Provider)
	}
}

// StubProvider returns a fixed response; used offline and in tests
type StubProvider struct {
	Response string
}

// NewStubProvider creates a stub; empty text means "STUB_RESPONSE"
func NewStubProvider(text string) *StubProvider {
	if text == "" {
		text = "STUB_RESPONSE"
	}
	return &StubProvider{Response: text}
}

func (p *StubProvider) Name() string { return "stub" }

func (p *StubProvider) Generate(ctx context.Context, system, user string) (string, error) {
	return p.Response, nil
}
