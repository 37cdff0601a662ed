package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/blackwidowglobal/dossier/internal/model"
)

// Narrator wraps a provider with configuration and timeout handling. A nil
// Narrator (or one built from an empty provider name) is disabled.
type Narrator struct {
	provider Provider
	timeout  time.Duration
}

// NewNarrator builds a narrator from configuration. Returns nil when no
// provider is configured; narrative generation is opt-in.
func NewNarrator(cfg model.LLMConfig) (*Narrator, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		p, err := NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("llm provider: %w", err)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return &Narrator{provider: p, timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("llm provider: unknown provider %q", cfg.Provider)
	}
}

// Enabled reports whether narrative generation is configured
func (n *Narrator) Enabled() bool {
	return n != nil && n.provider != nil
}

// Narrate generates the narrative for a finished dossier
func (n *Narrator) Narrate(ctx context.Context, d model.Dossier) (string, error) {
	if !n.Enabled() {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	resp, err := n.provider.Narrate(ctx, NarrateRequest{Dossier: d})
	if err != nil {
		return "", fmt.Errorf("narrate: %w", err)
	}
	return resp.Narrative, nil
}
