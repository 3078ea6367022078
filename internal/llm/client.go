package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/investlens/lenscore/internal/models"
)

const defaultMaxTokens = 1500

// Prompt is one completion request: behavioral instructions plus the
// task payload.
type Prompt struct {
	System string
	User   string
}

// Client issues a single completion against one configured backend.
// Implementations never retry; the debate engine owns that policy.
type Client interface {
	// Complete runs one completion call bounded by the client's
	// timeout. Failures come back as a *CallError.
	Complete(ctx context.Context, p Prompt) (string, error)
	// ModelName is the display name used in events and results.
	ModelName() string
}

type chatClient struct {
	cm      model.BaseChatModel
	name    string
	timeout time.Duration
}

// NewClient builds a Client for one model config. The API key is
// attached to the underlying chat model as a transport credential only;
// it is never logged or echoed back.
func NewClient(ctx context.Context, cfg models.ModelConfig, timeout time.Duration) (Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("model config %q: base URL is required", cfg.Name)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model config %q: model identifier is required", cfg.Name)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var (
		cm  model.BaseChatModel
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "deepseek":
		cm, err = deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: defaultMaxTokens,
			Timeout:   timeout,
		})
	default:
		maxTokens := defaultMaxTokens
		cm, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: &maxTokens,
			Timeout:   timeout,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("create chat model %q: %w", cfg.Name, err)
	}

	name := cfg.Name
	if name == "" {
		name = cfg.Model
	}

	return &chatClient{cm: cm, name: name, timeout: timeout}, nil
}

func (c *chatClient) ModelName() string {
	return c.name
}

func (c *chatClient) Complete(ctx context.Context, p Prompt) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msgs := []*schema.Message{
		schema.SystemMessage(p.System),
		schema.UserMessage(p.User),
	}

	out, err := c.cm.Generate(callCtx, msgs)
	if err != nil {
		return "", Classify(err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", &CallError{Kind: ErrProvider, Err: fmt.Errorf("empty completion from %s", c.name)}
	}
	return out.Content, nil
}

// Factory builds clients for model configs. The debate engine depends
// on this instead of concrete constructors so tests can inject fakes.
type Factory func(ctx context.Context, cfg models.ModelConfig, timeout time.Duration) (Client, error)

// DefaultFactory is the production factory backed by NewClient.
func DefaultFactory() Factory {
	return NewClient
}
