package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/pochemuchka/pochemuchka/pkg/config"
	"github.com/pochemuchka/pochemuchka/pkg/utils"
)

// Client is one configured model slot: an eino chat model plus the sampling
// parameters and retry policy every call through the slot uses.
type Client struct {
	name   string
	model  model.BaseChatModel
	cfg    config.ResolvedModel
	policy RetryPolicy
	logger *slog.Logger
}

// NewClient builds the chat model for the slot and wraps it.
func NewClient(ctx context.Context, name string, mc config.ResolvedModel) (*Client, error) {
	cm, err := NewChatModel(ctx, mc)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s model", name)
	}
	return WrapModel(name, cm, mc), nil
}

// WrapModel wraps an existing chat model. Used directly by tests with fakes.
func WrapModel(name string, cm model.BaseChatModel, mc config.ResolvedModel) *Client {
	policy := DefaultRetryPolicy()
	if mc.TimeoutSeconds > 0 {
		policy.AttemptTimeout = time.Duration(mc.TimeoutSeconds) * time.Second
	}
	return &Client{
		name:   name,
		model:  cm,
		cfg:    mc,
		policy: policy,
		logger: utils.GetLogger().With("model", name),
	}
}

// Generate runs one chat completion under the retry policy and returns the
// trimmed reply text.
func (c *Client) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	msg, err := Attempt(ctx, c.policy, c.logger, c.name, func(ctx context.Context) (*schema.Message, error) {
		return c.model.Generate(ctx, messages,
			model.WithTemperature(float32(c.cfg.Temperature)),
			model.WithMaxTokens(c.cfg.MaxTokens))
	})
	if err != nil {
		if IsRateLimit(err) {
			return "", errors.Wrap(ErrRateLimited, err.Error())
		}
		return "", err
	}
	if msg == nil {
		return "", errors.New("model returned empty response")
	}
	return strings.TrimSpace(msg.Content), nil
}
