// Dialog generation via the dialog model
package service

import (
	"context"
	"log/slog"

	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/pochemuchka/pochemuchka/pkg/llm"
	"github.com/pochemuchka/pochemuchka/pkg/models"
	"github.com/pochemuchka/pochemuchka/pkg/prompts"
	"github.com/pochemuchka/pochemuchka/pkg/utils"
)

// Dialog produces the assistant reply for a merged turn.
type Dialog struct {
	model        generator
	historyLimit int
	logger       *slog.Logger
}

func NewDialog(model generator, historyLimit int) *Dialog {
	if historyLimit < 1 {
		historyLimit = 1
	}
	return &Dialog{
		model:        model,
		historyLimit: historyLimit,
		logger:       utils.GetLogger().With("component", "dialog"),
	}
}

// Respond assembles the instruction stack (base, dynamic context block,
// scenario, understanding band), the truncated history, and the turn, then
// generates. Rate limits pass through as llm.ErrRateLimited; everything else
// wraps llm.ErrOrchestrator.
func (d *Dialog) Respond(ctx context.Context, dynamic models.DynamicContext, history []*models.Message, turnText string) (string, error) {
	messages := d.BuildMessages(dynamic, history, turnText)

	reply, err := d.model.Generate(ctx, messages)
	if err != nil {
		if errors.Is(err, llm.ErrRateLimited) {
			return "", err
		}
		return "", errors.Wrap(llm.ErrOrchestrator, err.Error())
	}
	return reply, nil
}

// BuildMessages is the prompt assembly step, exposed for tests. The system
// message is always first and never truncated; history keeps only the most
// recent historyLimit messages.
func (d *Dialog) BuildMessages(dynamic models.DynamicContext, history []*models.Message, turnText string) []*schema.Message {
	start := 0
	if len(history) > d.historyLimit {
		start = len(history) - d.historyLimit
	}

	messages := make([]*schema.Message, 0, len(history)-start+2)
	messages = append(messages, schema.SystemMessage(prompts.System(dynamic)))
	for _, m := range history[start:] {
		switch m.Role {
		case models.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(m.Content, nil))
		default:
			messages = append(messages, schema.UserMessage(m.Content))
		}
	}
	messages = append(messages, schema.UserMessage(turnText))
	return messages
}
