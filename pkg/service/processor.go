// Turn processing pipeline
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/pochemuchka/pochemuchka/pkg/db"
	"github.com/pochemuchka/pochemuchka/pkg/llm"
	"github.com/pochemuchka/pochemuchka/pkg/models"
	"github.com/pochemuchka/pochemuchka/pkg/prompts"
	"github.com/pochemuchka/pochemuchka/pkg/store"
	"github.com/pochemuchka/pochemuchka/pkg/utils"
)

// Processor runs the full pipeline for one turn: load, analyze, merge,
// respond, save. Storage and analysis failures are absorbed; only the dialog
// model failing yields an apology instead of a real reply, and even then the
// turn completes.
type Processor struct {
	store    *store.Degradable
	analyzer *Analyzer
	dialog   *Dialog
	logger   *slog.Logger
}

func NewProcessor(st *store.Degradable, analyzer *Analyzer, dialog *Dialog) *Processor {
	return &Processor{
		store:    st,
		analyzer: analyzer,
		dialog:   dialog,
		logger:   utils.GetLogger().With("component", "processor"),
	}
}

// ProcessTurn handles one inbound text turn for a chat. It always returns a
// response; err is reserved for context cancellation.
func (p *Processor) ProcessTurn(ctx context.Context, chatID, content string) (*models.TurnResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	session, history, err := p.store.Load(ctx, chatID)
	if err != nil {
		// Degradable absorbs storage failures; this is unreachable with it,
		// but the pipeline stays safe with a bare store too.
		p.logger.Error("session load failed", "chat_id", chatID, "error", err)
		session = db.NewSession(chatID)
		history = nil
	}

	analysis, analysisErr := p.analyzer.Analyze(ctx, history, content)
	if analysisErr != nil {
		p.logger.Warn("analysis failed, continuing degraded",
			"chat_id", chatID, "error", analysisErr)
	}

	dynamic := Merge(session, analysis, analysisErr)

	reply, genErr := p.dialog.Respond(ctx, dynamic, history, content)
	if genErr != nil {
		p.logger.Error("generation failed, sending fallback",
			"chat_id", chatID, "error", genErr)
		if errors.Is(genErr, llm.ErrRateLimited) {
			reply = prompts.RateLimitReply()
		} else {
			reply = prompts.FallbackReply(session.Topic)
		}
	}

	// Timestamps are assigned by the store, strictly increasing within a turn.
	newMessages := []*models.Message{
		{ChatID: chatID, Role: models.RoleUser, Content: content},
		{ChatID: chatID, Role: models.RoleAssistant, Content: reply},
	}
	if err := p.store.Save(ctx, session, newMessages); err != nil {
		p.logger.Error("session save failed", "chat_id", chatID, "error", err)
	}

	p.logger.Info("turn processed",
		"chat_id", chatID,
		"scenario", session.Scenario,
		"level", session.UnderstandingLevel,
		"degraded", dynamic.Degraded,
		"fallback_reply", genErr != nil,
		"latency_ms", time.Since(start).Milliseconds())

	return &models.TurnResponse{
		ChatID:   chatID,
		Reply:    reply,
		Degraded: dynamic.Degraded || genErr != nil || !p.store.Available(),
		Session:  models.NewSessionView(session, len(history)+len(newMessages)),
	}, nil
}
