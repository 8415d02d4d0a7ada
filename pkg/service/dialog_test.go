package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/pochemuchka/pochemuchka/pkg/llm"
	"github.com/pochemuchka/pochemuchka/pkg/models"
	"github.com/pochemuchka/pochemuchka/pkg/prompts"
)

func TestBuildMessages_TruncatesHistoryKeepingSystemFirst(t *testing.T) {
	d := NewDialog(&fakeModel{}, 30)

	history := make([]*models.Message, 40)
	for i := range history {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		history[i] = &models.Message{Role: role, Content: fmt.Sprintf("msg-%d", i)}
	}

	dynamic := models.DynamicContext{Scenario: models.ScenarioDiscussion, UnderstandingLevel: 5}
	messages := d.BuildMessages(dynamic, history, "turn")

	// system + 30 history + current turn
	if got := len(messages); got != 32 {
		t.Fatalf("len(messages) = %d, want 32", got)
	}
	if !strings.Contains(messages[0].Content, prompts.BaseSystem) {
		t.Fatalf("system message missing base instruction")
	}
	// Most recent history survives, oldest is dropped.
	if messages[1].Content != "msg-10" {
		t.Fatalf("first history message = %q, want msg-10", messages[1].Content)
	}
	if messages[31].Content != "turn" {
		t.Fatalf("last message = %q, want the current turn", messages[31].Content)
	}

	// Truncation is idempotent: building from already-truncated history
	// yields the same window.
	again := d.BuildMessages(dynamic, history[10:], "turn")
	if len(again) != len(messages) {
		t.Fatalf("re-truncated len = %d, want %d", len(again), len(messages))
	}
	for i := range messages {
		if messages[i].Content != again[i].Content {
			t.Fatalf("messages[%d] = %q, want %q", i, again[i].Content, messages[i].Content)
		}
	}
}

func TestBuildMessages_SystemCarriesContextBlock(t *testing.T) {
	d := NewDialog(&fakeModel{}, 30)

	topic := "дроби"
	dynamic := models.DynamicContext{
		Scenario:           models.ScenarioExplanation,
		Topic:              &topic,
		UnderstandingLevel: 1,
	}
	messages := d.BuildMessages(dynamic, nil, "что такое дробь?")

	system := messages[0].Content
	if !strings.Contains(system, "topic: дроби") {
		t.Fatalf("system prompt missing topic, got:\n%s", system)
	}
	if !strings.Contains(system, prompts.ScenarioPrompt(models.ScenarioExplanation)) {
		t.Fatalf("system prompt missing scenario instructions")
	}
	if !strings.Contains(system, prompts.UnderstandingPrompt(1)) {
		t.Fatalf("system prompt missing low-band instructions")
	}
}

func TestRespond_WrapsFailuresAsOrchestratorError(t *testing.T) {
	model := &fakeModel{errs: []error{errors.New("upstream 500"), errors.New("upstream 500")}}
	d := NewDialog(model, 30)

	_, err := d.Respond(context.Background(), models.DynamicContext{Scenario: models.ScenarioUnknown}, nil, "привет")
	if !errors.Is(err, llm.ErrOrchestrator) {
		t.Fatalf("Respond() error = %v, want ErrOrchestrator", err)
	}
}

func TestRespond_RateLimitPassesThrough(t *testing.T) {
	model := &fakeModel{errs: []error{errors.Wrap(llm.ErrRateLimited, "429")}}
	d := NewDialog(model, 30)

	_, err := d.Respond(context.Background(), models.DynamicContext{Scenario: models.ScenarioUnknown}, nil, "привет")
	if !errors.Is(err, llm.ErrRateLimited) {
		t.Fatalf("Respond() error = %v, want ErrRateLimited", err)
	}
	if errors.Is(err, llm.ErrOrchestrator) {
		t.Fatalf("rate limit must keep its own kind, got %v", err)
	}
}
