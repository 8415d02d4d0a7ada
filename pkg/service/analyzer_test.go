package service

import (
	"context"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/pochemuchka/pochemuchka/pkg/llm"
	"github.com/pochemuchka/pochemuchka/pkg/models"
)

// fakeModel scripts Generate responses for tests.
type fakeModel struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
	last    []*schema.Message
}

func (f *fakeModel) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.last = messages
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	if len(f.replies) > 0 {
		return f.replies[len(f.replies)-1], nil
	}
	return "", errors.New("fake: no scripted reply")
}

func TestAnalyze_ParsesStrictJSON(t *testing.T) {
	model := &fakeModel{replies: []string{
		`{"scenario":"explanation","topic":"дроби","question":"что такое дробь?","understanding_level":4,"user_preferences":["космос"]}`,
	}}
	a := NewAnalyzer(model, 5)

	analysis, err := a.Analyze(context.Background(), nil, "что такое дробь?")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if analysis.Scenario != models.ScenarioExplanation {
		t.Fatalf("Scenario = %q, want explanation", analysis.Scenario)
	}
	if analysis.Topic == nil || *analysis.Topic != "дроби" {
		t.Fatalf("Topic = %v, want дроби", analysis.Topic)
	}
	if analysis.UnderstandingLevel != 4 {
		t.Fatalf("UnderstandingLevel = %d, want 4", analysis.UnderstandingLevel)
	}
	if len(analysis.UserPreferences) != 1 || analysis.UserPreferences[0] != "космос" {
		t.Fatalf("UserPreferences = %v, want [космос]", analysis.UserPreferences)
	}
}

func TestAnalyze_ToleratesCodeFences(t *testing.T) {
	model := &fakeModel{replies: []string{
		"```json\n{\"scenario\":\"discussion\",\"topic\":\"космос\",\"question\":null,\"understanding_level\":6}\n```",
	}}
	a := NewAnalyzer(model, 5)

	analysis, err := a.Analyze(context.Background(), nil, "расскажи про космос")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if analysis.Scenario != models.ScenarioDiscussion {
		t.Fatalf("Scenario = %q, want discussion", analysis.Scenario)
	}
	if analysis.Topic == nil || *analysis.Topic != "космос" {
		t.Fatalf("Topic = %v, want космос", analysis.Topic)
	}
}

func TestAnalyze_NormalizesFields(t *testing.T) {
	model := &fakeModel{replies: []string{
		`{"scenario":"QA","topic":"   ","question":"  почему небо синее?  ","understanding_level":42}`,
	}}
	a := NewAnalyzer(model, 5)

	analysis, err := a.Analyze(context.Background(), nil, "почему небо синее?")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if analysis.Scenario != models.ScenarioExplanation {
		t.Fatalf("Scenario = %q, want explanation for qa synonym", analysis.Scenario)
	}
	if analysis.Topic != nil {
		t.Fatalf("Topic = %v, want nil for blank", analysis.Topic)
	}
	if analysis.Question == nil || *analysis.Question != "почему небо синее?" {
		t.Fatalf("Question = %v, want trimmed", analysis.Question)
	}
	if analysis.UnderstandingLevel != 9 {
		t.Fatalf("UnderstandingLevel = %d, want clamped 9", analysis.UnderstandingLevel)
	}
}

func TestAnalyze_UnknownScenarioCoerced(t *testing.T) {
	model := &fakeModel{replies: []string{
		`{"scenario":"lecture","topic":null,"question":null,"understanding_level":5}`,
	}}
	a := NewAnalyzer(model, 5)

	analysis, err := a.Analyze(context.Background(), nil, "привет")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if analysis.Scenario != models.ScenarioUnknown {
		t.Fatalf("Scenario = %q, want unknown", analysis.Scenario)
	}
}

func TestAnalyze_UnparseableIsValidationError(t *testing.T) {
	model := &fakeModel{replies: []string{"I think the child is asking about fractions."}}
	a := NewAnalyzer(model, 5)

	_, err := a.Analyze(context.Background(), nil, "что такое дробь?")
	if !errors.Is(err, llm.ErrValidation) {
		t.Fatalf("Analyze() error = %v, want ErrValidation", err)
	}
	if !errors.Is(err, llm.ErrAnalysis) {
		t.Fatalf("validation error should also be an ErrAnalysis, got %v", err)
	}
}

func TestAnalyze_TransportFailureIsAnalysisError(t *testing.T) {
	model := &fakeModel{errs: []error{errors.New("connection refused")}}
	a := NewAnalyzer(model, 5)

	_, err := a.Analyze(context.Background(), nil, "привет")
	if !errors.Is(err, llm.ErrAnalysis) {
		t.Fatalf("Analyze() error = %v, want ErrAnalysis", err)
	}
	if errors.Is(err, llm.ErrValidation) {
		t.Fatalf("transport failure must not be a validation error: %v", err)
	}
}

func TestAnalyze_WindowsHistory(t *testing.T) {
	model := &fakeModel{replies: []string{
		`{"scenario":"discussion","topic":null,"question":null,"understanding_level":5}`,
	}}
	a := NewAnalyzer(model, 5)

	history := make([]*models.Message, 8)
	for i := range history {
		history[i] = &models.Message{Role: models.RoleUser, Content: "msg"}
	}

	if _, err := a.Analyze(context.Background(), history, "turn"); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	// system + 5 windowed history + current turn
	if got := len(model.last); got != 7 {
		t.Fatalf("len(messages) = %d, want 7", got)
	}
	if model.last[0].Role != schema.System {
		t.Fatalf("messages[0].Role = %v, want system", model.last[0].Role)
	}
	if model.last[len(model.last)-1].Content != "turn" {
		t.Fatalf("last message = %q, want the current turn", model.last[len(model.last)-1].Content)
	}
}
