package service

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/pochemuchka/pochemuchka/pkg/db"
	"github.com/pochemuchka/pochemuchka/pkg/models"
)

func strPtr(s string) *string { return &s }

func TestMerge_LevelAlwaysClamped(t *testing.T) {
	for _, tc := range []struct {
		in   int
		want int
	}{
		{-3, 0}, {0, 0}, {5, 5}, {9, 9}, {12, 9},
	} {
		session := db.NewSession("chat")
		dynamic := Merge(session, models.Analysis{
			Scenario:           models.ScenarioDiscussion,
			UnderstandingLevel: tc.in,
		}, nil)
		if session.UnderstandingLevel != tc.want {
			t.Fatalf("UnderstandingLevel = %d, want %d (input %d)", session.UnderstandingLevel, tc.want, tc.in)
		}
		if dynamic.UnderstandingLevel != tc.want {
			t.Fatalf("dynamic.UnderstandingLevel = %d, want %d (input %d)", dynamic.UnderstandingLevel, tc.want, tc.in)
		}
	}
}

func TestMerge_TopicPersistsWhenAnalyzerReturnsNull(t *testing.T) {
	session := db.NewSession("chat")
	session.Topic = strPtr("дроби")
	session.Question = strPtr("что такое дробь?")

	Merge(session, models.Analysis{
		Scenario:           models.ScenarioDiscussion,
		Topic:              nil,
		Question:           nil,
		UnderstandingLevel: 6,
	}, nil)

	if session.Topic == nil || *session.Topic != "дроби" {
		t.Fatalf("Topic = %v, want дроби", session.Topic)
	}
	if session.Question == nil || *session.Question != "что такое дробь?" {
		t.Fatalf("Question = %v, want retained", session.Question)
	}
	if session.IsNewTopic {
		t.Fatalf("IsNewTopic = true, want false")
	}
}

func TestMerge_NewTopicImpliesNewQuestion(t *testing.T) {
	session := db.NewSession("chat")
	session.Topic = strPtr("дроби")
	session.Question = strPtr("что такое дробь?")

	Merge(session, models.Analysis{
		Scenario:           models.ScenarioDiscussion,
		Topic:              strPtr("динозавры"),
		Question:           nil,
		UnderstandingLevel: 5,
	}, nil)

	if !session.IsNewTopic {
		t.Fatalf("IsNewTopic = false, want true")
	}
	if !session.IsNewQuestion {
		t.Fatalf("IsNewQuestion = false, want true when topic changed")
	}
}

func TestMerge_SameTopicChangedQuestion(t *testing.T) {
	session := db.NewSession("chat")
	session.Scenario = models.ScenarioDiscussion
	session.Topic = strPtr("дроби")
	session.Question = strPtr("что такое дробь?")
	session.UnderstandingLevel = 4

	dynamic := Merge(session, models.Analysis{
		Scenario:           models.ScenarioExplanation,
		Topic:              strPtr("дроби"),
		Question:           strPtr("что такое знаменатель"),
		UnderstandingLevel: 4,
	}, nil)

	if dynamic.IsNewTopic {
		t.Fatalf("IsNewTopic = true, want false for same topic")
	}
	if !dynamic.IsNewQuestion {
		t.Fatalf("IsNewQuestion = false, want true when only the question changed")
	}
	if session.Topic == nil || *session.Topic != "дроби" {
		t.Fatalf("Topic = %v, want дроби unchanged", session.Topic)
	}
	if session.PreviousTopic == nil || *session.PreviousTopic != "дроби" {
		t.Fatalf("PreviousTopic = %v, want дроби", session.PreviousTopic)
	}
	if session.Question == nil || *session.Question != "что такое знаменатель" {
		t.Fatalf("Question = %v, want что такое знаменатель", session.Question)
	}
	if session.Scenario != models.ScenarioExplanation {
		t.Fatalf("Scenario = %q, want explanation", session.Scenario)
	}
}

func TestMerge_TopicDistinctnessIsCaseInsensitive(t *testing.T) {
	session := db.NewSession("chat")
	session.Topic = strPtr("Дроби")

	Merge(session, models.Analysis{
		Scenario:           models.ScenarioDiscussion,
		Topic:              strPtr("дроби"),
		UnderstandingLevel: 5,
	}, nil)

	if session.IsNewTopic {
		t.Fatalf("IsNewTopic = true, want false for case-only difference")
	}
}

func TestMerge_SnapshotsTakenEveryTurn(t *testing.T) {
	session := db.NewSession("chat")
	session.Topic = strPtr("дроби")
	session.UnderstandingLevel = 4

	Merge(session, models.Analysis{
		Scenario:           models.ScenarioExplanation,
		Topic:              strPtr("знаменатель"),
		Question:           strPtr("что такое знаменатель?"),
		UnderstandingLevel: 3,
	}, nil)

	if session.PreviousTopic == nil || *session.PreviousTopic != "дроби" {
		t.Fatalf("PreviousTopic = %v, want дроби", session.PreviousTopic)
	}
	if session.PreviousUnderstandingLevel != 4 {
		t.Fatalf("PreviousUnderstandingLevel = %d, want 4", session.PreviousUnderstandingLevel)
	}
	if session.Topic == nil || *session.Topic != "знаменатель" {
		t.Fatalf("Topic = %v, want знаменатель", session.Topic)
	}
	if session.UnderstandingLevel != 3 {
		t.Fatalf("UnderstandingLevel = %d, want 3", session.UnderstandingLevel)
	}
	if session.Scenario != models.ScenarioExplanation {
		t.Fatalf("Scenario = %q, want %q", session.Scenario, models.ScenarioExplanation)
	}
	if !session.IsNewTopic || !session.IsNewQuestion {
		t.Fatalf("IsNewTopic/IsNewQuestion = %v/%v, want true/true", session.IsNewTopic, session.IsNewQuestion)
	}
}

func TestMerge_AnalysisFailureLeavesSessionUntouched(t *testing.T) {
	session := db.NewSession("chat")
	session.Scenario = models.ScenarioDiscussion
	session.Topic = strPtr("космос")
	session.UnderstandingLevel = 7
	dynamic := Merge(session, models.Analysis{}, errors.New("model timeout"))

	if session.Scenario != models.ScenarioDiscussion {
		t.Fatalf("session.Scenario = %q, want untouched discussion", session.Scenario)
	}
	if session.Topic == nil || *session.Topic != "космос" {
		t.Fatalf("session.Topic = %v, want untouched космос", session.Topic)
	}
	if session.UnderstandingLevel != 7 {
		t.Fatalf("session.UnderstandingLevel = %d, want untouched 7", session.UnderstandingLevel)
	}
	if session.PreviousTopic != nil {
		t.Fatalf("session.PreviousTopic = %v, want untouched nil", session.PreviousTopic)
	}
	if !dynamic.Degraded {
		t.Fatalf("dynamic.Degraded = false, want true")
	}
	if dynamic.Scenario != models.ScenarioUnknown {
		t.Fatalf("dynamic.Scenario = %q, want unknown", dynamic.Scenario)
	}
	if dynamic.Topic == nil || *dynamic.Topic != "космос" {
		t.Fatalf("dynamic.Topic = %v, want prior topic", dynamic.Topic)
	}
	if dynamic.UnderstandingLevel != 7 {
		t.Fatalf("dynamic.UnderstandingLevel = %d, want prior 7", dynamic.UnderstandingLevel)
	}
}

func TestMerge_PreferencesUnionDeduplicates(t *testing.T) {
	session := db.NewSession("chat")
	session.UserPreferences = db.StringList{"динозавры", "космос"}

	Merge(session, models.Analysis{
		Scenario:           models.ScenarioDiscussion,
		UnderstandingLevel: 5,
		UserPreferences:    []string{"Космос", " роботы ", "", "динозавры"},
	}, nil)

	want := []string{"динозавры", "космос", "роботы"}
	if len(session.UserPreferences) != len(want) {
		t.Fatalf("UserPreferences = %v, want %v", session.UserPreferences, want)
	}
	for i, p := range want {
		if session.UserPreferences[i] != p {
			t.Fatalf("UserPreferences[%d] = %q, want %q", i, session.UserPreferences[i], p)
		}
	}
}

func TestMerge_WrapUpRecommendedAtTopLevel(t *testing.T) {
	session := db.NewSession("chat")

	dynamic := Merge(session, models.Analysis{
		Scenario:           models.ScenarioExplanation,
		UnderstandingLevel: 9,
	}, nil)

	if !dynamic.RecommendWrapUp {
		t.Fatalf("RecommendWrapUp = false, want true at level 9")
	}

	dynamic = Merge(session, models.Analysis{
		Scenario:           models.ScenarioExplanation,
		UnderstandingLevel: 8,
	}, nil)
	if dynamic.RecommendWrapUp {
		t.Fatalf("RecommendWrapUp = true, want false at level 8")
	}
}

func TestMerge_InvalidScenarioCoercesToUnknown(t *testing.T) {
	session := db.NewSession("chat")

	Merge(session, models.Analysis{
		Scenario:           "lecture",
		UnderstandingLevel: 5,
	}, nil)

	if session.Scenario != models.ScenarioUnknown {
		t.Fatalf("Scenario = %q, want unknown", session.Scenario)
	}
}
