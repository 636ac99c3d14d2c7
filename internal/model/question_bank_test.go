package model

import (
	"errors"
	"testing"

	"coder_edu_assessment/internal/apperr"
)

func choiceQuestion(points int) AssessmentQuestion {
	return AssessmentQuestion{
		Type:          SingleChoice,
		Text:          "Pick B",
		Options:       []string{"A", "B", "C"},
		CorrectAnswer: "B",
		Points:        points,
	}
}

func TestAddQuestionAssignsIDAndKeepsTotal(t *testing.T) {
	bank := NewQuestionBank("a1", nil)

	q1, err := bank.AddQuestion(choiceQuestion(2))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	q2, err := bank.AddQuestion(AssessmentQuestion{Type: ShortAnswer, Text: "Capital of France", CorrectAnswer: "Paris"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if q1.ID == "" || q2.ID == "" || q1.ID == q2.ID {
		t.Fatalf("expected distinct generated ids, got %q and %q", q1.ID, q2.ID)
	}
	if q1.AssessmentID != "a1" {
		t.Fatalf("expected assessment id to be set, got %q", q1.AssessmentID)
	}
	if q2.Points != DefaultQuestionPoints {
		t.Fatalf("expected default points, got %d", q2.Points)
	}
	if q2.Position <= q1.Position {
		t.Fatalf("expected appended question after first, got %d <= %d", q2.Position, q1.Position)
	}
	if got := bank.RecomputeTotalPoints(); got != 3 {
		t.Fatalf("expected total 3, got %d", got)
	}
	if c := bank.Changes(); len(c.Added) != 2 || len(c.Updated) != 0 || len(c.Removed) != 0 {
		t.Fatalf("unexpected changes %+v", c)
	}
}

func TestValidateQuestionNamesField(t *testing.T) {
	tests := []struct {
		name  string
		q     AssessmentQuestion
		field string
	}{
		{name: "unknown type", q: AssessmentQuestion{Type: "essay", Text: "x", Points: 1}, field: "type"},
		{name: "empty text", q: AssessmentQuestion{Type: FreeResponse, Text: "  ", Points: 1}, field: "text"},
		{name: "negative points", q: AssessmentQuestion{Type: FreeResponse, Text: "x", Points: -1}, field: "points"},
		{name: "one option", q: AssessmentQuestion{Type: SingleChoice, Text: "x", Options: []string{"A"}, CorrectAnswer: "A", Points: 1}, field: "options"},
		{name: "duplicate option", q: AssessmentQuestion{Type: SingleChoice, Text: "x", Options: []string{"A", "A"}, CorrectAnswer: "A", Points: 1}, field: "options"},
		{name: "answer not in options", q: AssessmentQuestion{Type: SingleChoice, Text: "x", Options: []string{"A", "B"}, CorrectAnswer: "C", Points: 1}, field: "correctAnswer"},
		{name: "short answer empty key", q: AssessmentQuestion{Type: ShortAnswer, Text: "x", CorrectAnswer: " ", Points: 1}, field: "correctAnswer"},
		{name: "short answer with options", q: AssessmentQuestion{Type: ShortAnswer, Text: "x", Options: []string{"A", "B"}, CorrectAnswer: "A", Points: 1}, field: "options"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateQuestion(tc.q)
			var appErr *apperr.Error
			if !errors.As(err, &appErr) {
				t.Fatalf("expected apperr, got %v", err)
			}
			if appErr.Kind != apperr.KindValidation || appErr.Field != tc.field {
				t.Fatalf("expected validation on %s, got %s on %s", tc.field, appErr.Kind, appErr.Field)
			}
		})
	}
}

func TestAddQuestionRejectsInvalidWithoutMutating(t *testing.T) {
	bank := NewQuestionBank("a1", nil)
	if _, err := bank.AddQuestion(AssessmentQuestion{Type: SingleChoice, Text: "x", Options: []string{"A"}}); err == nil {
		t.Fatalf("expected validation error")
	}
	if bank.Len() != 0 || bank.RecomputeTotalPoints() != 0 {
		t.Fatalf("bank must stay empty after rejected add")
	}
}

func TestUpdateAndRemoveTrackChanges(t *testing.T) {
	existing := choiceQuestion(2)
	existing.ID = "q-existing"
	existing.AssessmentID = "a1"
	bank := NewQuestionBank("a1", []AssessmentQuestion{existing})

	points := 5
	if _, err := bank.UpdateQuestion("q-existing", QuestionPatch{Points: &points}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := bank.RecomputeTotalPoints(); got != 5 {
		t.Fatalf("expected total 5, got %d", got)
	}

	added, _ := bank.AddQuestion(AssessmentQuestion{Type: FreeResponse, Text: "Explain"})
	if err := bank.RemoveQuestion(added.ID); err != nil {
		t.Fatalf("remove added: %v", err)
	}
	if err := bank.RemoveQuestion("q-existing"); err != nil {
		t.Fatalf("remove existing: %v", err)
	}

	c := bank.Changes()
	if len(c.Added) != 0 || len(c.Updated) != 0 {
		t.Fatalf("expected no added/updated after removals, got %+v", c)
	}
	if len(c.Removed) != 1 || c.Removed[0] != "q-existing" {
		t.Fatalf("expected q-existing removed, got %v", c.Removed)
	}
	if bank.RecomputeTotalPoints() != 0 {
		t.Fatalf("expected empty bank total 0")
	}
	if err := bank.RemoveQuestion("missing"); !errors.Is(err, apperr.NotFound("question")) {
		t.Fatalf("expected question not found, got %v", err)
	}
}

func TestUpdateRevalidates(t *testing.T) {
	existing := choiceQuestion(1)
	existing.ID = "q1"
	bank := NewQuestionBank("a1", []AssessmentQuestion{existing})

	wrong := "Z"
	if _, err := bank.UpdateQuestion("q1", QuestionPatch{CorrectAnswer: &wrong}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	q, _ := bank.Lookup("q1")
	if q.CorrectAnswer != "B" {
		t.Fatalf("rejected update must not change the question, got %q", q.CorrectAnswer)
	}
}

func TestReorder(t *testing.T) {
	a := choiceQuestion(1)
	a.ID, a.Position = "qa", 0
	b := choiceQuestion(1)
	b.ID, b.Position = "qb", 1
	bank := NewQuestionBank("a1", []AssessmentQuestion{b, a})

	if got := bank.Questions(); got[0].ID != "qa" {
		t.Fatalf("expected bank sorted by position, got %s first", got[0].ID)
	}
	if err := bank.Reorder([]string{"qb", "qa"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	got := bank.Questions()
	if got[0].ID != "qb" || got[0].Position != 0 || got[1].Position != 1 {
		t.Fatalf("unexpected order %+v", got)
	}
	if len(bank.Changes().Updated) != 2 {
		t.Fatalf("expected both questions marked updated")
	}
	if err := bank.Reorder([]string{"qa"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for partial order, got %v", err)
	}
}
