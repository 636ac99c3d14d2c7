package model

import (
	"fmt"
	"sort"
	"strings"

	"coder_edu_assessment/internal/apperr"
)

// QuestionPatch 题目的部分更新，nil 字段保持不变
type QuestionPatch struct {
	Type          *QuestionType
	Text          *string
	Options       *[]string
	CorrectAnswer *string
	Explanation   *string
	Points        *int
	Difficulty    *string
}

// BankChanges 一次编辑后需要落库的差异
type BankChanges struct {
	Added   []AssessmentQuestion
	Updated []AssessmentQuestion
	Removed []string
}

func (c BankChanges) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// QuestionBank 某个测评的有序题库。所有结构性修改都经过这里，
// 调用方必须在同一事务里持久化 Changes() 和 RecomputeTotalPoints()。
type QuestionBank struct {
	assessmentID string
	questions    []AssessmentQuestion
	added        map[string]struct{}
	updated      map[string]struct{}
	removed      []string
}

func NewQuestionBank(assessmentID string, questions []AssessmentQuestion) *QuestionBank {
	qs := make([]AssessmentQuestion, len(questions))
	copy(qs, questions)
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Position != qs[j].Position {
			return qs[i].Position < qs[j].Position
		}
		return qs[i].CreatedAt.Before(qs[j].CreatedAt)
	})
	return &QuestionBank{
		assessmentID: assessmentID,
		questions:    qs,
		added:        make(map[string]struct{}),
		updated:      make(map[string]struct{}),
	}
}

func (b *QuestionBank) AssessmentID() string {
	return b.assessmentID
}

func (b *QuestionBank) Len() int {
	return len(b.questions)
}

// Questions 返回按顺序排列的副本
func (b *QuestionBank) Questions() []AssessmentQuestion {
	out := make([]AssessmentQuestion, len(b.questions))
	copy(out, b.questions)
	return out
}

func (b *QuestionBank) Lookup(id string) (AssessmentQuestion, bool) {
	if i := b.indexOf(id); i >= 0 {
		return b.questions[i], true
	}
	return AssessmentQuestion{}, false
}

func (b *QuestionBank) RecomputeTotalPoints() int {
	total := 0
	for _, q := range b.questions {
		total += q.Points
	}
	return total
}

func (b *QuestionBank) AddQuestion(q AssessmentQuestion) (AssessmentQuestion, error) {
	if q.Points == 0 {
		q.Points = DefaultQuestionPoints
	}
	if err := ValidateQuestion(q); err != nil {
		return AssessmentQuestion{}, err
	}

	q.ID = GenerateUUID()
	q.AssessmentID = b.assessmentID
	q.Position = b.nextPosition()
	b.questions = append(b.questions, q)
	b.added[q.ID] = struct{}{}
	return q, nil
}

func (b *QuestionBank) UpdateQuestion(id string, patch QuestionPatch) (AssessmentQuestion, error) {
	i := b.indexOf(id)
	if i < 0 {
		return AssessmentQuestion{}, apperr.NotFound("question")
	}

	q := b.questions[i]
	if patch.Type != nil {
		q.Type = *patch.Type
	}
	if patch.Text != nil {
		q.Text = *patch.Text
	}
	if patch.Options != nil {
		q.Options = append([]string(nil), (*patch.Options)...)
	}
	if patch.CorrectAnswer != nil {
		q.CorrectAnswer = *patch.CorrectAnswer
	}
	if patch.Explanation != nil {
		q.Explanation = *patch.Explanation
	}
	if patch.Points != nil {
		q.Points = *patch.Points
		if q.Points == 0 {
			q.Points = DefaultQuestionPoints
		}
	}
	if patch.Difficulty != nil {
		q.Difficulty = *patch.Difficulty
	}
	if err := ValidateQuestion(q); err != nil {
		return AssessmentQuestion{}, err
	}

	b.questions[i] = q
	b.markUpdated(q.ID)
	return q, nil
}

func (b *QuestionBank) RemoveQuestion(id string) error {
	i := b.indexOf(id)
	if i < 0 {
		return apperr.NotFound("question")
	}
	b.questions = append(b.questions[:i], b.questions[i+1:]...)

	if _, ok := b.added[id]; ok {
		delete(b.added, id)
		return nil
	}
	delete(b.updated, id)
	b.removed = append(b.removed, id)
	return nil
}

// Reorder 按给定 ID 顺序重排，必须恰好覆盖当前全部题目
func (b *QuestionBank) Reorder(ids []string) error {
	if len(ids) != len(b.questions) {
		return apperr.Validation("questionIds", fmt.Sprintf("expected %d ids, got %d", len(b.questions), len(ids)))
	}
	seen := make(map[string]struct{}, len(ids))
	reordered := make([]AssessmentQuestion, 0, len(ids))
	for pos, id := range ids {
		if _, dup := seen[id]; dup {
			return apperr.Validation("questionIds", "duplicate id "+id)
		}
		seen[id] = struct{}{}
		i := b.indexOf(id)
		if i < 0 {
			return apperr.NotFound("question")
		}
		q := b.questions[i]
		if q.Position != pos {
			q.Position = pos
			b.markUpdated(q.ID)
		}
		reordered = append(reordered, q)
	}
	b.questions = reordered
	return nil
}

func (b *QuestionBank) Changes() BankChanges {
	var c BankChanges
	for _, q := range b.questions {
		if _, ok := b.added[q.ID]; ok {
			c.Added = append(c.Added, q)
			continue
		}
		if _, ok := b.updated[q.ID]; ok {
			c.Updated = append(c.Updated, q)
		}
	}
	c.Removed = append(c.Removed, b.removed...)
	return c
}

func (b *QuestionBank) indexOf(id string) int {
	for i := range b.questions {
		if b.questions[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *QuestionBank) nextPosition() int {
	next := 0
	for _, q := range b.questions {
		if q.Position >= next {
			next = q.Position + 1
		}
	}
	return next
}

func (b *QuestionBank) markUpdated(id string) {
	if _, ok := b.added[id]; ok {
		return
	}
	b.updated[id] = struct{}{}
}

// ValidateQuestion 按题型校验题目结构，返回指明字段的 ValidationError
func ValidateQuestion(q AssessmentQuestion) error {
	if !q.Type.Valid() {
		return apperr.Validation("type", "must be one of single_choice, short_answer, free_response")
	}
	if strings.TrimSpace(q.Text) == "" {
		return apperr.Validation("text", "must not be empty")
	}
	if q.Points <= 0 {
		return apperr.Validation("points", "must be a positive integer")
	}

	switch q.Type {
	case SingleChoice:
		if len(q.Options) < 2 {
			return apperr.Validation("options", "single_choice requires at least 2 options")
		}
		seen := make(map[string]struct{}, len(q.Options))
		for _, o := range q.Options {
			if strings.TrimSpace(o) == "" {
				return apperr.Validation("options", "must not contain empty options")
			}
			if _, dup := seen[o]; dup {
				return apperr.Validation("options", "duplicate option "+o)
			}
			seen[o] = struct{}{}
		}
		if _, ok := seen[q.CorrectAnswer]; !ok {
			return apperr.Validation("correctAnswer", "must be one of options")
		}
	case ShortAnswer:
		if len(q.Options) > 0 {
			return apperr.Validation("options", "only allowed for single_choice")
		}
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return apperr.Validation("correctAnswer", "must not be empty")
		}
	case FreeResponse:
		if len(q.Options) > 0 {
			return apperr.Validation("options", "only allowed for single_choice")
		}
	}
	return nil
}
