package service

import (
	"coder_edu_assessment/internal/apperr"
	"coder_edu_assessment/internal/model"
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	FeedbackCorrect       = "Correct!"
	FeedbackPendingReview = "Pending manual review"
)

// Evaluation 单题评分结果；Correct 为 nil 表示无法自动评分
type Evaluation struct {
	Correct       *bool
	PointsAwarded int
	Feedback      string
}

// AnswerEvaluator 每种题型一个实现，纯函数，无 I/O
type AnswerEvaluator interface {
	Evaluate(q model.AssessmentQuestion, raw json.RawMessage) Evaluation
}

type singleChoiceEvaluator struct{}

type shortAnswerEvaluator struct{}

type freeResponseEvaluator struct{}

var evaluators = map[model.QuestionType]AnswerEvaluator{
	model.SingleChoice: singleChoiceEvaluator{},
	model.ShortAnswer:  shortAnswerEvaluator{},
	model.FreeResponse: freeResponseEvaluator{},
}

// EvaluatorFor 题型集合是封闭的，未知题型视为数据错误
func EvaluatorFor(t model.QuestionType) (AnswerEvaluator, error) {
	e, ok := evaluators[t]
	if !ok {
		return nil, apperr.Validation("type", "no evaluator for question type "+string(t))
	}
	return e, nil
}

func (singleChoiceEvaluator) Evaluate(q model.AssessmentQuestion, raw json.RawMessage) Evaluation {
	answer, ok := decodeString(raw)
	return judged(q, ok && answer == q.CorrectAnswer)
}

func (shortAnswerEvaluator) Evaluate(q model.AssessmentQuestion, raw json.RawMessage) Evaluation {
	answer, ok := decodeString(raw)
	return judged(q, ok && normalizeShortAnswer(answer) == normalizeShortAnswer(q.CorrectAnswer))
}

func (freeResponseEvaluator) Evaluate(model.AssessmentQuestion, json.RawMessage) Evaluation {
	return Evaluation{Correct: nil, PointsAwarded: 0, Feedback: FeedbackPendingReview}
}

func judged(q model.AssessmentQuestion, correct bool) Evaluation {
	if correct {
		return Evaluation{Correct: boolPtr(true), PointsAwarded: q.Points, Feedback: FeedbackCorrect}
	}
	return Evaluation{Correct: boolPtr(false), PointsAwarded: 0, Feedback: q.Explanation}
}

// decodeString 只有 JSON 字符串才参与比较，数字、数组等一律判错
func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// cases.Fold 无状态，可并发使用
var folder = cases.Fold()

// normalizeShortAnswer 去首尾空白 + NFC + Unicode case fold
func normalizeShortAnswer(s string) string {
	return folder.String(norm.NFC.String(strings.TrimSpace(s)))
}

func boolPtr(b bool) *bool {
	return &b
}
