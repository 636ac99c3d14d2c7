package service

import (
	"coder_edu_assessment/internal/apperr"
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/pkg/logger"
	"coder_edu_assessment/pkg/monitoring"
	"coder_edu_assessment/pkg/tracing"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// AssessmentStore 测评及提交的持久化，由 repository.AssessmentRepository 实现
type AssessmentStore interface {
	AttemptCounter
	SubmissionStore

	CreateAssessment(ctx context.Context, a *model.Assessment) error
	FindAssessmentByID(ctx context.Context, id string) (*model.Assessment, error)
	LoadSnapshot(ctx context.Context, id string) (*model.Assessment, error)
	ListAssessments(ctx context.Context, status model.AssessmentStatus, page, limit int) ([]model.Assessment, int64, error)
	UpdateAssessment(ctx context.Context, id string, mutate func(a *model.Assessment) error) (*model.Assessment, error)
	MutateQuestionBank(ctx context.Context, id string, mutate func(a *model.Assessment, bank *model.QuestionBank) error) (*model.Assessment, error)
	FindSubmissionByID(ctx context.Context, id string) (*model.AssessmentSubmission, error)
	ListSubmissions(ctx context.Context, assessmentID string, studentID uint, page, limit int) ([]model.AssessmentSubmission, int64, error)
	MarkReviewed(ctx context.Context, id string, reviewerID uint, at time.Time) error
}

// Actor 当前请求的身份，来自 JWT
type Actor struct {
	UserID uint
	Role   model.UserRole
}

type AssessmentService struct {
	store      AssessmentStore
	ledger     *AttemptLedger
	aggregator ScoreAggregator
	recorder   *SubmissionRecorder
	now        func() time.Time
}

func NewAssessmentService(store AssessmentStore, tracker ProgressTracker) *AssessmentService {
	return &AssessmentService{
		store:    store,
		ledger:   NewAttemptLedger(store),
		recorder: NewSubmissionRecorder(store, tracker),
		now:      time.Now,
	}
}

type AnswerInput struct {
	QuestionID string          `json:"questionId"`
	Answer     json.RawMessage `json:"answer" swaggertype:"object"`
}

type SubmitRequest struct {
	Answers []AnswerInput `json:"answers"`
}

type SubmitResult struct {
	Submission *model.AssessmentSubmission `json:"submission"`
	TotalScore int                         `json:"totalScore"`
	MaxScore   int                         `json:"maxScore"`
}

// Submit 校验顺序：答案格式 -> 测评存在 -> 已发布 -> 次数上限 -> 题目归属（针对读到的快照）
func (s *AssessmentService) Submit(ctx context.Context, assessmentID string, studentID uint, answers []AnswerInput) (result *SubmitResult, err error) {
	ctx, span := tracing.Start(ctx, "AssessmentService.Submit",
		attribute.String("assessment.id", assessmentID),
		attribute.Int64("student.id", int64(studentID)),
	)
	defer func() {
		s.observeSubmit(result, err)
		tracing.End(span, err)
	}()

	if err := validateAnswers(answers); err != nil {
		return nil, err
	}

	snapshot, err := s.store.LoadSnapshot(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if !snapshot.IsPublished() {
		return nil, apperr.Unpublished(snapshot.ID)
	}

	err = s.ledger.Guard(snapshot.ID, studentID, func() error {
		if err := s.ledger.CanSubmit(ctx, snapshot, studentID); err != nil {
			return err
		}

		sub, err := s.grade(snapshot, studentID, answers)
		if err != nil {
			return err
		}
		if err := s.recorder.Record(ctx, snapshot, sub); err != nil {
			return err
		}

		result = &SubmitResult{
			Submission: sub,
			TotalScore: sub.Score,
			MaxScore:   sub.MaxScore,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Notify(ctx, result.Submission)

	logger.Log.Info("assessment submitted",
		zap.String("assessmentId", snapshot.ID),
		zap.String("submissionId", result.Submission.ID),
		zap.Uint("studentId", studentID),
		zap.Int("score", result.TotalScore),
		zap.Int("maxScore", result.MaxScore))
	return result, nil
}

// grade 对快照评分；任何一个 questionId 不在快照中都整体拒绝
func (s *AssessmentService) grade(snapshot *model.Assessment, studentID uint, answers []AnswerInput) (*model.AssessmentSubmission, error) {
	bank := snapshot.Bank()

	records := make([]model.AnswerRecord, 0, len(answers))
	for i, in := range answers {
		q, ok := bank.Lookup(in.QuestionID)
		if !ok {
			return nil, apperr.NotFound("question")
		}
		evaluator, err := EvaluatorFor(q.Type)
		if err != nil {
			// 题型在写入时已校验，读到未知题型说明存储数据损坏
			return nil, apperr.Persistence("grade question", fmt.Errorf("question %s has unknown type %q", q.ID, q.Type))
		}
		ev := evaluator.Evaluate(q, in.Answer)
		records = append(records, model.AnswerRecord{
			QuestionID:    q.ID,
			RawAnswer:     datatypes.JSON(in.Answer),
			Correct:       ev.Correct,
			PointsAwarded: ev.PointsAwarded,
			Feedback:      ev.Feedback,
			Position:      i,
		})
	}

	sub := &model.AssessmentSubmission{
		AssessmentID: snapshot.ID,
		StudentID:    studentID,
		Status:       model.SubmissionSubmitted,
		SubmittedAt:  s.now(),
		Answers:      records,
	}
	sub.Score = s.aggregator.Aggregate(records)
	sub.MaxScore = s.aggregator.MaxScore(snapshot, bank)

	if !sub.Status.CanTransitionTo(model.SubmissionGraded) {
		return nil, fmt.Errorf("submission in state %s cannot be graded", sub.Status)
	}
	sub.Status = model.SubmissionGraded
	return sub, nil
}

func validateAnswers(answers []AnswerInput) error {
	if len(answers) == 0 {
		return apperr.Validation("answers", "must not be empty")
	}
	seen := make(map[string]struct{}, len(answers))
	for i, a := range answers {
		if strings.TrimSpace(a.QuestionID) == "" {
			return apperr.Validation(fmt.Sprintf("answers[%d].questionId", i), "is required")
		}
		if len(a.Answer) == 0 || string(a.Answer) == "null" {
			return apperr.Validation(fmt.Sprintf("answers[%d].answer", i), "is required")
		}
		if _, dup := seen[a.QuestionID]; dup {
			return apperr.Validation(fmt.Sprintf("answers[%d].questionId", i), "duplicate answer for question "+a.QuestionID)
		}
		seen[a.QuestionID] = struct{}{}
	}
	return nil
}

func (s *AssessmentService) observeSubmit(result *SubmitResult, err error) {
	switch {
	case err == nil && result != nil:
		monitoring.ObserveSubmission(monitoring.OutcomeGraded, result.TotalScore, result.MaxScore)
	case errors.Is(err, apperr.ErrAttemptLimit):
		monitoring.ObserveSubmission(monitoring.OutcomeAttemptLimit, 0, 0)
	case apperr.KindOf(err) == apperr.KindPersistence:
		monitoring.ObserveSubmission(monitoring.OutcomeFailed, 0, 0)
	default:
		monitoring.ObserveSubmission(monitoring.OutcomeRejected, 0, 0)
	}
}

// AttemptInfo 学生查询自己的次数使用情况
func (s *AssessmentService) AttemptInfo(ctx context.Context, assessmentID string, studentID uint) (*AttemptInfo, error) {
	a, err := s.store.FindAssessmentByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Info(ctx, a, studentID)
}

func (s *AssessmentService) ListMySubmissions(ctx context.Context, assessmentID string, studentID uint, page, limit int) ([]model.AssessmentSubmission, int64, error) {
	if _, err := s.store.FindAssessmentByID(ctx, assessmentID); err != nil {
		return nil, 0, err
	}
	return s.store.ListSubmissions(ctx, assessmentID, studentID, page, limit)
}
