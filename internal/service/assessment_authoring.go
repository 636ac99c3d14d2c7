package service

import (
	"coder_edu_assessment/internal/apperr"
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/pkg/logger"
	"context"
	"strings"

	"go.uber.org/zap"
)

type QuestionInput struct {
	Type          model.QuestionType `json:"type"`
	Text          string             `json:"text"`
	Options       []string           `json:"options"`
	CorrectAnswer string             `json:"correctAnswer"`
	Explanation   string             `json:"explanation"`
	Points        int                `json:"points"`
	Difficulty    string             `json:"difficulty"`
}

func (in QuestionInput) toQuestion() model.AssessmentQuestion {
	return model.AssessmentQuestion{
		Type:          in.Type,
		Text:          in.Text,
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Explanation:   in.Explanation,
		Points:        in.Points,
		Difficulty:    in.Difficulty,
	}
}

type CreateAssessmentRequest struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Topic           string          `json:"topic"`
	Difficulty      string          `json:"difficulty"`
	TimeLimit       *int            `json:"timeLimit"`
	AttemptsAllowed int             `json:"attemptsAllowed"`
	Questions       []QuestionInput `json:"questions"`
}

// UpdateAssessmentRequest nil 字段保持不变
type UpdateAssessmentRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Topic           *string `json:"topic"`
	Difficulty      *string `json:"difficulty"`
	TimeLimit       *int    `json:"timeLimit"`
	AttemptsAllowed *int    `json:"attemptsAllowed"`
}

type UpdateQuestionRequest struct {
	Type          *model.QuestionType `json:"type"`
	Text          *string             `json:"text"`
	Options       *[]string           `json:"options"`
	CorrectAnswer *string             `json:"correctAnswer"`
	Explanation   *string             `json:"explanation"`
	Points        *int                `json:"points"`
	Difficulty    *string             `json:"difficulty"`
}

func (r UpdateQuestionRequest) patch() model.QuestionPatch {
	return model.QuestionPatch{
		Type:          r.Type,
		Text:          r.Text,
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		Explanation:   r.Explanation,
		Points:        r.Points,
		Difficulty:    r.Difficulty,
	}
}

type ReorderQuestionsRequest struct {
	QuestionIDs []string `json:"questionIds"`
}

// StudentQuestion 学生视图，不含答案和解析
type StudentQuestion struct {
	ID         string             `json:"id"`
	Type       model.QuestionType `json:"type"`
	Text       string             `json:"text"`
	Options    []string           `json:"options,omitempty"`
	Points     int                `json:"points"`
	Difficulty string             `json:"difficulty,omitempty"`
	Position   int                `json:"position"`
}

type StudentAssessmentView struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Topic           string            `json:"topic"`
	Difficulty      string            `json:"difficulty"`
	TotalPoints     int               `json:"totalPoints"`
	TimeLimit       *int              `json:"timeLimit,omitempty"`
	AttemptsAllowed int               `json:"attemptsAllowed"`
	Questions       []StudentQuestion `json:"questions"`
}

// authorize 题库和测评只能由作者本人或管理员修改
func authorize(a *model.Assessment, actor Actor) error {
	if actor.Role == model.Admin {
		return nil
	}
	if actor.Role.CanAuthor() && a.CreatorID == actor.UserID {
		return nil
	}
	return apperr.Permission("only the assessment author or an admin may modify this assessment")
}

func ensureEditable(a *model.Assessment) error {
	if a.Status == model.AssessmentArchived {
		return apperr.Validation("status", "archived assessments are read-only")
	}
	return nil
}

func validateMetadata(title string, timeLimit *int, attemptsAllowed int) error {
	if strings.TrimSpace(title) == "" {
		return apperr.Validation("title", "must not be empty")
	}
	if timeLimit != nil && *timeLimit <= 0 {
		return apperr.Validation("timeLimit", "must be a positive number of minutes")
	}
	if attemptsAllowed <= 0 {
		return apperr.Validation("attemptsAllowed", "must be a positive integer")
	}
	return nil
}

func (s *AssessmentService) CreateAssessment(ctx context.Context, actor Actor, req CreateAssessmentRequest) (*model.Assessment, error) {
	if !actor.Role.CanAuthor() {
		return nil, apperr.Permission("only teachers and admins may create assessments")
	}
	if req.AttemptsAllowed == 0 {
		req.AttemptsAllowed = model.DefaultAttemptsAllowed
	}
	if err := validateMetadata(req.Title, req.TimeLimit, req.AttemptsAllowed); err != nil {
		return nil, err
	}

	a := &model.Assessment{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Topic:           req.Topic,
		Difficulty:      req.Difficulty,
		TimeLimit:       req.TimeLimit,
		AttemptsAllowed: req.AttemptsAllowed,
		Status:          model.AssessmentDraft,
		CreatorID:       actor.UserID,
	}
	a.ID = model.GenerateUUID()

	bank := model.NewQuestionBank(a.ID, nil)
	for _, in := range req.Questions {
		if _, err := bank.AddQuestion(in.toQuestion()); err != nil {
			return nil, err
		}
	}
	a.Questions = bank.Questions()
	a.TotalPoints = bank.RecomputeTotalPoints()

	if err := s.store.CreateAssessment(ctx, a); err != nil {
		return nil, err
	}
	logger.Log.Info("assessment created",
		zap.String("assessmentId", a.ID),
		zap.Uint("creatorId", actor.UserID),
		zap.Int("questions", len(a.Questions)))
	return a, nil
}

func (s *AssessmentService) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	return s.store.LoadSnapshot(ctx, id)
}

func (s *AssessmentService) ListAssessments(ctx context.Context, status model.AssessmentStatus, page, limit int) ([]model.Assessment, int64, error) {
	if status != "" && status != model.AssessmentDraft && status != model.AssessmentPublished && status != model.AssessmentArchived {
		return nil, 0, apperr.Validation("status", "must be one of draft, published, archived")
	}
	return s.store.ListAssessments(ctx, status, page, limit)
}

// GetStudentView 仅对已发布的测评开放，隐藏答案和解析
func (s *AssessmentService) GetStudentView(ctx context.Context, id string) (*StudentAssessmentView, error) {
	a, err := s.store.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsPublished() {
		return nil, apperr.Unpublished(a.ID)
	}

	view := &StudentAssessmentView{
		ID:              a.ID,
		Title:           a.Title,
		Description:     a.Description,
		Topic:           a.Topic,
		Difficulty:      a.Difficulty,
		TotalPoints:     a.TotalPoints,
		TimeLimit:       a.TimeLimit,
		AttemptsAllowed: a.AttemptsAllowed,
		Questions:       make([]StudentQuestion, 0, len(a.Questions)),
	}
	for _, q := range a.Bank().Questions() {
		view.Questions = append(view.Questions, StudentQuestion{
			ID:         q.ID,
			Type:       q.Type,
			Text:       q.Text,
			Options:    q.Options,
			Points:     q.Points,
			Difficulty: q.Difficulty,
			Position:   q.Position,
		})
	}
	return view, nil
}

func (s *AssessmentService) UpdateAssessment(ctx context.Context, actor Actor, id string, req UpdateAssessmentRequest) (*model.Assessment, error) {
	return s.store.UpdateAssessment(ctx, id, func(a *model.Assessment) error {
		if err := authorize(a, actor); err != nil {
			return err
		}
		if err := ensureEditable(a); err != nil {
			return err
		}
		if req.Title != nil {
			a.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			a.Description = *req.Description
		}
		if req.Topic != nil {
			a.Topic = *req.Topic
		}
		if req.Difficulty != nil {
			a.Difficulty = *req.Difficulty
		}
		if req.TimeLimit != nil {
			a.TimeLimit = req.TimeLimit
		}
		if req.AttemptsAllowed != nil {
			a.AttemptsAllowed = *req.AttemptsAllowed
		}
		return validateMetadata(a.Title, a.TimeLimit, a.AttemptsAllowed)
	})
}

// Publish 没有题目的测评不能发布（totalPoints 为 0 等价于题库为空）
func (s *AssessmentService) Publish(ctx context.Context, actor Actor, id string) (*model.Assessment, error) {
	return s.transition(ctx, actor, id, model.AssessmentPublished, func(a *model.Assessment) error {
		if a.TotalPoints <= 0 {
			return apperr.Validation("questions", "cannot publish an assessment without questions")
		}
		now := s.now()
		a.PublishedAt = &now
		return nil
	})
}

// Archive 归档后不再接受提交，已有提交保留
func (s *AssessmentService) Archive(ctx context.Context, actor Actor, id string) (*model.Assessment, error) {
	return s.transition(ctx, actor, id, model.AssessmentArchived, func(a *model.Assessment) error {
		now := s.now()
		a.ArchivedAt = &now
		return nil
	})
}

func (s *AssessmentService) transition(ctx context.Context, actor Actor, id string, next model.AssessmentStatus, apply func(a *model.Assessment) error) (*model.Assessment, error) {
	a, err := s.store.UpdateAssessment(ctx, id, func(a *model.Assessment) error {
		if err := authorize(a, actor); err != nil {
			return err
		}
		if !a.Status.CanTransitionTo(next) {
			return apperr.Validation("status", "cannot transition from "+string(a.Status)+" to "+string(next))
		}
		if err := apply(a); err != nil {
			return err
		}
		a.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("assessment status changed",
		zap.String("assessmentId", a.ID),
		zap.String("status", string(a.Status)),
		zap.Uint("actorId", actor.UserID))
	return a, nil
}

func (s *AssessmentService) AddQuestion(ctx context.Context, actor Actor, assessmentID string, in QuestionInput) (*model.AssessmentQuestion, error) {
	var added model.AssessmentQuestion
	_, err := s.store.MutateQuestionBank(ctx, assessmentID, func(a *model.Assessment, bank *model.QuestionBank) error {
		if err := authorize(a, actor); err != nil {
			return err
		}
		if err := ensureEditable(a); err != nil {
			return err
		}
		q, err := bank.AddQuestion(in.toQuestion())
		if err != nil {
			return err
		}
		added = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

func (s *AssessmentService) UpdateQuestion(ctx context.Context, actor Actor, assessmentID, questionID string, req UpdateQuestionRequest) (*model.AssessmentQuestion, error) {
	var updated model.AssessmentQuestion
	_, err := s.store.MutateQuestionBank(ctx, assessmentID, func(a *model.Assessment, bank *model.QuestionBank) error {
		if err := authorize(a, actor); err != nil {
			return err
		}
		if err := ensureEditable(a); err != nil {
			return err
		}
		q, err := bank.UpdateQuestion(questionID, req.patch())
		if err != nil {
			return err
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *AssessmentService) RemoveQuestion(ctx context.Context, actor Actor, assessmentID, questionID string) (*model.Assessment, error) {
	return s.store.MutateQuestionBank(ctx, assessmentID, func(a *model.Assessment, bank *model.QuestionBank) error {
		if err := authorize(a, actor); err != nil {
			return err
		}
		if err := ensureEditable(a); err != nil {
			return err
		}
		if a.IsPublished() && bank.Len() == 1 {
			return apperr.Validation("questions", "a published assessment must keep at least one question")
		}
		return bank.RemoveQuestion(questionID)
	})
}

func (s *AssessmentService) ReorderQuestions(ctx context.Context, actor Actor, assessmentID string, ids []string) (*model.Assessment, error) {
	return s.store.MutateQuestionBank(ctx, assessmentID, func(a *model.Assessment, bank *model.QuestionBank) error {
		if err := authorize(a, actor); err != nil {
			return err
		}
		if err := ensureEditable(a); err != nil {
			return err
		}
		return bank.Reorder(ids)
	})
}

// ListSubmissions 作者或管理员查看某测评的全部提交
func (s *AssessmentService) ListSubmissions(ctx context.Context, actor Actor, assessmentID string, page, limit int) ([]model.AssessmentSubmission, int64, error) {
	a, err := s.store.FindAssessmentByID(ctx, assessmentID)
	if err != nil {
		return nil, 0, err
	}
	if err := authorize(a, actor); err != nil {
		return nil, 0, err
	}
	return s.store.ListSubmissions(ctx, assessmentID, 0, page, limit)
}

func (s *AssessmentService) GetSubmission(ctx context.Context, actor Actor, submissionID string) (*model.AssessmentSubmission, error) {
	sub, err := s.store.FindSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	a, err := s.store.FindAssessmentByID(ctx, sub.AssessmentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(a, actor); err != nil {
		return nil, err
	}
	return sub, nil
}

// ReviewSubmission 人工复核：graded -> reviewed，不修改分数和答题记录
func (s *AssessmentService) ReviewSubmission(ctx context.Context, actor Actor, submissionID string) (*model.AssessmentSubmission, error) {
	sub, err := s.GetSubmission(ctx, actor, submissionID)
	if err != nil {
		return nil, err
	}
	if !sub.Status.CanTransitionTo(model.SubmissionReviewed) {
		return nil, apperr.Validation("status", "cannot transition from "+string(sub.Status)+" to reviewed")
	}
	if err := s.store.MarkReviewed(ctx, sub.ID, actor.UserID, s.now()); err != nil {
		return nil, err
	}
	logger.Log.Info("submission reviewed",
		zap.String("submissionId", sub.ID),
		zap.Uint("reviewerId", actor.UserID))
	return s.store.FindSubmissionByID(ctx, sub.ID)
}
