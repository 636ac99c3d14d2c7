package repository

import (
	"coder_edu_assessment/internal/apperr"
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/testutil"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
)

func newSubmission(a *model.Assessment, studentID uint, score int) *model.AssessmentSubmission {
	correct := true
	return &model.AssessmentSubmission{
		AssessmentID: a.ID,
		StudentID:    studentID,
		Score:        score,
		MaxScore:     a.TotalPoints,
		Status:       model.SubmissionGraded,
		SubmittedAt:  time.Now(),
		Answers: []model.AnswerRecord{{
			QuestionID:    a.Questions[0].ID,
			RawAnswer:     []byte(`"B"`),
			Correct:       &correct,
			PointsAwarded: score,
			Feedback:      "Correct!",
		}},
	}
}

func TestLoadSnapshotOrdersQuestions(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAssessmentRepository(db)
	a := testutil.SeedAssessment(t, db, model.AssessmentPublished, 1, 7,
		testutil.SingleChoice("first", "B", 2, "A", "B"),
		testutil.ShortAnswer("second", "Paris", 3),
	)

	got, err := repo.LoadSnapshot(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Questions) != 2 || got.Questions[0].Text != "first" || got.Questions[1].Text != "second" {
		t.Fatalf("unexpected questions %+v", got.Questions)
	}
	if got.TotalPoints != 5 {
		t.Fatalf("expected total 5, got %d", got.TotalPoints)
	}

	if _, err := repo.LoadSnapshot(context.Background(), "missing"); !errors.Is(err, apperr.NotFound("assessment")) {
		t.Fatalf("expected assessment not found, got %v", err)
	}
}

func TestMutateQuestionBankPersistsTotalAtomically(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAssessmentRepository(db)
	ctx := context.Background()
	a := testutil.SeedAssessment(t, db, model.AssessmentDraft, 1, 7,
		testutil.SingleChoice("q1", "B", 2, "A", "B"),
	)

	var addedID string
	_, err := repo.MutateQuestionBank(ctx, a.ID, func(_ *model.Assessment, bank *model.QuestionBank) error {
		q, err := bank.AddQuestion(testutil.ShortAnswer("q2", "Paris", 4))
		addedID = q.ID
		return err
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	got, _ := repo.LoadSnapshot(ctx, a.ID)
	if got.TotalPoints != 6 || len(got.Questions) != 2 {
		t.Fatalf("expected 2 questions totalling 6, got %d questions total %d", len(got.Questions), got.TotalPoints)
	}

	// 回调报错时题目和总分都不能变化
	_, err = repo.MutateQuestionBank(ctx, a.ID, func(_ *model.Assessment, bank *model.QuestionBank) error {
		if err := bank.RemoveQuestion(addedID); err != nil {
			return err
		}
		return apperr.Validation("questions", "rejected")
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, _ = repo.LoadSnapshot(ctx, a.ID)
	if got.TotalPoints != 6 || len(got.Questions) != 2 {
		t.Fatalf("rolled back mutation leaked: %d questions total %d", len(got.Questions), got.TotalPoints)
	}

	_, err = repo.MutateQuestionBank(ctx, a.ID, func(_ *model.Assessment, bank *model.QuestionBank) error {
		return bank.RemoveQuestion(addedID)
	})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	got, _ = repo.LoadSnapshot(ctx, a.ID)
	if got.TotalPoints != 2 || len(got.Questions) != 1 {
		t.Fatalf("expected 1 question totalling 2, got %d questions total %d", len(got.Questions), got.TotalPoints)
	}
}

func TestAppendSubmissionEnforcesLimit(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAssessmentRepository(db)
	ctx := context.Background()
	a := testutil.SeedAssessment(t, db, model.AssessmentPublished, 2, 7,
		testutil.SingleChoice("q1", "B", 2, "A", "B"),
	)

	for i := 0; i < 2; i++ {
		if err := repo.AppendSubmission(ctx, newSubmission(a, 42, 2)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	err := repo.AppendSubmission(ctx, newSubmission(a, 42, 2))
	if !errors.Is(err, apperr.ErrAttemptLimit) {
		t.Fatalf("expected attempt limit, got %v", err)
	}

	count, err := repo.CountSubmissions(ctx, a.ID, 42)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 submissions, got %d (%v)", count, err)
	}

	// 其他学生不受影响
	if err := repo.AppendSubmission(ctx, newSubmission(a, 43, 0)); err != nil {
		t.Fatalf("append other student: %v", err)
	}
}

func TestAppendSubmissionLocksKeyBeforeReading(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAssessmentRepository(db)
	a := testutil.SeedAssessment(t, db, model.AssessmentPublished, 1, 7,
		testutil.SingleChoice("q1", "B", 2, "A", "B"),
	)

	var (
		mu    sync.Mutex
		trace []string
	)
	record := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			mu.Lock()
			defer mu.Unlock()
			trace = append(trace, op+" "+tx.Statement.Table)
		}
	}
	if err := db.Callback().Create().After("gorm:create").Register("test:trace_create", record("insert")); err != nil {
		t.Fatalf("register create callback: %v", err)
	}
	if err := db.Callback().Query().After("gorm:query").Register("test:trace_query", record("select")); err != nil {
		t.Fatalf("register query callback: %v", err)
	}

	if err := repo.AppendSubmission(context.Background(), newSubmission(a, 42, 2)); err != nil {
		t.Fatalf("append: %v", err)
	}

	// 键行加锁之后才读取测评和计数，否则可重复读快照会漏掉其他实例的提交
	want := []string{
		"insert assessment_attempt_keys",
		"select assessment_attempt_keys",
		"select assessments",
		"select assessment_submissions",
	}
	mu.Lock()
	defer mu.Unlock()
	if len(trace) < len(want) {
		t.Fatalf("expected at least %d statements, got %v", len(want), trace)
	}
	for i, w := range want {
		if trace[i] != w {
			t.Fatalf("statement %d: expected %q, got %q (trace %v)", i, w, trace[i], trace)
		}
	}
}

func TestAppendSubmissionRejectsUnpublished(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAssessmentRepository(db)
	a := testutil.SeedAssessment(t, db, model.AssessmentArchived, 1, 7,
		testutil.SingleChoice("q1", "B", 2, "A", "B"),
	)

	err := repo.AppendSubmission(context.Background(), newSubmission(a, 42, 2))
	if !errors.Is(err, apperr.ErrUnpublished) {
		t.Fatalf("expected unpublished error, got %v", err)
	}
}

func TestFindSubmissionAndReview(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAssessmentRepository(db)
	ctx := context.Background()
	a := testutil.SeedAssessment(t, db, model.AssessmentPublished, 1, 7,
		testutil.SingleChoice("q1", "B", 2, "A", "B"),
	)
	sub := newSubmission(a, 42, 2)
	if err := repo.AppendSubmission(ctx, sub); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := repo.FindSubmissionByID(ctx, sub.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got.Answers) != 1 || got.Answers[0].Correct == nil || !*got.Answers[0].Correct {
		t.Fatalf("unexpected answers %+v", got.Answers)
	}

	if err := repo.MarkReviewed(ctx, sub.ID, 7, time.Now()); err != nil {
		t.Fatalf("review: %v", err)
	}
	if err := repo.MarkReviewed(ctx, sub.ID, 7, time.Now()); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected second review to be rejected, got %v", err)
	}
	if err := repo.MarkReviewed(ctx, "missing", 7, time.Now()); !errors.Is(err, apperr.NotFound("submission")) {
		t.Fatalf("expected submission not found, got %v", err)
	}

	list, total, err := repo.ListSubmissions(ctx, a.ID, 0, 1, 10)
	if err != nil || total != 1 || len(list) != 1 || list[0].Status != model.SubmissionReviewed {
		t.Fatalf("unexpected list %+v total %d err %v", list, total, err)
	}
}
