package service

import (
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/pkg/logger"
	"coder_edu_assessment/pkg/tracing"
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type SubmissionStore interface {
	// AppendSubmission 原子地重新校验状态和次数上限并写入提交
	AppendSubmission(ctx context.Context, sub *model.AssessmentSubmission) error
}

type SubmissionRecorder struct {
	store   SubmissionStore
	tracker ProgressTracker
}

func NewSubmissionRecorder(store SubmissionStore, tracker ProgressTracker) *SubmissionRecorder {
	if tracker == nil {
		tracker = LogProgressTracker{}
	}
	return &SubmissionRecorder{store: store, tracker: tracker}
}

// Record 追加提交；写入失败整体回滚，不会留下已占用次数却没有记录的状态
func (r *SubmissionRecorder) Record(ctx context.Context, a *model.Assessment, sub *model.AssessmentSubmission) error {
	spanCtx, span := tracing.Start(ctx, "SubmissionRecorder.Record",
		attribute.String("assessment.id", a.ID),
		attribute.Int("answers", len(sub.Answers)),
	)
	err := r.store.AppendSubmission(spanCtx, sub)
	tracing.End(span, err)
	return err
}

// Notify 提交已落库后通知进度服务，需在次数锁之外调用；失败只记日志
func (r *SubmissionRecorder) Notify(ctx context.Context, sub *model.AssessmentSubmission) {
	ev := CompletionEvent{
		SubmissionID: sub.ID,
		AssessmentID: sub.AssessmentID,
		StudentID:    sub.StudentID,
		Score:        sub.Score,
		MaxScore:     sub.MaxScore,
		CompletedAt:  sub.SubmittedAt,
	}
	if err := r.tracker.TrackCompletion(ctx, ev); err != nil {
		logger.Log.Warn("progress notification failed",
			zap.String("submissionId", sub.ID),
			zap.String("assessmentId", sub.AssessmentID),
			zap.Uint("studentId", sub.StudentID),
			zap.Error(err))
	}
}
