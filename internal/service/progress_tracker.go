package service

import (
	"coder_edu_assessment/pkg/logger"
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CompletionEvent 提交成功后发给学习进度服务的通知
type CompletionEvent struct {
	SubmissionID string
	AssessmentID string
	StudentID    uint
	Score        int
	MaxScore     int
	CompletedAt  time.Time
}

// ProgressTracker 对提交流程而言是 fire-and-forget，返回的错误只会被记录
type ProgressTracker interface {
	TrackCompletion(ctx context.Context, ev CompletionEvent) error
}

type RedisProgressTracker struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	timeout time.Duration
}

func NewRedisProgressTracker(client *redis.Client, stream string, maxLen int64, timeout time.Duration) *RedisProgressTracker {
	return &RedisProgressTracker{
		client:  client,
		stream:  stream,
		maxLen:  maxLen,
		timeout: timeout,
	}
}

func (t *RedisProgressTracker) TrackCompletion(ctx context.Context, ev CompletionEvent) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	return t.client.XAdd(ctx, &redis.XAddArgs{
		Stream: t.stream,
		MaxLen: t.maxLen,
		Approx: t.maxLen > 0,
		Values: map[string]interface{}{
			"submissionId": ev.SubmissionID,
			"assessmentId": ev.AssessmentID,
			"studentId":    strconv.FormatUint(uint64(ev.StudentID), 10),
			"score":        ev.Score,
			"maxScore":     ev.MaxScore,
			"completedAt":  ev.CompletedAt.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
}

// LogProgressTracker 未启用 Redis 时只写日志
type LogProgressTracker struct{}

func (LogProgressTracker) TrackCompletion(_ context.Context, ev CompletionEvent) error {
	logger.Log.Info("assessment completed",
		zap.String("submissionId", ev.SubmissionID),
		zap.String("assessmentId", ev.AssessmentID),
		zap.Uint("studentId", ev.StudentID),
		zap.Int("score", ev.Score),
		zap.Int("maxScore", ev.MaxScore),
		zap.Time("completedAt", ev.CompletedAt))
	return nil
}
