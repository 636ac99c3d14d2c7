package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestRedisProgressTrackerAppendsToStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	tracker := NewRedisProgressTracker(client, "assessment:completions", 100, time.Second)
	completedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err := tracker.TrackCompletion(context.Background(), CompletionEvent{
		SubmissionID: "s1",
		AssessmentID: "a1",
		StudentID:    42,
		Score:        3,
		MaxScore:     5,
		CompletedAt:  completedAt,
	})
	if err != nil {
		t.Fatalf("track: %v", err)
	}

	msgs, err := client.XRange(context.Background(), "assessment:completions", "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected one stream entry, got %d", len(msgs))
	}
	v := msgs[0].Values
	if v["assessmentId"] != "a1" || v["studentId"] != "42" || v["score"] != "3" || v["maxScore"] != "5" {
		t.Fatalf("unexpected entry %+v", v)
	}
	if v["completedAt"] != completedAt.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected completedAt %v", v["completedAt"])
	}
}

func TestRedisProgressTrackerReportsFailure(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	tracker := NewRedisProgressTracker(client, "assessment:completions", 0, 200*time.Millisecond)
	if err := tracker.TrackCompletion(context.Background(), CompletionEvent{AssessmentID: "a1"}); err == nil {
		t.Fatalf("expected error when redis is unreachable")
	}
}
