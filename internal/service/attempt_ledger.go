package service

import (
	"coder_edu_assessment/internal/apperr"
	"coder_edu_assessment/internal/model"
	"context"
	"sync"
)

type AttemptCounter interface {
	CountSubmissions(ctx context.Context, assessmentID string, studentID uint) (int64, error)
}

type attemptKey struct {
	assessmentID string
	studentID    uint
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// AttemptInfo 学生在某测评上的次数使用情况
type AttemptInfo struct {
	AssessmentID    string `json:"assessmentId"`
	AttemptsUsed    int64  `json:"attemptsUsed"`
	AttemptsAllowed int    `json:"attemptsAllowed"`
	Remaining       int64  `json:"remaining"`
}

// AttemptLedger 按 (assessment, student) 统计已评分提交并拦截超限提交。
// 进程内用按键互斥串行化同一学生的并发提交；跨进程的权威校验在
// AppendSubmission 事务内完成。
type AttemptLedger struct {
	counter AttemptCounter

	mu    sync.Mutex
	locks map[attemptKey]*keyLock
}

func NewAttemptLedger(counter AttemptCounter) *AttemptLedger {
	return &AttemptLedger{
		counter: counter,
		locks:   make(map[attemptKey]*keyLock),
	}
}

// CanSubmit 已用次数 >= attemptsAllowed 时返回 AttemptLimitExceeded
func (l *AttemptLedger) CanSubmit(ctx context.Context, a *model.Assessment, studentID uint) error {
	used, err := l.counter.CountSubmissions(ctx, a.ID, studentID)
	if err != nil {
		return err
	}
	if used >= int64(a.AttemptsAllowed) {
		return apperr.AttemptLimitExceeded(a.AttemptsAllowed)
	}
	return nil
}

func (l *AttemptLedger) Info(ctx context.Context, a *model.Assessment, studentID uint) (*AttemptInfo, error) {
	used, err := l.counter.CountSubmissions(ctx, a.ID, studentID)
	if err != nil {
		return nil, err
	}
	remaining := int64(a.AttemptsAllowed) - used
	if remaining < 0 {
		remaining = 0
	}
	return &AttemptInfo{
		AssessmentID:    a.ID,
		AttemptsUsed:    used,
		AttemptsAllowed: a.AttemptsAllowed,
		Remaining:       remaining,
	}, nil
}

// Guard 在同一 (assessment, student) 的锁内执行 fn
func (l *AttemptLedger) Guard(assessmentID string, studentID uint, fn func() error) error {
	key := attemptKey{assessmentID: assessmentID, studentID: studentID}

	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()
	defer func() {
		kl.mu.Unlock()
		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}()

	return fn()
}
