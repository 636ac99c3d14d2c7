package model

import (
	"time"

	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	// SubmissionSubmitted 只存在于一次提交的处理过程中，对外可见的初始状态是 graded
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
	SubmissionReviewed  SubmissionStatus = "reviewed"
)

// CanTransitionTo 只允许向前流转，不允许回到 submitted
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	switch s {
	case SubmissionSubmitted:
		return next == SubmissionGraded
	case SubmissionGraded:
		return next == SubmissionReviewed
	}
	return false
}

// AssessmentSubmission 一次已评分的作答，创建后不可修改（仅状态前移）
// swagger:model AssessmentSubmission
type AssessmentSubmission struct {
	AppendOnlyBase
	AssessmentID string           `gorm:"index:idx_submission_student;type:varchar(36);not null" json:"assessmentId"`
	StudentID    uint             `gorm:"index:idx_submission_student;not null" json:"studentId"`
	Score        int              `gorm:"not null;default:0" json:"score"`
	MaxScore     int              `gorm:"not null;default:0" json:"maxScore"`
	Status       SubmissionStatus `gorm:"size:20;not null;default:'graded'" json:"status"`
	SubmittedAt  time.Time        `gorm:"not null" json:"submittedAt"`
	ReviewedBy   *uint            `json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time       `json:"reviewedAt,omitempty"`
	Answers      []AnswerRecord   `gorm:"foreignKey:SubmissionID" json:"answers"`
}

func (AssessmentSubmission) TableName() string {
	return "assessment_submissions"
}

// AnswerRecord 单题评分结果；Correct 为 nil 表示无法自动评分
// swagger:model AnswerRecord
type AnswerRecord struct {
	AppendOnlyBase
	SubmissionID  string         `gorm:"index;type:varchar(36);not null" json:"submissionId"`
	QuestionID    string         `gorm:"index;type:varchar(36);not null" json:"questionId"`
	RawAnswer     datatypes.JSON `json:"rawAnswer"`
	Correct       *bool          `json:"correct"`
	PointsAwarded int            `gorm:"not null;default:0" json:"pointsAwarded"`
	Feedback      string         `gorm:"type:text" json:"feedback"`
	Position      int            `gorm:"not null;default:0" json:"position"`
}

func (AnswerRecord) TableName() string {
	return "assessment_answer_records"
}

// AttemptLedgerKey 每个 (assessment, student) 一行，只用作计数-追加事务里的行锁，
// 不保存次数；次数始终由 assessment_submissions 统计得出
type AttemptLedgerKey struct {
	AssessmentID string    `gorm:"primaryKey;type:varchar(36)"`
	StudentID    uint      `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt    time.Time
}

func (AttemptLedgerKey) TableName() string {
	return "assessment_attempt_keys"
}
