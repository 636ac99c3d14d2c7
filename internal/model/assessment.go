package model

import (
	"time"
)

type AssessmentStatus string

const (
	AssessmentDraft     AssessmentStatus = "draft"
	AssessmentPublished AssessmentStatus = "published"
	AssessmentArchived  AssessmentStatus = "archived"
)

// CanTransitionTo 状态只能向前：draft -> published -> archived
func (s AssessmentStatus) CanTransitionTo(next AssessmentStatus) bool {
	switch s {
	case AssessmentDraft:
		return next == AssessmentPublished
	case AssessmentPublished:
		return next == AssessmentArchived
	}
	return false
}

const DefaultAttemptsAllowed = 1

// swagger:model Assessment
type Assessment struct {
	UUIDBase
	Title           string               `gorm:"size:255;not null" json:"title"`
	Description     string               `gorm:"type:text" json:"description"`
	Topic           string               `gorm:"size:100;index" json:"topic"`
	Difficulty      string               `gorm:"size:20" json:"difficulty"`
	TotalPoints     int                  `gorm:"not null;default:0" json:"totalPoints"`
	TimeLimit       *int                 `json:"timeLimit,omitempty"` // Minutes
	AttemptsAllowed int                  `gorm:"not null;default:1" json:"attemptsAllowed"`
	Status          AssessmentStatus     `gorm:"size:20;not null;default:'draft';index" json:"status"`
	CreatorID       uint                 `gorm:"index" json:"creatorId"`
	PublishedAt     *time.Time           `json:"publishedAt,omitempty"`
	ArchivedAt      *time.Time           `json:"archivedAt,omitempty"`
	Questions       []AssessmentQuestion `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

func (a *Assessment) IsPublished() bool {
	return a.Status == AssessmentPublished
}

// Bank 以当前题目快照构造题库
func (a *Assessment) Bank() *QuestionBank {
	return NewQuestionBank(a.ID, a.Questions)
}
