// Package testutil 提供测试用的 sqlite 数据库和测评夹具
package testutil

import (
	"coder_edu_assessment/internal/config"
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/pkg/database"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"
)

// NewDB 每个测试一个独立的 sqlite 文件库，已完成迁移
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "assessment.db"),
		LogLevel:   "silent",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedAssessment 直接写库构造一个测评，totalPoints 按题目重新计算
func SeedAssessment(t *testing.T, db *gorm.DB, status model.AssessmentStatus, attemptsAllowed int, creatorID uint, questions ...model.AssessmentQuestion) *model.Assessment {
	t.Helper()
	a := &model.Assessment{
		Title:           "Seeded assessment",
		AttemptsAllowed: attemptsAllowed,
		Status:          status,
		CreatorID:       creatorID,
	}
	a.ID = model.GenerateUUID()

	bank := model.NewQuestionBank(a.ID, nil)
	for _, q := range questions {
		if _, err := bank.AddQuestion(q); err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}
	a.Questions = bank.Questions()
	a.TotalPoints = bank.RecomputeTotalPoints()
	if status == model.AssessmentPublished {
		now := time.Now()
		a.PublishedAt = &now
	}

	if err := db.Create(a).Error; err != nil {
		t.Fatalf("seed assessment: %v", err)
	}
	return a
}

func SingleChoice(text, correct string, points int, options ...string) model.AssessmentQuestion {
	return model.AssessmentQuestion{
		Type:          model.SingleChoice,
		Text:          text,
		Options:       options,
		CorrectAnswer: correct,
		Explanation:   "The correct answer is " + correct,
		Points:        points,
	}
}

func ShortAnswer(text, correct string, points int) model.AssessmentQuestion {
	return model.AssessmentQuestion{
		Type:          model.ShortAnswer,
		Text:          text,
		CorrectAnswer: correct,
		Explanation:   "Expected " + correct,
		Points:        points,
	}
}

func FreeResponse(text string, points int) model.AssessmentQuestion {
	return model.AssessmentQuestion{
		Type:   model.FreeResponse,
		Text:   text,
		Points: points,
	}
}
