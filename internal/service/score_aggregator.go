package service

import (
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/pkg/logger"

	"go.uber.org/zap"
)

type ScoreAggregator struct{}

// Aggregate 未作答的题目没有记录，自然计 0 分
func (ScoreAggregator) Aggregate(records []model.AnswerRecord) int {
	score := 0
	for _, r := range records {
		score += r.PointsAwarded
	}
	return score
}

// MaxScore 以快照题库重新计算的总分为准，与持久化的 totalPoints 不一致时告警
func (ScoreAggregator) MaxScore(a *model.Assessment, bank *model.QuestionBank) int {
	total := bank.RecomputeTotalPoints()
	if total != a.TotalPoints {
		logger.Log.Warn("assessment totalPoints out of sync with question bank",
			zap.String("assessmentId", a.ID),
			zap.Int("persisted", a.TotalPoints),
			zap.Int("recomputed", total))
	}
	return total
}
