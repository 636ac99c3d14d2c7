package model

import "gorm.io/datatypes"

// QuestionType 题型是封闭集合，新增题型需要同时提供对应的评分器
type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	ShortAnswer  QuestionType = "short_answer"
	FreeResponse QuestionType = "free_response"
)

var QuestionTypes = []QuestionType{SingleChoice, ShortAnswer, FreeResponse}

func (t QuestionType) Valid() bool {
	for _, v := range QuestionTypes {
		if t == v {
			return true
		}
	}
	return false
}

const DefaultQuestionPoints = 1

// AssessmentQuestion 归属于唯一的 Assessment，ID 生成后不再复用
// swagger:model AssessmentQuestion
type AssessmentQuestion struct {
	UUIDBase
	AssessmentID  string                      `gorm:"index;type:varchar(36);not null" json:"assessmentId"`
	Type          QuestionType                `gorm:"column:question_type;size:30;not null" json:"type"`
	Text          string                      `gorm:"type:text;not null" json:"text"`
	Options       datatypes.JSONSlice[string] `json:"options,omitempty"`
	CorrectAnswer string                      `gorm:"type:text" json:"correctAnswer,omitempty"`
	Explanation   string                      `gorm:"type:text" json:"explanation,omitempty"`
	Points        int                         `gorm:"not null;default:1" json:"points"`
	Difficulty    string                      `gorm:"size:20" json:"difficulty,omitempty"`
	Position      int                         `gorm:"not null;default:0" json:"position"`
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}
