package repository

import (
	"coder_edu_assessment/internal/apperr"
	"coder_edu_assessment/internal/model"
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 快照读取时总分与题目不一致（并发编辑撕裂读）的最大重试次数
const snapshotRetries = 3

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func wrapErr(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource)
	}
	return apperr.Persistence(op, err)
}

// readTxOptions sqlite 不支持隔离级别设置，其余方言使用可重复读获取一致快照
func (r *AssessmentRepository) readTxOptions() *sql.TxOptions {
	if r.DB.Dialector.Name() == "sqlite" {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

func (r *AssessmentRepository) CreateAssessment(ctx context.Context, a *model.Assessment) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(a).Error
	})
	return wrapErr("create assessment", "assessment", err)
}

func (r *AssessmentRepository) FindAssessmentByID(ctx context.Context, id string) (*model.Assessment, error) {
	var a model.Assessment
	if err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, wrapErr("find assessment", "assessment", err)
	}
	return &a, nil
}

// LoadSnapshot 在同一个读事务里读取测评及其题目，保证 totalPoints 与题目列表一致
func (r *AssessmentRepository) LoadSnapshot(ctx context.Context, id string) (*model.Assessment, error) {
	var (
		a   model.Assessment
		err error
	)
	for i := 0; i < snapshotRetries; i++ {
		a = model.Assessment{}
		err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&a, "id = ?", id).Error; err != nil {
				return err
			}
			return tx.Where("assessment_id = ?", id).
				Order("position asc, created_at asc").
				Find(&a.Questions).Error
		}, r.readTxOptions())
		if err != nil {
			return nil, wrapErr("load assessment", "assessment", err)
		}
		if a.Bank().RecomputeTotalPoints() == a.TotalPoints {
			return &a, nil
		}
	}
	// 多次读取仍不一致时返回最后一次结果，由调用方以题库重新计算的总分为准
	return &a, nil
}

func (r *AssessmentRepository) ListAssessments(ctx context.Context, status model.AssessmentStatus, page, limit int) ([]model.Assessment, int64, error) {
	var as []model.Assessment
	var total int64
	query := r.DB.WithContext(ctx).Model(&model.Assessment{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapErr("count assessments", "assessment", err)
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&as).Error
	return as, total, wrapErr("list assessments", "assessment", err)
}

// UpdateAssessment 行锁下修改测评元数据或状态，不触碰题目
func (r *AssessmentRepository) UpdateAssessment(ctx context.Context, id string, mutate func(a *model.Assessment) error) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, "id = ?", id).Error; err != nil {
			return err
		}
		if err := mutate(&a); err != nil {
			return err
		}
		return tx.Model(&a).Select(
			"title", "description", "topic", "difficulty", "time_limit",
			"attempts_allowed", "status", "published_at", "archived_at",
		).Updates(&a).Error
	})
	if err != nil {
		return nil, wrapErr("update assessment", "assessment", err)
	}
	return &a, nil
}

// MutateQuestionBank 锁住测评行，在题库上执行修改，并在同一事务中写入题目差异和重新计算的总分
func (r *AssessmentRepository) MutateQuestionBank(ctx context.Context, id string, mutate func(a *model.Assessment, bank *model.QuestionBank) error) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("assessment_id = ?", id).Order("position asc, created_at asc").Find(&a.Questions).Error; err != nil {
			return err
		}

		bank := a.Bank()
		if err := mutate(&a, bank); err != nil {
			return err
		}

		changes := bank.Changes()
		for i := range changes.Added {
			if err := tx.Create(&changes.Added[i]).Error; err != nil {
				return err
			}
		}
		for i := range changes.Updated {
			q := changes.Updated[i]
			if err := tx.Model(&q).Select(
				"question_type", "text", "options", "correct_answer",
				"explanation", "points", "difficulty", "position",
			).Updates(&q).Error; err != nil {
				return err
			}
		}
		if len(changes.Removed) > 0 {
			if err := tx.Where("assessment_id = ? AND id IN ?", id, changes.Removed).
				Delete(&model.AssessmentQuestion{}).Error; err != nil {
				return err
			}
		}

		a.TotalPoints = bank.RecomputeTotalPoints()
		if err := tx.Model(&a).Update("total_points", a.TotalPoints).Error; err != nil {
			return err
		}
		a.Questions = bank.Questions()
		return nil
	})
	if err != nil {
		return nil, wrapErr("update question bank", "assessment", err)
	}
	return &a, nil
}

func (r *AssessmentRepository) CountSubmissions(ctx context.Context, assessmentID string, studentID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.AssessmentSubmission{}).
		Where("assessment_id = ? AND student_id = ?", assessmentID, studentID).
		Count(&count).Error
	return count, wrapErr("count submissions", "submission", err)
}

// AppendSubmission 原子的“计数并追加”：先锁住 (assessment, student) 键行，
// 再在事务内读取状态、次数上限并计数，未超限才写入提交及其答题记录。
// 键行锁必须是事务里的第一条语句：MySQL 可重复读下第一次普通读取会固定快照，
// 锁之前的读取会让之后的计数看不到其他实例已提交的记录。
func (r *AssessmentRepository) AppendSubmission(ctx context.Context, sub *model.AssessmentSubmission) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		key := model.AttemptLedgerKey{AssessmentID: sub.AssessmentID, StudentID: sub.StudentID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&key).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("assessment_id = ? AND student_id = ?", sub.AssessmentID, sub.StudentID).
			First(&key).Error; err != nil {
			return err
		}

		var a model.Assessment
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id", "status", "attempts_allowed").
			First(&a, "id = ?", sub.AssessmentID).Error; err != nil {
			return err
		}
		if !a.IsPublished() {
			return apperr.Unpublished(a.ID)
		}

		var count int64
		if err := tx.Model(&model.AssessmentSubmission{}).
			Where("assessment_id = ? AND student_id = ?", sub.AssessmentID, sub.StudentID).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(a.AttemptsAllowed) {
			return apperr.AttemptLimitExceeded(a.AttemptsAllowed)
		}

		return tx.Create(sub).Error
	})
	return wrapErr("append submission", "assessment", err)
}

func (r *AssessmentRepository) FindSubmissionByID(ctx context.Context, id string) (*model.AssessmentSubmission, error) {
	var s model.AssessmentSubmission
	err := r.DB.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, wrapErr("find submission", "submission", err)
	}
	return &s, nil
}

// ListSubmissions studentID 为 0 时不按学生过滤
func (r *AssessmentRepository) ListSubmissions(ctx context.Context, assessmentID string, studentID uint, page, limit int) ([]model.AssessmentSubmission, int64, error) {
	var ss []model.AssessmentSubmission
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.AssessmentSubmission{}).Where("assessment_id = ?", assessmentID)
	if studentID > 0 {
		query = query.Where("student_id = ?", studentID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapErr("count submissions", "submission", err)
	}

	offset := (page - 1) * limit
	err := query.
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Order("submitted_at desc").
		Offset(offset).Limit(limit).
		Find(&ss).Error
	return ss, total, wrapErr("list submissions", "submission", err)
}

// MarkReviewed graded -> reviewed，条件更新保证只前移一次
func (r *AssessmentRepository) MarkReviewed(ctx context.Context, id string, reviewerID uint, at time.Time) error {
	res := r.DB.WithContext(ctx).Model(&model.AssessmentSubmission{}).
		Where("id = ? AND status = ?", id, model.SubmissionGraded).
		Updates(map[string]interface{}{
			"status":      model.SubmissionReviewed,
			"reviewed_by": reviewerID,
			"reviewed_at": at,
		})
	if res.Error != nil {
		return wrapErr("review submission", "submission", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var s model.AssessmentSubmission
	if err := r.DB.WithContext(ctx).Select("id", "status").First(&s, "id = ?", id).Error; err != nil {
		return wrapErr("review submission", "submission", err)
	}
	return apperr.Validation("status", "cannot transition from "+string(s.Status)+" to reviewed")
}
