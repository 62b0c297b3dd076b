package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/internal/model"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Create(plan *model.LearningPlan) error {
	return r.db.Create(plan).Error
}

func (r *PlanRepository) GetByID(id string) (*model.LearningPlan, error) {
	var plan model.LearningPlan
	err := r.db.Where("id = ?", id).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) GetByIDTx(tx *gorm.DB, id string) (*model.LearningPlan, error) {
	var plan model.LearningPlan
	err := tx.Where("id = ?", id).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetLatestByUserID 用户最近创建的计划
func (r *PlanRepository) GetLatestByUserID(userID int64) (*model.LearningPlan, error) {
	return r.GetLatestByUserIDTx(r.db, userID)
}

// GetLatestByUserIDTx 事务版本
func (r *PlanRepository) GetLatestByUserIDTx(tx *gorm.DB, userID int64) (*model.LearningPlan, error) {
	var plan model.LearningPlan
	err := tx.Where("user_id = ?", userID).Order("created_at DESC").First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) ListByUserID(userID int64) ([]model.LearningPlan, error) {
	var plans []model.LearningPlan
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&plans).Error
	return plans, err
}

func (r *PlanRepository) Update(plan *model.LearningPlan) error {
	return r.db.Save(plan).Error
}

// AdvanceProgressTx 乐观更新进度字段：仅当 completed_sessions 仍等于读取时的值
// 才写入，返回是否命中。并发的两次会话完成只有一次能推进同一序号。
func (r *PlanRepository) AdvanceProgressTx(tx *gorm.DB, plan *model.LearningPlan, expectedCompleted int) (bool, error) {
	result := tx.Model(&model.LearningPlan{}).
		Where("id = ? AND completed_sessions = ?", plan.ID, expectedCompleted).
		Updates(map[string]interface{}{
			"completed_sessions":  plan.CompletedSessions,
			"progress_percentage": plan.ProgressPercentage,
			"weekly_schedule":     plan.WeeklySchedule,
			"session_summaries":   plan.SessionSummaries,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PlanRepository) Delete(id string) error {
	return r.db.Delete(&model.LearningPlan{}, "id = ?", id).Error
}
