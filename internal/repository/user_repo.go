package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) DB() *gorm.DB {
	return r.db
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDTx 事务内读取，供复合操作在同一事务里取用户行
func (r *UserRepository) GetByIDTx(tx *gorm.DB, id int64) (*model.User, error) {
	var user model.User
	err := tx.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByUsername(username string) (*model.User, error) {
	var user model.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByGithubID(githubID string) (*model.User, error) {
	var user model.User
	err := r.db.Where("github_id = ?", githubID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByStripeCustomerID(customerID string) (*model.User, error) {
	var user model.User
	err := r.db.Where("stripe_customer_id = ?", customerID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByVerificationCode(code string) (*model.User, error) {
	var user model.User
	err := r.db.Where("verification_code = ?", code).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(user *model.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateFieldsTx 事务版本
func (r *UserRepository) UpdateFieldsTx(tx *gorm.DB, id int64, fields map[string]interface{}) error {
	return tx.Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

// usageColumns 用量类型对应的计数列
var usageColumns = map[string]string{
	model.UsagePracticeSession: "practice_sessions_used",
	model.UsageAssessment:      "assessments_used",
}

// IncrementUsageWithin 在 limit 之内原子递增用量计数。
// 条件更新：limit 为 -1（不限量）或当前值小于 limit 时才加一，
// 返回是否实际递增。检查与递增是同一条 UPDATE，无竞态窗口。
func (r *UserRepository) IncrementUsageWithin(id int64, usageType string, limit int) (bool, error) {
	return r.incrementUsageWithin(r.db, id, usageType, limit)
}

// IncrementUsageWithinTx 事务版本，供会话完成等复合操作使用
func (r *UserRepository) IncrementUsageWithinTx(tx *gorm.DB, id int64, usageType string, limit int) (bool, error) {
	return r.incrementUsageWithin(tx, id, usageType, limit)
}

func (r *UserRepository) incrementUsageWithin(db *gorm.DB, id int64, usageType string, limit int) (bool, error) {
	column, ok := usageColumns[usageType]
	if !ok {
		return false, gorm.ErrInvalidField
	}

	result := db.Model(&model.User{}).
		Where("id = ? AND (? < 0 OR "+column+" < ?)", id, limit, limit).
		Update(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ResetUsage 清零两类用量并推进计费窗口
func (r *UserRepository) ResetUsage(id int64, periodStart, periodEnd time.Time) error {
	return r.resetUsage(r.db, id, periodStart, periodEnd)
}

// ResetUsageTx 事务版本
func (r *UserRepository) ResetUsageTx(tx *gorm.DB, id int64, periodStart, periodEnd time.Time) error {
	return r.resetUsage(tx, id, periodStart, periodEnd)
}

func (r *UserRepository) resetUsage(db *gorm.DB, id int64, periodStart, periodEnd time.Time) error {
	return db.Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"practice_sessions_used": 0,
		"assessments_used":       0,
		"current_period_start":   periodStart,
		"current_period_end":     periodEnd,
	}).Error
}

// ResetAllMonthlyUsage 月度订阅用户批量清零并推进到新窗口（定时任务用）
func (r *UserRepository) ResetAllMonthlyUsage(periodStart, periodEnd time.Time) error {
	return r.db.Model(&model.User{}).
		Where("subscription_period = ?", model.PeriodMonthly).
		Where("current_period_end IS NOT NULL AND current_period_end <= ?", periodStart).
		Updates(map[string]interface{}{
			"practice_sessions_used": 0,
			"assessments_used":       0,
			"current_period_start":   periodStart,
			"current_period_end":     periodEnd,
		}).Error
}

// ListExpiring 列出在 within 之内到期且未失效的订阅用户（到期提醒用）
func (r *UserRepository) ListExpiring(within time.Duration) ([]model.User, error) {
	var users []model.User
	deadline := time.Now().Add(within)
	err := r.db.
		Where("subscription_plan <> ?", model.PlanTryLearn).
		Where("subscription_status IN ?", []string{model.SubStatusActive, model.SubStatusTrialing, model.SubStatusCanceling}).
		Where("current_period_end IS NOT NULL AND current_period_end <= ?", deadline).
		Find(&users).Error
	return users, err
}

func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) ExistsByUsername(username string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}
