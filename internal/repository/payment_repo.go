package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/lingo_go_server/internal/model"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(payment *model.Payment) error {
	return r.db.Create(payment).Error
}

// ExistsByInvoiceID webhook 重放去重
func (r *PaymentRepository) ExistsByInvoiceID(invoiceID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Payment{}).Where("stripe_invoice_id = ?", invoiceID).Count(&count).Error
	return count > 0, err
}

func (r *PaymentRepository) ListByUserID(userID int64) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}
