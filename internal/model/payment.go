package model

import (
	"time"
)

// Payment Stripe 账单事件落库记录（审计用，账务真相在 Stripe）
type Payment struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	UserID          int64     `gorm:"not null;index" json:"user_id"`
	Plan            string    `gorm:"size:30;not null" json:"plan"`
	Period          string    `gorm:"size:10" json:"period"`
	Amount          float64   `gorm:"type:decimal(10,2)" json:"amount,omitempty"`
	Currency        string    `gorm:"size:10" json:"currency,omitempty"`
	StripeInvoiceID string    `gorm:"size:100;uniqueIndex" json:"stripe_invoice_id,omitempty"`
	Status          string    `gorm:"size:20;default:paid;index" json:"status"` // paid, refunded, failed
	CreatedAt       time.Time `json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}
