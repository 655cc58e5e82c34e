package models

import (
	"time"
)

// PaymentTransaction 收款流水
// 不变量：同一账单所有流水金额之和等于账单的amount_paid
type PaymentTransaction struct {
	BaseModel
	OrganizationID uint `json:"organization_id" gorm:"not null;index"`
	InvoiceID      uint `json:"invoice_id" gorm:"not null;index"`
	TenantID       uint `json:"tenant_id" gorm:"not null;index"`

	Amount    float64   `json:"amount" gorm:"type:decimal(12,2);not null"`
	Method    string    `json:"method" gorm:"size:30;default:'bank_transfer'"`
	Reference string    `json:"reference" gorm:"size:64;index"` // 流水号
	PaidAt    time.Time `json:"paid_at" gorm:"not null;index"`

	RecordedBy *uint `json:"recorded_by"` // 经办人，系统自动入账时为空

	// 关联
	Invoice *Invoice `json:"invoice,omitempty" gorm:"foreignKey:InvoiceID"`
}

// TableName 表名
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// 收款方式常量
const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCard         = "card"
	PaymentMethodOnline       = "online"
)
