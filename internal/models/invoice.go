package models

import (
	"time"
)

// Invoice 账单
// 状态与金额的不变量：amount_paid <= amount；
// paid 当且仅当 amount_paid >= amount；partial 当且仅当 0 < amount_paid < amount
type Invoice struct {
	BaseModel
	OrganizationID uint  `json:"organization_id" gorm:"not null;index"`
	LeaseID        *uint `json:"lease_id" gorm:"index"` // 为空表示临时账单
	TenantID       uint  `json:"tenant_id" gorm:"not null;index"`

	Type   string  `json:"type" gorm:"size:30;not null;default:'rent'"`
	Amount float64 `json:"amount" gorm:"type:decimal(12,2);not null"`

	AmountPaid float64 `json:"amount_paid" gorm:"type:decimal(12,2);default:0"`

	// 费用拆分：owner_amount + management_fee 覆盖租金部分
	OwnerAmount   *float64 `json:"owner_amount" gorm:"type:decimal(12,2)"`   // 业主应得
	ManagementFee *float64 `json:"management_fee" gorm:"type:decimal(12,2)"` // 机构管理费

	DueDate time.Time `json:"due_date" gorm:"not null;index"`
	Status  string    `json:"status" gorm:"default:'pending';size:20;index"`

	// 乐观锁版本号，收款的读改写用CAS保护
	Version uint `json:"version" gorm:"default:0"`

	Reference string `json:"reference" gorm:"size:64;index"` // 账单编号
	CreatedBy uint   `json:"created_by"`

	// 关联
	Lease  *Lease  `json:"lease,omitempty" gorm:"foreignKey:LeaseID"`
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}

// TableName 表名
func (Invoice) TableName() string {
	return "invoices"
}

// 账单状态常量
const (
	InvoiceStatusDraft   = "draft"   // 草稿
	InvoiceStatusPending = "pending" // 待付款
	InvoiceStatusPartial = "partial" // 部分付款
	InvoiceStatusPaid    = "paid"    // 已付清
	InvoiceStatusOverdue = "overdue" // 已逾期
	InvoiceStatusVoid    = "void"    // 已作废
)

// 账单类型常量
const (
	InvoiceTypeRent          = "rent"           // 租金
	InvoiceTypeServiceCharge = "service_charge" // 服务费
	InvoiceTypeLegalFee      = "legal_fee"      // 法务费
	InvoiceTypeAgencyFee     = "agency_fee"     // 中介费
	InvoiceTypeCautionFee    = "caution_fee"    // 押金
	InvoiceTypeMaintenance   = "maintenance"    // 维修费
	InvoiceTypePenalty       = "penalty"        // 违约金
)

// RemainingAmount 未付余额
func (i *Invoice) RemainingAmount() float64 {
	return i.Amount - i.AmountPaid
}

// IsSettled 账单是否处于终态
func (i *Invoice) IsSettled() bool {
	return i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusVoid
}

// CreateInvoiceRequest 创建账单请求
type CreateInvoiceRequest struct {
	OrganizationID uint      `json:"organization_id" validate:"required"`
	LeaseID        *uint     `json:"lease_id"`
	TenantID       uint      `json:"tenant_id" validate:"required"`
	Type           string    `json:"type" validate:"omitempty,oneof=rent service_charge legal_fee agency_fee caution_fee maintenance penalty"`
	Amount         float64   `json:"amount" validate:"required,gt=0"`
	OwnerAmount    *float64  `json:"owner_amount"`
	ManagementFee  *float64  `json:"management_fee"`
	DueDate        time.Time `json:"due_date" validate:"required"`
	CreatedBy      uint      `json:"created_by"`
}

// RecordPaymentRequest 收款请求
type RecordPaymentRequest struct {
	Amount    float64    `json:"amount" validate:"required,gt=0"`
	Method    string     `json:"method" validate:"omitempty,oneof=cash bank_transfer card online"`
	Reference string     `json:"reference"`
	PaidAt    *time.Time `json:"paid_at"`
}
