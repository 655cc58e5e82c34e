package models

import (
	"time"
)

// Lease 租约
// 同一房源同一时刻最多只能有一个active状态的租约（数据库部分唯一索引 + 日期区间重叠检查双重保障）
type Lease struct {
	BaseModel
	OrganizationID uint `json:"organization_id" gorm:"not null;index"`
	UnitID         uint `json:"unit_id" gorm:"not null;index"`
	TenantID       uint `json:"tenant_id" gorm:"not null;index"`

	StartDate time.Time  `json:"start_date" gorm:"not null;index"`
	EndDate   *time.Time `json:"end_date" gorm:"index"` // 为空表示不定期租约

	RentAmount     float64 `json:"rent_amount" gorm:"type:decimal(12,2);not null"`
	BillingCycle   string  `json:"billing_cycle" gorm:"size:20;not null;default:'monthly'"`
	CautionDeposit float64 `json:"caution_deposit" gorm:"type:decimal(12,2);default:0"` // 押金
	AgencyFee      float64 `json:"agency_fee" gorm:"type:decimal(12,2);default:0"`      // 中介费
	LegalFee       float64 `json:"legal_fee" gorm:"type:decimal(12,2);default:0"`       // 法务费

	Status string `json:"status" gorm:"default:'draft';size:20;index"`

	// 终止信息
	TerminationDate   *time.Time `json:"termination_date"`
	TerminationReason string     `json:"termination_reason" gorm:"size:500"`

	// 审计
	CreatedBy uint `json:"created_by"`

	// 关联
	Unit   *Unit   `json:"unit,omitempty" gorm:"foreignKey:UnitID"`
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}

// TableName 表名
func (Lease) TableName() string {
	return "leases"
}

// 租约状态常量
const (
	LeaseStatusDraft      = "draft"      // 已签约未付款
	LeaseStatusPending    = "pending"    // 待处理
	LeaseStatusActive     = "active"     // 生效中
	LeaseStatusTerminated = "terminated" // 已终止
	LeaseStatusExpired    = "expired"    // 已到期
)

// 计费周期常量
const (
	BillingCycleMonthly    = "monthly"    // 月付
	BillingCycleQuarterly  = "quarterly"  // 季付
	BillingCycleBiannually = "biannually" // 半年付
	BillingCycleAnnually   = "annually"   // 年付
)

// CycleMonths 计费周期对应的月数，未知周期按月付处理
func CycleMonths(cycle string) int {
	switch cycle {
	case BillingCycleQuarterly:
		return 3
	case BillingCycleBiannually:
		return 6
	case BillingCycleAnnually:
		return 12
	default:
		return 1
	}
}

// IsTerminal 租约是否处于终态
func (l *Lease) IsTerminal() bool {
	return l.Status == LeaseStatusTerminated || l.Status == LeaseStatusExpired
}

// TotalUpfrontAmount 首期账单总额：租金+押金+中介费+法务费
func (l *Lease) TotalUpfrontAmount() float64 {
	return l.RentAmount + l.CautionDeposit + l.AgencyFee + l.LegalFee
}

// CreateLeaseRequest 创建租约请求
type CreateLeaseRequest struct {
	OrganizationID uint       `json:"organization_id" validate:"required"`
	UnitID         uint       `json:"unit_id" validate:"required"`
	TenantID       uint       `json:"tenant_id" validate:"required"`
	StartDate      time.Time  `json:"start_date" validate:"required"`
	EndDate        *time.Time `json:"end_date"`
	RentAmount     float64    `json:"rent_amount" validate:"required,gt=0"`
	BillingCycle   string     `json:"billing_cycle" validate:"omitempty,oneof=monthly quarterly biannually annually"`
	CautionDeposit float64    `json:"caution_deposit" validate:"gte=0"`
	AgencyFee      float64    `json:"agency_fee" validate:"gte=0"`
	LegalFee       float64    `json:"legal_fee" validate:"gte=0"`
	CreatedBy      uint       `json:"created_by"`
}

// TerminateLeaseRequest 终止租约请求
type TerminateLeaseRequest struct {
	TerminationDate *time.Time `json:"termination_date"`
	Reason          string     `json:"reason"`
}
