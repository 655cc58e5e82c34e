package models

import (
	"time"

	"gorm.io/datatypes"
)

// BillingRun 计费批次执行记录
// 每次周期账单批处理落一条审计记录，errors为逐租约的失败明细
type BillingRun struct {
	BaseModel
	RunID       string         `json:"run_id" gorm:"size:36;not null;uniqueIndex"`
	TriggeredBy string         `json:"triggered_by" gorm:"size:20;default:'cron'"` // cron/manual
	StartedAt   time.Time      `json:"started_at" gorm:"not null"`
	FinishedAt  *time.Time     `json:"finished_at"`
	Created     int            `json:"created" gorm:"default:0"` // 新生成账单数
	Skipped     int            `json:"skipped" gorm:"default:0"` // 跳过的租约数
	Failed      int            `json:"failed" gorm:"default:0"`  // 失败的租约数
	Errors      datatypes.JSON `json:"errors" gorm:"type:jsonb"` // [{lease_id, message}]
	Status      string         `json:"status" gorm:"size:20;default:'running'"`
}

// TableName 表名
func (BillingRun) TableName() string {
	return "billing_runs"
}

// 批次状态常量
const (
	BillingRunStatusRunning   = "running"
	BillingRunStatusCompleted = "completed"
	BillingRunStatusFailed    = "failed"
)

// BillingRunError 批次中单个租约的失败记录
type BillingRunError struct {
	LeaseID uint   `json:"lease_id"`
	Message string `json:"message"`
}
