package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"rentms/internal/models"
	"rentms/pkg/config"
	"rentms/pkg/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// recurringInvoiceGenerator 批处理逐租约调用的生成入口
type recurringInvoiceGenerator interface {
	GenerateRecurringInvoice(leaseID uint) (*models.Invoice, error)
}

// BillingScheduler 计费调度器
// 按cron节奏驱动周期账单批处理、逾期扫描、到期扫描和催缴提醒，
// 也支持手动触发。批处理内单个租约的失败只记录不中断（尽力而为语义）
type BillingScheduler struct {
	db                  *gorm.DB
	invoiceService      *InvoiceService
	leaseService        *LeaseService
	notificationService *NotificationService
	billingCfg          config.BillingConfig
	generator           recurringInvoiceGenerator

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// BillingRunResult 一次周期账单批处理的结果
type BillingRunResult struct {
	RunID   string                   `json:"run_id"`
	Created int                      `json:"created"`
	Skipped int                      `json:"skipped"`
	Errors  []models.BillingRunError `json:"errors"`
}

// NewBillingScheduler 创建计费调度器
func NewBillingScheduler(
	db *gorm.DB,
	invoiceService *InvoiceService,
	leaseService *LeaseService,
	notificationService *NotificationService,
	billingCfg config.BillingConfig,
) *BillingScheduler {
	return &BillingScheduler{
		db:                  db,
		invoiceService:      invoiceService,
		leaseService:        leaseService,
		notificationService: notificationService,
		billingCfg:          billingCfg,
		generator:           invoiceService,
		cron:                cron.New(),
	}
}

// Start 启动调度器
func (s *BillingScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	log := logger.GetLogger()
	log.Info("启动计费调度器")

	if _, err := s.cron.AddFunc(s.billingCfg.RecurringCron, func() {
		if _, err := s.GenerateRecurringInvoices("cron"); err != nil {
			log.Errorf("周期账单批处理失败: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("注册周期账单任务失败: %v", err)
	}

	if _, err := s.cron.AddFunc(s.billingCfg.OverdueSweepCron, func() {
		if _, err := s.invoiceService.UpdateOverdueInvoices(); err != nil {
			log.Errorf("逾期扫描失败: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("注册逾期扫描任务失败: %v", err)
	}

	if _, err := s.cron.AddFunc(s.billingCfg.ExpirySweepCron, func() {
		if _, err := s.leaseService.UpdateExpiredLeases(); err != nil {
			log.Errorf("到期扫描失败: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("注册到期扫描任务失败: %v", err)
	}

	if s.notificationService != nil {
		if _, err := s.cron.AddFunc(s.billingCfg.ReminderCron, func() {
			if _, err := s.notificationService.DispatchReminders(); err != nil {
				log.Errorf("催缴提醒推送失败: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("注册催缴提醒任务失败: %v", err)
		}
	}

	s.cron.Start()
	s.running = true

	log.Info("计费调度器启动成功")
	return nil
}

// Stop 停止调度器，等待执行中的任务结束
func (s *BillingScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	logger.GetLogger().Info("停止计费调度器")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
}

// IsRunning 调度器是否在运行
func (s *BillingScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// GenerateRecurringInvoices 周期账单批处理
// 遍历所有active租约逐个生成下一期账单，单个租约的失败带lease_id记入
// 批次报告，不影响其他租约。每次批处理落一条BillingRun审计记录。
// 依赖GenerateRecurringInvoice的幂等护栏，重复或并发执行不会重复出账
func (s *BillingScheduler) GenerateRecurringInvoices(triggeredBy string) (*BillingRunResult, error) {
	log := logger.GetLogger()

	run := &models.BillingRun{
		RunID:       uuid.New().String(),
		TriggeredBy: triggeredBy,
		StartedAt:   time.Now(),
		Status:      models.BillingRunStatusRunning,
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("创建批次记录失败: %v", err)
	}

	var leases []models.Lease
	if err := s.db.Where("status = ?", models.LeaseStatusActive).Find(&leases).Error; err != nil {
		s.finishRun(run, 0, 0, nil, models.BillingRunStatusFailed)
		return nil, fmt.Errorf("查询active租约失败: %v", err)
	}

	result := &BillingRunResult{
		RunID:  run.RunID,
		Errors: make([]models.BillingRunError, 0),
	}

	for _, lease := range leases {
		invoice, err := s.generator.GenerateRecurringInvoice(lease.ID)
		if err != nil {
			log.Errorf("租约 %d 生成周期账单失败: %v", lease.ID, err)
			result.Errors = append(result.Errors, models.BillingRunError{
				LeaseID: lease.ID,
				Message: err.Error(),
			})
			continue
		}
		if invoice == nil {
			result.Skipped++
		} else {
			result.Created++
		}
	}

	s.finishRun(run, result.Created, result.Skipped, result.Errors, models.BillingRunStatusCompleted)

	log.Infof("周期账单批处理完成 [%s]: 生成 %d, 跳过 %d, 失败 %d",
		run.RunID, result.Created, result.Skipped, len(result.Errors))
	return result, nil
}

// finishRun 回写批次记录，失败只记日志（审计记录不阻塞计费）
func (s *BillingScheduler) finishRun(run *models.BillingRun, created, skipped int, runErrors []models.BillingRunError, status string) {
	now := time.Now()
	updates := map[string]interface{}{
		"finished_at": &now,
		"created":     created,
		"skipped":     skipped,
		"failed":      len(runErrors),
		"status":      status,
	}
	if len(runErrors) > 0 {
		if data, err := json.Marshal(runErrors); err == nil {
			updates["errors"] = data
		}
	}

	if err := s.db.Model(run).Updates(updates).Error; err != nil {
		logger.GetLogger().Errorf("回写批次记录 %s 失败: %v", run.RunID, err)
	}
}

// RecentRuns 查询最近的批次记录
func (s *BillingScheduler) RecentRuns(limit int) ([]models.BillingRun, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var runs []models.BillingRun
	err := s.db.Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
