package services

import (
	"errors"
	"time"

	"rentms/internal/models"
	"rentms/pkg/logger"
	"rentms/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 乐观锁冲突哨兵错误，只在RecordPayment的重试循环内部使用
var errPaymentConflict = errors.New("收款版本冲突")

// PaymentCompletedHandler 支付完成事件处理器
// 在收款事务内被回调，租约激活通过它挂接到收款流程
type PaymentCompletedHandler interface {
	HandlePaymentCompleted(tx *gorm.DB, invoice *models.Invoice) error
}

// InvoiceService 账单服务
// 账单创建、费用拆分、收款入账、周期账单生成、逾期扫描
type InvoiceService struct {
	db         *gorm.DB
	now        func() time.Time
	maxRetries int

	paymentCompletedHandlers []PaymentCompletedHandler
}

// NewInvoiceService 创建账单服务
func NewInvoiceService(db *gorm.DB, maxRetries int) *InvoiceService {
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &InvoiceService{
		db:         db,
		now:        time.Now,
		maxRetries: maxRetries,
	}
}

// RegisterPaymentCompletedHandler 注册支付完成事件处理器
func (s *InvoiceService) RegisterPaymentCompletedHandler(h PaymentCompletedHandler) {
	s.paymentCompletedHandlers = append(s.paymentCompletedHandlers, h)
}

// computeFeeSplit 按房源配置拆分管理费：优先百分比，其次固定金额
// 返回 (业主应得, 管理费)
func computeFeeSplit(unit *models.Unit, amount float64) (float64, float64) {
	var fee float64
	if unit.ManagementFeePercentage > 0 {
		fee = amount * unit.ManagementFeePercentage / 100
	} else {
		fee = unit.ManagementFeeFixed
	}
	return amount - fee, fee
}

// Create 创建账单
// 未显式给出费用拆分且关联了租约时，按租约所在房源的管理费配置推导
func (s *InvoiceService) Create(req *models.CreateInvoiceRequest) (*models.Invoice, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	invoiceType := req.Type
	if invoiceType == "" {
		invoiceType = models.InvoiceTypeRent
	}

	invoice := &models.Invoice{
		OrganizationID: req.OrganizationID,
		LeaseID:        req.LeaseID,
		TenantID:       req.TenantID,
		Type:           invoiceType,
		Amount:         req.Amount,
		OwnerAmount:    req.OwnerAmount,
		ManagementFee:  req.ManagementFee,
		DueDate:        truncateToDay(req.DueDate),
		Status:         models.InvoiceStatusPending,
		Reference:      uuid.New().String(),
		CreatedBy:      req.CreatedBy,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if invoice.OwnerAmount == nil && invoice.ManagementFee == nil && req.LeaseID != nil {
			var lease models.Lease
			if err := tx.Preload("Unit").First(&lease, *req.LeaseID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errors.New("租约不存在")
				}
				return err
			}
			if lease.Unit != nil {
				owner, fee := computeFeeSplit(lease.Unit, req.Amount)
				invoice.OwnerAmount = &owner
				invoice.ManagementFee = &fee
			}
		}
		return tx.Create(invoice).Error
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// RecordPayment 收款入账
// 事务内读-算-写：更新账单金额与状态、写收款流水；账单付清且租约处于draft时
// 在同一事务中触发租约激活。并发收款用版本号CAS串行化，冲突自动重试
func (s *InvoiceService) RecordPayment(invoiceID uint, req *models.RecordPaymentRequest, recordedBy *uint) (*models.Invoice, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var updated models.Invoice
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var invoice models.Invoice
			if err := tx.First(&invoice, invoiceID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errors.New("账单不存在")
				}
				return err
			}

			if invoice.Status == models.InvoiceStatusPaid {
				return errors.New("账单已付清")
			}
			if invoice.Status == models.InvoiceStatusVoid {
				return errors.New("账单已作废")
			}
			if req.Amount > invoice.RemainingAmount() {
				return errors.New("收款金额超过账单未付余额")
			}

			newAmountPaid := invoice.AmountPaid + req.Amount
			newStatus := invoice.Status
			if newAmountPaid >= invoice.Amount {
				newStatus = models.InvoiceStatusPaid
			} else if newAmountPaid > 0 {
				newStatus = models.InvoiceStatusPartial
			}

			// CAS更新：版本号不匹配说明有并发收款，整个事务回滚后重试
			result := tx.Model(&models.Invoice{}).
				Where("id = ? AND version = ?", invoice.ID, invoice.Version).
				Updates(map[string]interface{}{
					"amount_paid": newAmountPaid,
					"status":      newStatus,
					"version":     invoice.Version + 1,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return errPaymentConflict
			}

			paidAt := s.now()
			if req.PaidAt != nil {
				paidAt = *req.PaidAt
			}
			method := req.Method
			if method == "" {
				method = models.PaymentMethodBankTransfer
			}
			reference := req.Reference
			if reference == "" {
				reference = uuid.New().String()
			}

			transaction := &models.PaymentTransaction{
				OrganizationID: invoice.OrganizationID,
				InvoiceID:      invoice.ID,
				TenantID:       invoice.TenantID,
				Amount:         req.Amount,
				Method:         method,
				Reference:      reference,
				PaidAt:         paidAt,
				RecordedBy:     recordedBy,
			}
			if err := tx.Create(transaction).Error; err != nil {
				return err
			}

			updated = invoice
			updated.AmountPaid = newAmountPaid
			updated.Status = newStatus
			updated.Version = invoice.Version + 1

			// 付清后触发支付完成事件（租约激活），失败则整个收款回滚
			if newStatus == models.InvoiceStatusPaid {
				for _, h := range s.paymentCompletedHandlers {
					if err := h.HandlePaymentCompleted(tx, &updated); err != nil {
						return err
					}
				}
			}
			return nil
		})

		if errors.Is(err, errPaymentConflict) {
			logger.GetLogger().Warnf("账单 %d 收款版本冲突，第 %d 次重试", invoiceID, attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}

		logger.GetLogger().Infof("收款入账: invoice=%d amount=%.2f status=%s",
			updated.ID, req.Amount, updated.Status)
		return &updated, nil
	}

	return nil, errors.New("并发收款冲突超过重试上限，请稍后重试")
}

// UpdateOverdueInvoices 逾期扫描
// 所有到期未付的pending账单转为overdue，幂等
func (s *InvoiceService) UpdateOverdueInvoices() (int64, error) {
	result := s.db.Model(&models.Invoice{}).
		Where("status = ? AND due_date <= ?", models.InvoiceStatusPending, s.now()).
		Update("status", models.InvoiceStatusOverdue)
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		logger.GetLogger().Infof("逾期扫描完成，%d 个账单转为overdue", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

// GenerateRecurringInvoice 为单个租约生成下一期租金账单
// 核心正确性约束是幂等：同一租约同一到期日绝不生成两张账单，
// 调度器重复或并发执行都只会得到"跳过"。无需生成时返回 (nil, nil)
func (s *InvoiceService) GenerateRecurringInvoice(leaseID uint) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var lease models.Lease
		if err := tx.Preload("Unit").First(&lease, leaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("租约不存在")
			}
			return err
		}
		if lease.Status != models.LeaseStatusActive {
			return errors.New("只有active状态的租约可以生成周期账单")
		}

		now := s.now()
		cycleMonths := models.CycleMonths(lease.BillingCycle)

		// 按走完的日历月数折算已过周期数，至少按一个周期收
		cyclesElapsed := monthsBetween(lease.StartDate, now) / cycleMonths
		if cyclesElapsed < 1 {
			cyclesElapsed = 1
		}
		expectedPaidToDate := lease.RentAmount * float64(cyclesElapsed)

		// 租客已提前缴清到当前周期则不出账
		var totalPaid float64
		if err := tx.Model(&models.Invoice{}).
			Where("lease_id = ? AND type = ?", lease.ID, models.InvoiceTypeRent).
			Select("COALESCE(SUM(amount_paid), 0)").
			Scan(&totalPaid).Error; err != nil {
			return err
		}
		if totalPaid >= expectedPaidToDate {
			return nil
		}

		// 下一期到期日：最后一张账单的到期日（或租约起始日）推进一个计费周期
		// 按日历推进并对齐月末，1月31日+1月=2月28/29日
		baseDate := lease.StartDate
		var lastInvoice models.Invoice
		err := tx.Where("lease_id = ?", lease.ID).
			Order("due_date DESC").
			First(&lastInvoice).Error
		if err == nil {
			baseDate = lastInvoice.DueDate
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		nextDueDate := truncateToDay(addMonthsClamped(baseDate, cycleMonths))

		// 下一期到期日还没到就不出账：周期账单只开到当前周期，
		// 调度器停摆后重启会逐次补齐，不会提前给未来周期开票
		if nextDueDate.After(truncateToDay(now)) {
			return nil
		}

		// 租约进入收尾期，不再出账
		if lease.EndDate != nil && nextDueDate.After(*lease.EndDate) {
			return nil
		}

		// 幂等护栏：该到期日已有账单则跳过
		var duplicate int64
		if err := tx.Model(&models.Invoice{}).
			Where("lease_id = ? AND due_date = ?", lease.ID, nextDueDate).
			Count(&duplicate).Error; err != nil {
			return err
		}
		if duplicate > 0 {
			return nil
		}

		ownerAmount := lease.RentAmount
		managementFee := 0.0
		if lease.Unit != nil {
			ownerAmount, managementFee = computeFeeSplit(lease.Unit, lease.RentAmount)
		}

		invoice = &models.Invoice{
			OrganizationID: lease.OrganizationID,
			LeaseID:        &lease.ID,
			TenantID:       lease.TenantID,
			Type:           models.InvoiceTypeRent,
			Amount:         lease.RentAmount,
			OwnerAmount:    &ownerAmount,
			ManagementFee:  &managementFee,
			DueDate:        nextDueDate,
			Status:         models.InvoiceStatusPending,
			Reference:      uuid.New().String(),
		}
		return tx.Create(invoice).Error
	})
	if err != nil {
		return nil, err
	}

	if invoice != nil {
		logger.GetLogger().Infof("生成周期账单: lease=%d invoice=%d due=%s",
			leaseID, invoice.ID, invoice.DueDate.Format("2006-01-02"))
	}
	return invoice, nil
}

// Void 作废账单，已有收款或已付清的账单不允许作废
func (s *InvoiceService) Void(invoiceID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&invoice, invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("账单不存在")
			}
			return err
		}
		if invoice.Status == models.InvoiceStatusVoid {
			return errors.New("账单已作废")
		}
		if invoice.AmountPaid > 0 {
			return errors.New("已有收款的账单不允许作废")
		}

		invoice.Status = models.InvoiceStatusVoid
		return tx.Model(&invoice).Update("status", models.InvoiceStatusVoid).Error
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetUpcomingInvoices 查询未来daysAhead天内到期的未结清账单，带租客联系方式
func (s *InvoiceService) GetUpcomingInvoices(daysAhead int) ([]models.Invoice, error) {
	now := s.now()
	until := now.AddDate(0, 0, daysAhead)

	var invoices []models.Invoice
	err := s.db.Where("status IN ? AND due_date >= ? AND due_date <= ?",
		[]string{models.InvoiceStatusPending, models.InvoiceStatusPartial}, now, until).
		Order("due_date ASC").
		Preload("Tenant").
		Find(&invoices).Error
	return invoices, err
}

// GetOverdueInvoices 查询所有逾期账单，带租客联系方式
func (s *InvoiceService) GetOverdueInvoices() ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.Where("status = ?", models.InvoiceStatusOverdue).
		Order("due_date ASC").
		Preload("Tenant").
		Find(&invoices).Error
	return invoices, err
}

// GetByID 查询单个账单
func (s *InvoiceService) GetByID(invoiceID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.Preload("Tenant").Preload("Lease").First(&invoice, invoiceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("账单不存在")
		}
		return nil, err
	}
	return &invoice, nil
}

// List 分页查询机构下的账单
func (s *InvoiceService) List(orgID uint, status string, params *pagination.PageParams) ([]models.Invoice, int64, error) {
	query := s.db.Model(&models.Invoice{}).Where("organization_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoices []models.Invoice
	err := query.Order("due_date DESC").
		Offset(params.Offset()).
		Limit(params.PageSize).
		Preload("Tenant").
		Find(&invoices).Error
	return invoices, total, err
}

// GetTransactions 查询账单的收款流水
func (s *InvoiceService) GetTransactions(invoiceID uint) ([]models.PaymentTransaction, error) {
	var transactions []models.PaymentTransaction
	err := s.db.Where("invoice_id = ?", invoiceID).
		Order("paid_at ASC").
		Find(&transactions).Error
	return transactions, err
}
