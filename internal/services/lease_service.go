package services

import (
	"errors"
	"fmt"
	"time"

	"rentms/internal/models"
	"rentms/pkg/logger"
	"rentms/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeaseService 租约生命周期服务
// 负责租约的创建/激活/终止/到期，以及房源占用状态的联动
type LeaseService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLeaseService 创建租约服务
func NewLeaseService(db *gorm.DB) *LeaseService {
	return &LeaseService{
		db:  db,
		now: time.Now,
	}
}

// Create 创建租约
// 校验房源未被占用、无日期区间重叠的active租约后，
// 在同一事务中写入draft租约和首期账单（租金+押金+中介费+法务费）
func (s *LeaseService) Create(req *models.CreateLeaseRequest) (*models.Lease, *models.Invoice, error) {
	if err := validate.Struct(req); err != nil {
		return nil, nil, err
	}
	if req.EndDate != nil && !req.EndDate.After(req.StartDate) {
		return nil, nil, errors.New("租约结束日期必须晚于开始日期")
	}

	cycle := req.BillingCycle
	if cycle == "" {
		cycle = models.BillingCycleMonthly
	}

	lease := &models.Lease{
		OrganizationID: req.OrganizationID,
		UnitID:         req.UnitID,
		TenantID:       req.TenantID,
		StartDate:      truncateToDay(req.StartDate),
		RentAmount:     req.RentAmount,
		BillingCycle:   cycle,
		CautionDeposit: req.CautionDeposit,
		AgencyFee:      req.AgencyFee,
		LegalFee:       req.LegalFee,
		Status:         models.LeaseStatusDraft,
		CreatedBy:      req.CreatedBy,
	}
	if req.EndDate != nil {
		end := truncateToDay(*req.EndDate)
		lease.EndDate = &end
	}

	var invoice *models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 房源必须存在且未被占用
		var unit models.Unit
		if err := tx.First(&unit, req.UnitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("房源不存在")
			}
			return err
		}
		if unit.Status == models.UnitStatusOccupied {
			return errors.New("房源已被占用，无法创建租约")
		}

		// 重叠检查：同一房源的active租约日期区间不得与新租约相交
		// 不定期租约的结束日期按正无穷处理
		overlapQuery := tx.Model(&models.Lease{}).
			Where("unit_id = ? AND status = ?", req.UnitID, models.LeaseStatusActive).
			Where("end_date IS NULL OR end_date >= ?", lease.StartDate)
		if lease.EndDate != nil {
			overlapQuery = overlapQuery.Where("start_date <= ?", *lease.EndDate)
		}
		var overlapping int64
		if err := overlapQuery.Count(&overlapping).Error; err != nil {
			return err
		}
		if overlapping > 0 {
			return errors.New("该房源在此期间已有生效租约")
		}

		if err := tx.Create(lease).Error; err != nil {
			return err
		}

		// 首期账单：业主应得为租金部分，中介费+法务费归机构
		ownerAmount := lease.RentAmount
		managementFee := lease.AgencyFee + lease.LegalFee
		invoice = &models.Invoice{
			OrganizationID: lease.OrganizationID,
			LeaseID:        &lease.ID,
			TenantID:       lease.TenantID,
			Type:           models.InvoiceTypeRent,
			Amount:         lease.TotalUpfrontAmount(),
			OwnerAmount:    &ownerAmount,
			ManagementFee:  &managementFee,
			DueDate:        lease.StartDate,
			Status:         models.InvoiceStatusPending,
			Reference:      uuid.New().String(),
			CreatedBy:      req.CreatedBy,
		}
		return tx.Create(invoice).Error
	})
	if err != nil {
		return nil, nil, err
	}

	logger.GetLogger().Infof("创建租约成功: lease=%d unit=%d tenant=%d 首期账单=%d",
		lease.ID, lease.UnitID, lease.TenantID, invoice.ID)
	return lease, invoice, nil
}

// HandlePaymentCompleted 支付完成事件处理
// 首期账单付清时把draft租约转为active，与收款写入同一事务
func (s *LeaseService) HandlePaymentCompleted(tx *gorm.DB, invoice *models.Invoice) error {
	if invoice.LeaseID == nil {
		return nil
	}

	var lease models.Lease
	if err := tx.First(&lease, *invoice.LeaseID).Error; err != nil {
		return fmt.Errorf("加载租约失败: %v", err)
	}
	if lease.Status != models.LeaseStatusDraft {
		// 非draft租约的账单付清是正常的周期缴费，无需激活
		return nil
	}

	return s.activate(tx, &lease)
}

// activate 激活租约：draft -> active，房源翻转为occupied
func (s *LeaseService) activate(tx *gorm.DB, lease *models.Lease) error {
	if lease.Status != models.LeaseStatusDraft {
		return errors.New("只有draft状态的租约可以激活")
	}

	if err := tx.Model(&models.Lease{}).
		Where("id = ? AND status = ?", lease.ID, models.LeaseStatusDraft).
		Update("status", models.LeaseStatusActive).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Unit{}).
		Where("id = ?", lease.UnitID).
		Update("status", models.UnitStatusOccupied).Error; err != nil {
		return err
	}

	logger.GetLogger().Infof("租约激活: lease=%d unit=%d", lease.ID, lease.UnitID)
	return nil
}

// Terminate 终止租约
// 只允许从非终态终止，房源回退为vacant；重复终止报错
func (s *LeaseService) Terminate(leaseID uint, req *models.TerminateLeaseRequest) (*models.Lease, error) {
	var lease models.Lease
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lease, leaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("租约不存在")
			}
			return err
		}
		if lease.IsTerminal() {
			return errors.New("租约已处于终止或到期状态")
		}

		terminationDate := s.now()
		if req != nil && req.TerminationDate != nil {
			terminationDate = *req.TerminationDate
		}
		reason := ""
		if req != nil {
			reason = req.Reason
		}

		updates := map[string]interface{}{
			"status":             models.LeaseStatusTerminated,
			"termination_date":   terminationDate,
			"termination_reason": reason,
		}
		if err := tx.Model(&lease).Updates(updates).Error; err != nil {
			return err
		}

		return tx.Model(&models.Unit{}).
			Where("id = ?", lease.UnitID).
			Update("status", models.UnitStatusVacant).Error
	})
	if err != nil {
		return nil, err
	}

	logger.GetLogger().Infof("租约终止: lease=%d unit=%d", lease.ID, lease.UnitID)
	return &lease, nil
}

// UpdateExpiredLeases 到期扫描
// 所有end_date已过的active租约转为expired，房源回退为vacant
// 单次扫描一个事务，重复执行找不到符合条件的行（幂等）
func (s *LeaseService) UpdateExpiredLeases() (int64, error) {
	var expired int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var leases []models.Lease
		if err := tx.Where("status = ? AND end_date IS NOT NULL AND end_date <= ?",
			models.LeaseStatusActive, s.now()).Find(&leases).Error; err != nil {
			return err
		}

		for _, lease := range leases {
			if err := tx.Model(&models.Lease{}).
				Where("id = ?", lease.ID).
				Update("status", models.LeaseStatusExpired).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Unit{}).
				Where("id = ?", lease.UnitID).
				Update("status", models.UnitStatusVacant).Error; err != nil {
				return err
			}
		}

		expired = int64(len(leases))
		return nil
	})
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		logger.GetLogger().Infof("到期扫描完成，%d 个租约转为expired", expired)
	}
	return expired, nil
}

// GetByUnit 查询房源当前租约：优先active，其次最近创建的一条
func (s *LeaseService) GetByUnit(unitID uint) (*models.Lease, error) {
	var lease models.Lease
	err := s.db.Where("unit_id = ? AND status = ?", unitID, models.LeaseStatusActive).
		Preload("Tenant").
		First(&lease).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.Where("unit_id = ?", unitID).
			Order("created_at DESC").
			Preload("Tenant").
			First(&lease).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("该房源没有租约")
		}
		return nil, err
	}
	return &lease, nil
}

// GetActiveByTenant 查询租客名下所有生效租约
func (s *LeaseService) GetActiveByTenant(tenantID uint) ([]models.Lease, error) {
	var leases []models.Lease
	err := s.db.Where("tenant_id = ? AND status = ?", tenantID, models.LeaseStatusActive).
		Preload("Unit").
		Find(&leases).Error
	return leases, err
}

// List 分页查询机构下的租约
func (s *LeaseService) List(orgID uint, status string, params *pagination.PageParams) ([]models.Lease, int64, error) {
	query := s.db.Model(&models.Lease{}).Where("organization_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var leases []models.Lease
	err := query.Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.PageSize).
		Preload("Unit").
		Preload("Tenant").
		Find(&leases).Error
	return leases, total, err
}
