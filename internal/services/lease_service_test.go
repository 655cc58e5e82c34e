package services

import (
	"testing"

	"rentms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLease(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewLeaseService(db)

	end := date(2025, 1, 1)
	lease, invoice, err := svc.Create(&models.CreateLeaseRequest{
		OrganizationID: f.Org.ID,
		UnitID:         f.Unit.ID,
		TenantID:       f.Tenant.ID,
		StartDate:      date(2024, 1, 1),
		EndDate:        &end,
		RentAmount:     100000,
		BillingCycle:   models.BillingCycleMonthly,
		CautionDeposit: 50000,
		AgencyFee:      10000,
		LegalFee:       5000,
	})
	require.NoError(t, err)

	// 租约落为draft，房源保持vacant直到付款激活
	assert.Equal(t, models.LeaseStatusDraft, lease.Status)
	var unit models.Unit
	require.NoError(t, db.First(&unit, f.Unit.ID).Error)
	assert.Equal(t, models.UnitStatusVacant, unit.Status)

	// 首期账单：总额=租金+押金+中介费+法务费，拆分为租金归业主、费用归机构
	require.NotNil(t, invoice)
	assert.Equal(t, models.InvoiceStatusPending, invoice.Status)
	assert.Equal(t, models.InvoiceTypeRent, invoice.Type)
	assert.Equal(t, 165000.0, invoice.Amount)
	require.NotNil(t, invoice.OwnerAmount)
	require.NotNil(t, invoice.ManagementFee)
	assert.Equal(t, 100000.0, *invoice.OwnerAmount)
	assert.Equal(t, 15000.0, *invoice.ManagementFee)
	assert.True(t, invoice.DueDate.Equal(date(2024, 1, 1)))
}

func TestCreateLeaseRejectsOccupiedUnit(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewLeaseService(db)

	require.NoError(t, db.Model(&models.Unit{}).
		Where("id = ?", f.Unit.ID).
		Update("status", models.UnitStatusOccupied).Error)

	_, _, err := svc.Create(&models.CreateLeaseRequest{
		OrganizationID: f.Org.ID,
		UnitID:         f.Unit.ID,
		TenantID:       f.Tenant.ID,
		StartDate:      date(2024, 1, 1),
		RentAmount:     100000,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "已被占用")
}

func TestCreateLeaseRejectsOverlap(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewLeaseService(db)

	// 已有active租约 2024-01-01 ~ 2024-12-31，但房源状态被人工改回vacant
	// （占用检查之外重叠检查也必须兜住）
	end := date(2024, 12, 31)
	createActiveLease(t, db, f, date(2024, 1, 1), &end, 100000, models.BillingCycleMonthly)
	require.NoError(t, db.Model(&models.Unit{}).
		Where("id = ?", f.Unit.ID).
		Update("status", models.UnitStatusVacant).Error)

	// 区间相交被拒绝
	newEnd := date(2025, 6, 1)
	_, _, err := svc.Create(&models.CreateLeaseRequest{
		OrganizationID: f.Org.ID,
		UnitID:         f.Unit.ID,
		TenantID:       f.Tenant.ID,
		StartDate:      date(2024, 6, 1),
		EndDate:        &newEnd,
		RentAmount:     100000,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "已有生效租约")

	// 完全错开的区间可以创建
	laterEnd := date(2026, 1, 1)
	_, _, err = svc.Create(&models.CreateLeaseRequest{
		OrganizationID: f.Org.ID,
		UnitID:         f.Unit.ID,
		TenantID:       f.Tenant.ID,
		StartDate:      date(2025, 1, 1),
		EndDate:        &laterEnd,
		RentAmount:     100000,
	})
	assert.NoError(t, err)
}

func TestCreateLeaseRejectsOverlapWithOpenEndedLease(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewLeaseService(db)

	// 不定期active租约的结束日期按正无穷参与比较
	createActiveLease(t, db, f, date(2024, 1, 1), nil, 100000, models.BillingCycleMonthly)
	require.NoError(t, db.Model(&models.Unit{}).
		Where("id = ?", f.Unit.ID).
		Update("status", models.UnitStatusVacant).Error)

	end := date(2030, 1, 1)
	_, _, err := svc.Create(&models.CreateLeaseRequest{
		OrganizationID: f.Org.ID,
		UnitID:         f.Unit.ID,
		TenantID:       f.Tenant.ID,
		StartDate:      date(2029, 1, 1),
		EndDate:        &end,
		RentAmount:     100000,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "已有生效租约")
}

func TestTerminateLease(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewLeaseService(db)

	end := date(2025, 1, 1)
	lease := createActiveLease(t, db, f, date(2024, 1, 1), &end, 100000, models.BillingCycleMonthly)

	terminated, err := svc.Terminate(lease.ID, &models.TerminateLeaseRequest{Reason: "租客提前退租"})
	require.NoError(t, err)
	assert.Equal(t, models.LeaseStatusTerminated, terminated.Status)

	var reloaded models.Lease
	require.NoError(t, db.First(&reloaded, lease.ID).Error)
	assert.Equal(t, models.LeaseStatusTerminated, reloaded.Status)
	assert.Equal(t, "租客提前退租", reloaded.TerminationReason)
	assert.NotNil(t, reloaded.TerminationDate)

	// 房源回退vacant
	var unit models.Unit
	require.NoError(t, db.First(&unit, f.Unit.ID).Error)
	assert.Equal(t, models.UnitStatusVacant, unit.Status)

	// 重复终止报错
	_, err = svc.Terminate(lease.ID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "已处于终止或到期状态")
}

func TestUpdateExpiredLeases(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewLeaseService(db)

	// 一条已过期、一条未到期
	pastEnd := date(2024, 1, 1)
	expired := createActiveLease(t, db, f, date(2023, 1, 1), &pastEnd, 100000, models.BillingCycleMonthly)

	f2 := createFixtures(t, db, 0, 0)
	futureEnd := date(2999, 1, 1)
	running := createActiveLease(t, db, f2, date(2024, 1, 1), &futureEnd, 100000, models.BillingCycleMonthly)

	count, err := svc.UpdateExpiredLeases()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var reloaded models.Lease
	require.NoError(t, db.First(&reloaded, expired.ID).Error)
	assert.Equal(t, models.LeaseStatusExpired, reloaded.Status)

	var unit models.Unit
	require.NoError(t, db.First(&unit, f.Unit.ID).Error)
	assert.Equal(t, models.UnitStatusVacant, unit.Status)

	require.NoError(t, db.First(&reloaded, running.ID).Error)
	assert.Equal(t, models.LeaseStatusActive, reloaded.Status)

	// 幂等：第二次扫描没有可处理的行
	count, err = svc.UpdateExpiredLeases()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestGetActiveByTenantAndGetByUnit(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewLeaseService(db)

	end := date(2025, 1, 1)
	lease := createActiveLease(t, db, f, date(2024, 1, 1), &end, 100000, models.BillingCycleMonthly)

	leases, err := svc.GetActiveByTenant(f.Tenant.ID)
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.Equal(t, lease.ID, leases[0].ID)

	byUnit, err := svc.GetByUnit(f.Unit.ID)
	require.NoError(t, err)
	assert.Equal(t, lease.ID, byUnit.ID)

	// 没有租约的房源
	f2 := createFixtures(t, db, 0, 0)
	_, err = svc.GetByUnit(f2.Unit.ID)
	require.Error(t, err)
}
