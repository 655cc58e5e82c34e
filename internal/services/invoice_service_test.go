package services

import (
	"sync"
	"testing"
	"time"

	"rentms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecordPaymentPartialThenPaid(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewInvoiceService(db, 3)

	invoice := &models.Invoice{
		OrganizationID: f.Org.ID,
		TenantID:       f.Tenant.ID,
		Type:           models.InvoiceTypeRent,
		Amount:         300000,
		DueDate:        date(2024, 1, 1),
		Status:         models.InvoiceStatusPending,
	}
	require.NoError(t, db.Create(invoice).Error)

	// 第一笔 100000 → partial
	updated, err := svc.RecordPayment(invoice.ID, &models.RecordPaymentRequest{Amount: 100000}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPartial, updated.Status)
	assert.Equal(t, 100000.0, updated.AmountPaid)

	// 第二笔 200000 → paid
	updated, err = svc.RecordPayment(invoice.ID, &models.RecordPaymentRequest{Amount: 200000}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, updated.Status)
	assert.Equal(t, 300000.0, updated.AmountPaid)

	// 已付清后再收款被拒绝
	_, err = svc.RecordPayment(invoice.ID, &models.RecordPaymentRequest{Amount: 1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "已付清")

	// 流水之和等于amount_paid
	transactions, err := svc.GetTransactions(invoice.ID)
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	var sum float64
	for _, tx := range transactions {
		sum += tx.Amount
	}
	assert.Equal(t, 300000.0, sum)
}

func TestRecordPaymentRejectsExceedingRemaining(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewInvoiceService(db, 3)

	invoice := &models.Invoice{
		OrganizationID: f.Org.ID,
		TenantID:       f.Tenant.ID,
		Amount:         300000,
		DueDate:        date(2024, 1, 1),
		Status:         models.InvoiceStatusPending,
	}
	require.NoError(t, db.Create(invoice).Error)

	_, err := svc.RecordPayment(invoice.ID, &models.RecordPaymentRequest{Amount: 100000}, nil)
	require.NoError(t, err)

	// 超过未付余额被拒绝，且不留任何部分状态
	_, err = svc.RecordPayment(invoice.ID, &models.RecordPaymentRequest{Amount: 250000}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "超过账单未付余额")

	var reloaded models.Invoice
	require.NoError(t, db.First(&reloaded, invoice.ID).Error)
	assert.Equal(t, 100000.0, reloaded.AmountPaid)
	assert.Equal(t, models.InvoiceStatusPartial, reloaded.Status)

	transactions, err := svc.GetTransactions(invoice.ID)
	require.NoError(t, err)
	assert.Len(t, transactions, 1)
}

func TestRecordPaymentActivatesDraftLease(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	leaseSvc := NewLeaseService(db)
	invoiceSvc := NewInvoiceService(db, 3)
	invoiceSvc.RegisterPaymentCompletedHandler(leaseSvc)

	end := date(2025, 1, 1)
	lease, invoice, err := leaseSvc.Create(&models.CreateLeaseRequest{
		OrganizationID: f.Org.ID,
		UnitID:         f.Unit.ID,
		TenantID:       f.Tenant.ID,
		StartDate:      date(2024, 1, 1),
		EndDate:        &end,
		RentAmount:     500000,
	})
	require.NoError(t, err)
	require.Equal(t, 500000.0, invoice.Amount)

	// 一笔付清首期账单：账单paid + 租约draft→active + 房源vacant→occupied
	updated, err := invoiceSvc.RecordPayment(invoice.ID, &models.RecordPaymentRequest{Amount: 500000}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, updated.Status)

	var reloadedLease models.Lease
	require.NoError(t, db.First(&reloadedLease, lease.ID).Error)
	assert.Equal(t, models.LeaseStatusActive, reloadedLease.Status)

	var unit models.Unit
	require.NoError(t, db.First(&unit, f.Unit.ID).Error)
	assert.Equal(t, models.UnitStatusOccupied, unit.Status)
}

func TestRecordPaymentPartialDoesNotActivate(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	leaseSvc := NewLeaseService(db)
	invoiceSvc := NewInvoiceService(db, 3)
	invoiceSvc.RegisterPaymentCompletedHandler(leaseSvc)

	lease, invoice, err := leaseSvc.Create(&models.CreateLeaseRequest{
		OrganizationID: f.Org.ID,
		UnitID:         f.Unit.ID,
		TenantID:       f.Tenant.ID,
		StartDate:      date(2024, 1, 1),
		RentAmount:     500000,
	})
	require.NoError(t, err)

	_, err = invoiceSvc.RecordPayment(invoice.ID, &models.RecordPaymentRequest{Amount: 200000}, nil)
	require.NoError(t, err)

	var reloadedLease models.Lease
	require.NoError(t, db.First(&reloadedLease, lease.ID).Error)
	assert.Equal(t, models.LeaseStatusDraft, reloadedLease.Status)
}

func TestConcurrentPaymentsSerialize(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewInvoiceService(db, 5)

	invoice := &models.Invoice{
		OrganizationID: f.Org.ID,
		TenantID:       f.Tenant.ID,
		Amount:         300000,
		DueDate:        date(2024, 1, 1),
		Status:         models.InvoiceStatusPending,
	}
	require.NoError(t, db.Create(invoice).Error)

	// 两笔并发收款通过版本号CAS串行化，不会重复记账
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordPayment(invoice.ID, &models.RecordPaymentRequest{Amount: 150000}, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var reloaded models.Invoice
	require.NoError(t, db.First(&reloaded, invoice.ID).Error)
	assert.Equal(t, 300000.0, reloaded.AmountPaid)
	assert.Equal(t, models.InvoiceStatusPaid, reloaded.Status)

	transactions, err := svc.GetTransactions(invoice.ID)
	require.NoError(t, err)
	assert.Len(t, transactions, 2)
}

func TestCreateInvoiceDerivesFeeSplit(t *testing.T) {
	db := setupTestDB(t)
	// 管理费10%
	f := createFixtures(t, db, 10, 0)
	svc := NewInvoiceService(db, 3)

	end := date(2025, 1, 1)
	lease := createActiveLease(t, db, f, date(2024, 1, 1), &end, 200000, models.BillingCycleMonthly)

	invoice, err := svc.Create(&models.CreateInvoiceRequest{
		OrganizationID: f.Org.ID,
		LeaseID:        &lease.ID,
		TenantID:       f.Tenant.ID,
		Type:           models.InvoiceTypeRent,
		Amount:         200000,
		DueDate:        date(2024, 2, 1),
	})
	require.NoError(t, err)
	require.NotNil(t, invoice.ManagementFee)
	require.NotNil(t, invoice.OwnerAmount)
	assert.Equal(t, 20000.0, *invoice.ManagementFee)
	assert.Equal(t, 180000.0, *invoice.OwnerAmount)
}

func TestCreateInvoiceFixedFeeFallback(t *testing.T) {
	db := setupTestDB(t)
	// 百分比为0时回退固定管理费
	f := createFixtures(t, db, 0, 15000)
	svc := NewInvoiceService(db, 3)

	end := date(2025, 1, 1)
	lease := createActiveLease(t, db, f, date(2024, 1, 1), &end, 200000, models.BillingCycleMonthly)

	invoice, err := svc.Create(&models.CreateInvoiceRequest{
		OrganizationID: f.Org.ID,
		LeaseID:        &lease.ID,
		TenantID:       f.Tenant.ID,
		Amount:         200000,
		DueDate:        date(2024, 2, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 15000.0, *invoice.ManagementFee)
	assert.Equal(t, 185000.0, *invoice.OwnerAmount)
}

func TestGenerateRecurringInvoice(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewInvoiceService(db, 3)
	svc.now = fixedNow(date(2024, 2, 1))

	end := date(2025, 1, 1)
	lease := createActiveLease(t, db, f, date(2024, 1, 1), &end, 100000, models.BillingCycleMonthly)

	// 第一次调用生成2024-02-01到期的租金账单
	invoice, err := svc.GenerateRecurringInvoice(lease.ID)
	require.NoError(t, err)
	require.NotNil(t, invoice)
	assert.Equal(t, models.InvoiceTypeRent, invoice.Type)
	assert.Equal(t, models.InvoiceStatusPending, invoice.Status)
	assert.Equal(t, 100000.0, invoice.Amount)
	assert.True(t, invoice.DueDate.Equal(date(2024, 2, 1)))

	// 紧接着的第二次调用不生成任何账单（幂等）
	invoice, err = svc.GenerateRecurringInvoice(lease.ID)
	require.NoError(t, err)
	assert.Nil(t, invoice)

	var count int64
	require.NoError(t, db.Model(&models.Invoice{}).Where("lease_id = ?", lease.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGenerateRecurringInvoiceRequiresActiveLease(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewInvoiceService(db, 3)

	lease := &models.Lease{
		OrganizationID: f.Org.ID,
		UnitID:         f.Unit.ID,
		TenantID:       f.Tenant.ID,
		StartDate:      date(2024, 1, 1),
		RentAmount:     100000,
		BillingCycle:   models.BillingCycleMonthly,
		Status:         models.LeaseStatusDraft,
	}
	require.NoError(t, db.Create(lease).Error)

	_, err := svc.GenerateRecurringInvoice(lease.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "active")
}

func TestGenerateRecurringInvoiceSkipsWhenPrepaid(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewInvoiceService(db, 3)
	svc.now = fixedNow(date(2024, 2, 1))

	end := date(2025, 1, 1)
	lease := createActiveLease(t, db, f, date(2024, 1, 1), &end, 100000, models.BillingCycleMonthly)

	// 租客已提前缴了两期
	require.NoError(t, db.Create(&models.Invoice{
		OrganizationID: f.Org.ID,
		LeaseID:        &lease.ID,
		TenantID:       f.Tenant.ID,
		Type:           models.InvoiceTypeRent,
		Amount:         200000,
		AmountPaid:     200000,
		DueDate:        date(2024, 1, 1),
		Status:         models.InvoiceStatusPaid,
	}).Error)

	invoice, err := svc.GenerateRecurringInvoice(lease.ID)
	require.NoError(t, err)
	assert.Nil(t, invoice)
}

func TestGenerateRecurringInvoiceStopsAtLeaseEnd(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewInvoiceService(db, 3)
	svc.now = fixedNow(date(2024, 3, 1))

	// 租约2024-02-15收尾，下一期2024-03-01超过endDate，不出账
	end := date(2024, 2, 15)
	lease := createActiveLease(t, db, f, date(2024, 1, 1), &end, 100000, models.BillingCycleMonthly)

	require.NoError(t, db.Create(&models.Invoice{
		OrganizationID: f.Org.ID,
		LeaseID:        &lease.ID,
		TenantID:       f.Tenant.ID,
		Type:           models.InvoiceTypeRent,
		Amount:         100000,
		AmountPaid:     100000,
		DueDate:        date(2024, 2, 1),
		Status:         models.InvoiceStatusPaid,
	}).Error)

	invoice, err := svc.GenerateRecurringInvoice(lease.ID)
	require.NoError(t, err)
	assert.Nil(t, invoice)
}

func TestGenerateRecurringInvoiceClampsMonthEnd(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewInvoiceService(db, 3)
	svc.now = fixedNow(date(2024, 3, 5))

	// 1月31日起租，下一期对齐到2月29日（闰年），而不是3月2日
	end := date(2025, 1, 31)
	lease := createActiveLease(t, db, f, date(2024, 1, 31), &end, 100000, models.BillingCycleMonthly)

	invoice, err := svc.GenerateRecurringInvoice(lease.ID)
	require.NoError(t, err)
	require.NotNil(t, invoice)
	assert.True(t, invoice.DueDate.Equal(date(2024, 2, 29)),
		"期望2024-02-29，实际 %s", invoice.DueDate.Format("2006-01-02"))
}

func TestGenerateRecurringInvoiceDoesNotBillFuturePeriods(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewInvoiceService(db, 3)
	svc.now = fixedNow(date(2024, 2, 10))

	end := date(2025, 1, 1)
	lease := createActiveLease(t, db, f, date(2024, 1, 1), &end, 100000, models.BillingCycleMonthly)

	// 2月份的账单已存在且未付，3月还没到，不提前开票
	require.NoError(t, db.Create(&models.Invoice{
		OrganizationID: f.Org.ID,
		LeaseID:        &lease.ID,
		TenantID:       f.Tenant.ID,
		Type:           models.InvoiceTypeRent,
		Amount:         100000,
		DueDate:        date(2024, 2, 1),
		Status:         models.InvoiceStatusPending,
	}).Error)

	invoice, err := svc.GenerateRecurringInvoice(lease.ID)
	require.NoError(t, err)
	assert.Nil(t, invoice)
}

func TestUpdateOverdueInvoices(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewInvoiceService(db, 3)
	svc.now = fixedNow(date(2024, 3, 1))

	// 到期未付 → overdue；未到期和partial不受影响
	duePast := &models.Invoice{
		OrganizationID: f.Org.ID, TenantID: f.Tenant.ID,
		Amount: 100000, DueDate: date(2024, 2, 1), Status: models.InvoiceStatusPending,
	}
	dueFuture := &models.Invoice{
		OrganizationID: f.Org.ID, TenantID: f.Tenant.ID,
		Amount: 100000, DueDate: date(2024, 4, 1), Status: models.InvoiceStatusPending,
	}
	partial := &models.Invoice{
		OrganizationID: f.Org.ID, TenantID: f.Tenant.ID,
		Amount: 100000, AmountPaid: 50000, DueDate: date(2024, 2, 1), Status: models.InvoiceStatusPartial,
	}
	require.NoError(t, db.Create(duePast).Error)
	require.NoError(t, db.Create(dueFuture).Error)
	require.NoError(t, db.Create(partial).Error)

	count, err := svc.UpdateOverdueInvoices()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var reloaded models.Invoice
	require.NoError(t, db.First(&reloaded, duePast.ID).Error)
	assert.Equal(t, models.InvoiceStatusOverdue, reloaded.Status)

	// 幂等
	count, err = svc.UpdateOverdueInvoices()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestGetUpcomingAndOverdueInvoices(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewInvoiceService(db, 3)
	svc.now = fixedNow(date(2024, 3, 1))

	upcoming := &models.Invoice{
		OrganizationID: f.Org.ID, TenantID: f.Tenant.ID,
		Amount: 100000, DueDate: date(2024, 3, 5), Status: models.InvoiceStatusPending,
	}
	farFuture := &models.Invoice{
		OrganizationID: f.Org.ID, TenantID: f.Tenant.ID,
		Amount: 100000, DueDate: date(2024, 6, 1), Status: models.InvoiceStatusPending,
	}
	overdue := &models.Invoice{
		OrganizationID: f.Org.ID, TenantID: f.Tenant.ID,
		Amount: 100000, DueDate: date(2024, 1, 1), Status: models.InvoiceStatusOverdue,
	}
	require.NoError(t, db.Create(upcoming).Error)
	require.NoError(t, db.Create(farFuture).Error)
	require.NoError(t, db.Create(overdue).Error)

	got, err := svc.GetUpcomingInvoices(7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, upcoming.ID, got[0].ID)
	// 带租客联系方式，供提醒层组装消息
	require.NotNil(t, got[0].Tenant)
	assert.Equal(t, "zhangsan@example.com", got[0].Tenant.Email)

	gotOverdue, err := svc.GetOverdueInvoices()
	require.NoError(t, err)
	require.Len(t, gotOverdue, 1)
	assert.Equal(t, overdue.ID, gotOverdue[0].ID)
	require.NotNil(t, gotOverdue[0].Tenant)
}

func TestVoidInvoice(t *testing.T) {
	db := setupTestDB(t)
	f := createFixtures(t, db, 0, 0)
	svc := NewInvoiceService(db, 3)

	invoice := &models.Invoice{
		OrganizationID: f.Org.ID, TenantID: f.Tenant.ID,
		Amount: 100000, DueDate: date(2024, 1, 1), Status: models.InvoiceStatusPending,
	}
	require.NoError(t, db.Create(invoice).Error)

	voided, err := svc.Void(invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusVoid, voided.Status)

	// 已有收款的账单不允许作废
	paid := &models.Invoice{
		OrganizationID: f.Org.ID, TenantID: f.Tenant.ID,
		Amount: 100000, AmountPaid: 50000, DueDate: date(2024, 1, 1), Status: models.InvoiceStatusPartial,
	}
	require.NoError(t, db.Create(paid).Error)
	_, err = svc.Void(paid.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "不允许作废")
}
