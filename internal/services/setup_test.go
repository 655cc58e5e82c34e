package services

import (
	"testing"
	"time"

	"rentms/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB 内存SQLite测试库
// 限制单连接，避免每个连接各自一份内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Organization{},
		&models.Property{},
		&models.Unit{},
		&models.Tenant{},
		&models.Lease{},
		&models.Invoice{},
		&models.PaymentTransaction{},
		&models.BillingRun{},
	))

	// 与生产迁移一致的部分唯一索引
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_leases_one_active_per_unit
		 ON leases (unit_id) WHERE status = 'active'`,
	).Error)

	return db
}

// testFixtures 常用测试数据：机构/物业/房源/租客
type testFixtures struct {
	Org      models.Organization
	Property models.Property
	Unit     models.Unit
	Tenant   models.Tenant
}

// createFixtures 建一套基础数据，房源初始vacant
func createFixtures(t *testing.T, db *gorm.DB, feePct, feeFixed float64) *testFixtures {
	t.Helper()

	f := &testFixtures{}

	f.Org = models.Organization{Name: "测试机构"}
	require.NoError(t, db.Create(&f.Org).Error)

	f.Property = models.Property{OrganizationID: f.Org.ID, Name: "测试物业", City: "上海"}
	require.NoError(t, db.Create(&f.Property).Error)

	f.Unit = models.Unit{
		PropertyID:              f.Property.ID,
		Name:                    "A-101",
		Status:                  models.UnitStatusVacant,
		ManagementFeePercentage: feePct,
		ManagementFeeFixed:      feeFixed,
	}
	require.NoError(t, db.Create(&f.Unit).Error)

	f.Tenant = models.Tenant{
		OrganizationID: f.Org.ID,
		Name:           "张三",
		Email:          "zhangsan@example.com",
		Phone:          "13800000000",
	}
	require.NoError(t, db.Create(&f.Tenant).Error)

	return f
}

// date 构造UTC日期
func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// createActiveLease 直接插入一条active租约并把房源置为occupied
func createActiveLease(t *testing.T, db *gorm.DB, f *testFixtures, start time.Time, end *time.Time, rent float64, cycle string) *models.Lease {
	t.Helper()

	lease := &models.Lease{
		OrganizationID: f.Org.ID,
		UnitID:         f.Unit.ID,
		TenantID:       f.Tenant.ID,
		StartDate:      start,
		EndDate:        end,
		RentAmount:     rent,
		BillingCycle:   cycle,
		Status:         models.LeaseStatusActive,
	}
	require.NoError(t, db.Create(lease).Error)
	require.NoError(t, db.Model(&models.Unit{}).
		Where("id = ?", f.Unit.ID).
		Update("status", models.UnitStatusOccupied).Error)
	return lease
}
