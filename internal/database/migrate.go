package database

import (
	"rentms/internal/models"
	"rentms/pkg/logger"
)

// Migrate 执行数据库迁移
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := DB.AutoMigrate(
		&models.Organization{},
		&models.Property{},
		&models.Unit{},
		&models.Tenant{},
		&models.Lease{},
		&models.Invoice{},
		&models.PaymentTransaction{},
		&models.BillingRun{},
	)
	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	// 部分唯一索引：同一房源最多一个active租约
	// AutoMigrate不支持带WHERE的索引，用原生SQL兜底
	err = DB.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_leases_one_active_per_unit
		 ON leases (unit_id) WHERE status = 'active'`,
	).Error
	if err != nil {
		appLogger.Errorf("Create partial unique index failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")
	return nil
}
