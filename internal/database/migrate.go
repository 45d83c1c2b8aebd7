package database

import (
	"adminhub/internal/models"
	"adminhub/pkg/logger"
)

// Migrate 执行数据库迁移
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := DB.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.RolePermission{},
		&models.PermissionTemplate{},
		&models.Organization{},
		&models.UserOrganization{},
		&models.DataPermissionRule{},
		&models.RoleDataPermission{},
		&models.UserSession{},
		&models.SystemLog{},
	)
	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")
	return nil
}
