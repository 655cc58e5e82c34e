package services

import (
	"errors"

	"rentms/internal/models"
	"rentms/pkg/pagination"

	"gorm.io/gorm"
)

// TenantService 租客的简单数据访问
type TenantService struct {
	db *gorm.DB
}

// NewTenantService 创建租客服务
func NewTenantService(db *gorm.DB) *TenantService {
	return &TenantService{db: db}
}

// Create 创建租客
func (s *TenantService) Create(tenant *models.Tenant) error {
	return s.db.Create(tenant).Error
}

// GetByID 查询租客
func (s *TenantService) GetByID(tenantID uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("租客不存在")
		}
		return nil, err
	}
	return &tenant, nil
}

// List 分页查询机构下的租客
func (s *TenantService) List(orgID uint, params *pagination.PageParams) ([]models.Tenant, int64, error) {
	query := s.db.Model(&models.Tenant{}).Where("organization_id = ?", orgID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tenants []models.Tenant
	err := query.Order("id ASC").
		Offset(params.Offset()).
		Limit(params.PageSize).
		Find(&tenants).Error
	return tenants, total, err
}
