package services

import (
	"errors"

	"rentms/internal/models"
	"rentms/pkg/pagination"

	"gorm.io/gorm"
)

// PropertyService 物业与房源的简单数据访问
// 计费核心只读取房源的占用状态和管理费配置，这里是外围的维护入口
type PropertyService struct {
	db *gorm.DB
}

// NewPropertyService 创建物业服务
func NewPropertyService(db *gorm.DB) *PropertyService {
	return &PropertyService{db: db}
}

// CreateProperty 创建物业
func (s *PropertyService) CreateProperty(property *models.Property) error {
	return s.db.Create(property).Error
}

// CreateUnit 创建房源，初始为vacant
func (s *PropertyService) CreateUnit(unit *models.Unit) error {
	var property models.Property
	if err := s.db.First(&property, unit.PropertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("物业不存在")
		}
		return err
	}

	if unit.Status == "" {
		unit.Status = models.UnitStatusVacant
	}
	return s.db.Create(unit).Error
}

// GetUnit 查询房源
func (s *PropertyService) GetUnit(unitID uint) (*models.Unit, error) {
	var unit models.Unit
	if err := s.db.Preload("Property").First(&unit, unitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("房源不存在")
		}
		return nil, err
	}
	return &unit, nil
}

// ListUnits 分页查询物业下的房源，可按状态过滤
func (s *PropertyService) ListUnits(propertyID uint, status string, params *pagination.PageParams) ([]models.Unit, int64, error) {
	query := s.db.Model(&models.Unit{}).Where("property_id = ?", propertyID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var units []models.Unit
	err := query.Order("id ASC").
		Offset(params.Offset()).
		Limit(params.PageSize).
		Find(&units).Error
	return units, total, err
}
