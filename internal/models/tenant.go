package models

// Tenant 租客
// 联系方式被催缴提醒直接使用，账单查询时需要预加载
type Tenant struct {
	BaseModel
	OrganizationID uint   `json:"organization_id" gorm:"not null;index"`
	Name           string `json:"name" gorm:"not null;size:100"`
	Email          string `json:"email" gorm:"size:100;index"`
	Phone          string `json:"phone" gorm:"size:20"`
	IDNumber       string `json:"id_number" gorm:"size:50"` // 证件号
	Status         string `json:"status" gorm:"default:'active';size:20"`
}

// TableName 表名
func (Tenant) TableName() string {
	return "tenants"
}
