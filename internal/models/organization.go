package models

// Organization 管理机构（中介/物业公司）
type Organization struct {
	BaseModel
	Name   string `json:"name" gorm:"not null;size:200"`
	Email  string `json:"email" gorm:"size:100"`
	Phone  string `json:"phone" gorm:"size:20"`
	Status string `json:"status" gorm:"default:'active';size:20"`
}

// TableName 表名
func (Organization) TableName() string {
	return "organizations"
}
