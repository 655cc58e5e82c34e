package models

// Property 物业（楼盘/房产）
type Property struct {
	BaseModel
	OrganizationID uint   `json:"organization_id" gorm:"not null;index"`
	Name           string `json:"name" gorm:"not null;size:200"`
	Address        string `json:"address" gorm:"size:500"`
	City           string `json:"city" gorm:"size:100"`
	Description    string `json:"description" gorm:"size:500"`

	// 关联
	Units []Unit `json:"units,omitempty" gorm:"foreignKey:PropertyID"`
}

// TableName 表名
func (Property) TableName() string {
	return "properties"
}

// Unit 房源单元
// 管理费配置是费用拆分的只读输入：优先按百分比，百分比为0时回退到固定金额
type Unit struct {
	BaseModel
	PropertyID              uint    `json:"property_id" gorm:"not null;index"`
	Name                    string  `json:"name" gorm:"not null;size:100"`
	Status                  string  `json:"status" gorm:"default:'vacant';size:20;index"`
	RentAmount              float64 `json:"rent_amount" gorm:"type:decimal(12,2);default:0"`     // 挂牌租金
	ManagementFeePercentage float64 `json:"management_fee_percentage" gorm:"type:decimal(5,2);default:0"` // 管理费百分比
	ManagementFeeFixed      float64 `json:"management_fee_fixed" gorm:"type:decimal(12,2);default:0"`     // 固定管理费

	// 关联
	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}

// TableName 表名
func (Unit) TableName() string {
	return "units"
}

// 房源状态常量
const (
	UnitStatusVacant   = "vacant"   // 空置
	UnitStatusOccupied = "occupied" // 已入住
)
