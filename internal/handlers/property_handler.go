package handlers

import (
	"strconv"

	"rentms/internal/models"
	"rentms/internal/services"
	"rentms/pkg/pagination"
	"rentms/pkg/response"

	"github.com/gin-gonic/gin"
)

// PropertyHandler 物业/房源/租客处理器（外围CRUD）
type PropertyHandler struct {
	propertyService *services.PropertyService
	tenantService   *services.TenantService
}

// NewPropertyHandler 创建物业处理器
func NewPropertyHandler(propertyService *services.PropertyService, tenantService *services.TenantService) *PropertyHandler {
	return &PropertyHandler{
		propertyService: propertyService,
		tenantService:   tenantService,
	}
}

// CreateProperty 创建物业
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	var property models.Property
	if err := c.ShouldBindJSON(&property); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.propertyService.CreateProperty(&property); err != nil {
		response.ServerError(c, "创建物业失败: "+err.Error())
		return
	}

	response.Success(c, property)
}

// CreateUnit 创建房源
func (h *PropertyHandler) CreateUnit(c *gin.Context) {
	var unit models.Unit
	if err := c.ShouldBindJSON(&unit); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.propertyService.CreateUnit(&unit); err != nil {
		if err.Error() == "物业不存在" {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "创建房源失败: "+err.Error())
		return
	}

	response.Success(c, unit)
}

// ListUnits 分页查询物业下的房源
func (h *PropertyHandler) ListUnits(c *gin.Context) {
	propertyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的物业ID")
		return
	}

	params := pagination.ParsePageParams(c)
	units, total, err := h.propertyService.ListUnits(uint(propertyID), c.Query("status"), params)
	if err != nil {
		response.ServerError(c, "查询房源失败: "+err.Error())
		return
	}

	response.SuccessWithPage(c, units, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// CreateTenant 创建租客
func (h *PropertyHandler) CreateTenant(c *gin.Context) {
	var tenant models.Tenant
	if err := c.ShouldBindJSON(&tenant); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.tenantService.Create(&tenant); err != nil {
		response.ServerError(c, "创建租客失败: "+err.Error())
		return
	}

	response.Success(c, tenant)
}
