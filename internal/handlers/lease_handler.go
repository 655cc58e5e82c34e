package handlers

import (
	"strconv"
	"strings"

	"rentms/internal/models"
	"rentms/internal/services"
	"rentms/pkg/pagination"
	"rentms/pkg/response"

	"github.com/gin-gonic/gin"
)

// LeaseHandler 租约处理器
type LeaseHandler struct {
	leaseService *services.LeaseService
}

// NewLeaseHandler 创建租约处理器
func NewLeaseHandler(leaseService *services.LeaseService) *LeaseHandler {
	return &LeaseHandler{leaseService: leaseService}
}

// Create 创建租约（同时生成首期账单）
func (h *LeaseHandler) Create(c *gin.Context) {
	var req models.CreateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	lease, invoice, err := h.leaseService.Create(&req)
	if err != nil {
		if err.Error() == "房源不存在" {
			response.NotFound(c, err.Error())
			return
		}
		if err.Error() == "房源已被占用，无法创建租约" ||
			err.Error() == "该房源在此期间已有生效租约" ||
			err.Error() == "租约结束日期必须晚于开始日期" {
			response.Conflict(c, err.Error())
			return
		}
		response.ServerError(c, "创建租约失败: "+err.Error())
		return
	}

	response.Success(c, gin.H{
		"lease":   lease,
		"invoice": invoice,
	})
}

// Terminate 终止租约
func (h *LeaseHandler) Terminate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的ID")
		return
	}

	var req models.TerminateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	lease, err := h.leaseService.Terminate(uint(id), &req)
	if err != nil {
		if err.Error() == "租约不存在" {
			response.NotFound(c, err.Error())
			return
		}
		if err.Error() == "租约已处于终止或到期状态" {
			response.Conflict(c, err.Error())
			return
		}
		response.ServerError(c, "终止租约失败: "+err.Error())
		return
	}

	response.Success(c, lease)
}

// GetByUnit 查询房源当前租约
func (h *LeaseHandler) GetByUnit(c *gin.Context) {
	unitID, err := strconv.ParseUint(c.Param("unit_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的房源ID")
		return
	}

	lease, err := h.leaseService.GetByUnit(uint(unitID))
	if err != nil {
		if strings.Contains(err.Error(), "没有租约") {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "查询租约失败: "+err.Error())
		return
	}

	response.Success(c, lease)
}

// GetActiveByTenant 查询租客名下生效租约
func (h *LeaseHandler) GetActiveByTenant(c *gin.Context) {
	tenantID, err := strconv.ParseUint(c.Param("tenant_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的租客ID")
		return
	}

	leases, err := h.leaseService.GetActiveByTenant(uint(tenantID))
	if err != nil {
		response.ServerError(c, "查询租约失败: "+err.Error())
		return
	}

	response.Success(c, leases)
}

// List 分页查询租约
func (h *LeaseHandler) List(c *gin.Context) {
	orgID, err := strconv.ParseUint(c.Query("organization_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的机构ID")
		return
	}

	params := pagination.ParsePageParams(c)
	leases, total, err := h.leaseService.List(uint(orgID), c.Query("status"), params)
	if err != nil {
		response.ServerError(c, "查询租约失败: "+err.Error())
		return
	}

	response.SuccessWithPage(c, leases, pagination.NewPageInfo(params.Page, params.PageSize, total))
}
