package handlers

import (
	"strconv"

	"rentms/internal/models"
	"rentms/internal/services"
	"rentms/pkg/pagination"
	"rentms/pkg/response"

	"github.com/gin-gonic/gin"
)

// InvoiceHandler 账单处理器
type InvoiceHandler struct {
	invoiceService *services.InvoiceService
}

// NewInvoiceHandler 创建账单处理器
func NewInvoiceHandler(invoiceService *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// Create 创建账单
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req models.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	invoice, err := h.invoiceService.Create(&req)
	if err != nil {
		if err.Error() == "租约不存在" {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "创建账单失败: "+err.Error())
		return
	}

	response.Success(c, invoice)
}

// Get 查询单个账单
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的ID")
		return
	}

	invoice, err := h.invoiceService.GetByID(uint(id))
	if err != nil {
		if err.Error() == "账单不存在" {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "查询账单失败: "+err.Error())
		return
	}

	response.Success(c, invoice)
}

// RecordPayment 收款入账
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的ID")
		return
	}

	var req models.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	// 经办人由网关层注入，没有则按系统入账
	var recordedBy *uint
	if userIDStr := c.GetHeader("X-User-ID"); userIDStr != "" {
		if userID, err := strconv.ParseUint(userIDStr, 10, 32); err == nil {
			uid := uint(userID)
			recordedBy = &uid
		}
	}

	invoice, err := h.invoiceService.RecordPayment(uint(id), &req, recordedBy)
	if err != nil {
		if err.Error() == "账单不存在" {
			response.NotFound(c, err.Error())
			return
		}
		if err.Error() == "账单已付清" ||
			err.Error() == "账单已作废" ||
			err.Error() == "收款金额超过账单未付余额" {
			response.Conflict(c, err.Error())
			return
		}
		response.ServerError(c, "收款入账失败: "+err.Error())
		return
	}

	response.Success(c, invoice)
}

// Void 作废账单
func (h *InvoiceHandler) Void(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的ID")
		return
	}

	invoice, err := h.invoiceService.Void(uint(id))
	if err != nil {
		if err.Error() == "账单不存在" {
			response.NotFound(c, err.Error())
			return
		}
		if err.Error() == "账单已作废" || err.Error() == "已有收款的账单不允许作废" {
			response.Conflict(c, err.Error())
			return
		}
		response.ServerError(c, "作废账单失败: "+err.Error())
		return
	}

	response.Success(c, invoice)
}

// Transactions 查询账单收款流水
func (h *InvoiceHandler) Transactions(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的ID")
		return
	}

	transactions, err := h.invoiceService.GetTransactions(uint(id))
	if err != nil {
		response.ServerError(c, "查询流水失败: "+err.Error())
		return
	}

	response.Success(c, transactions)
}

// Upcoming 查询即将到期的账单（供提醒层使用）
func (h *InvoiceHandler) Upcoming(c *gin.Context) {
	daysAhead := 7
	if daysStr := c.Query("days_ahead"); daysStr != "" {
		if days, err := strconv.Atoi(daysStr); err == nil && days > 0 {
			daysAhead = days
		}
	}

	invoices, err := h.invoiceService.GetUpcomingInvoices(daysAhead)
	if err != nil {
		response.ServerError(c, "查询账单失败: "+err.Error())
		return
	}

	response.Success(c, invoices)
}

// Overdue 查询逾期账单（供提醒层使用）
func (h *InvoiceHandler) Overdue(c *gin.Context) {
	invoices, err := h.invoiceService.GetOverdueInvoices()
	if err != nil {
		response.ServerError(c, "查询账单失败: "+err.Error())
		return
	}

	response.Success(c, invoices)
}

// List 分页查询账单
func (h *InvoiceHandler) List(c *gin.Context) {
	orgID, err := strconv.ParseUint(c.Query("organization_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的机构ID")
		return
	}

	params := pagination.ParsePageParams(c)
	invoices, total, err := h.invoiceService.List(uint(orgID), c.Query("status"), params)
	if err != nil {
		response.ServerError(c, "查询账单失败: "+err.Error())
		return
	}

	response.SuccessWithPage(c, invoices, pagination.NewPageInfo(params.Page, params.PageSize, total))
}
