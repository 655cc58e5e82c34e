package handlers

import (
	"strconv"

	"rentms/internal/services"
	"rentms/pkg/response"

	"github.com/gin-gonic/gin"
)

// BillingHandler 计费调度处理器
// 定时任务之外的手动触发入口
type BillingHandler struct {
	invoiceService *services.InvoiceService
	leaseService   *services.LeaseService
}

// NewBillingHandler 创建计费调度处理器
func NewBillingHandler(invoiceService *services.InvoiceService, leaseService *services.LeaseService) *BillingHandler {
	return &BillingHandler{
		invoiceService: invoiceService,
		leaseService:   leaseService,
	}
}

// TriggerRun 手动触发一次周期账单批处理
func (h *BillingHandler) TriggerRun(c *gin.Context) {
	scheduler := services.GetGlobalBillingScheduler()
	if scheduler == nil {
		response.ServerError(c, "计费调度器未初始化")
		return
	}

	result, err := scheduler.GenerateRecurringInvoices("manual")
	if err != nil {
		response.ServerError(c, "周期账单批处理失败: "+err.Error())
		return
	}

	response.Success(c, result)
}

// TriggerOverdueSweep 手动触发逾期扫描
func (h *BillingHandler) TriggerOverdueSweep(c *gin.Context) {
	count, err := h.invoiceService.UpdateOverdueInvoices()
	if err != nil {
		response.ServerError(c, "逾期扫描失败: "+err.Error())
		return
	}

	response.Success(c, gin.H{"updated": count})
}

// TriggerExpirySweep 手动触发租约到期扫描
func (h *BillingHandler) TriggerExpirySweep(c *gin.Context) {
	count, err := h.leaseService.UpdateExpiredLeases()
	if err != nil {
		response.ServerError(c, "到期扫描失败: "+err.Error())
		return
	}

	response.Success(c, gin.H{"expired": count})
}

// Runs 查询最近的批次记录
func (h *BillingHandler) Runs(c *gin.Context) {
	scheduler := services.GetGlobalBillingScheduler()
	if scheduler == nil {
		response.ServerError(c, "计费调度器未初始化")
		return
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			limit = n
		}
	}

	runs, err := scheduler.RecentRuns(limit)
	if err != nil {
		response.ServerError(c, "查询批次记录失败: "+err.Error())
		return
	}

	response.Success(c, runs)
}

// Status 调度器状态
func (h *BillingHandler) Status(c *gin.Context) {
	scheduler := services.GetGlobalBillingScheduler()
	running := scheduler != nil && scheduler.IsRunning()

	response.Success(c, gin.H{"running": running})
}
