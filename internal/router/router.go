package router

import (
	"time"

	"rentms/internal/database"
	"rentms/internal/handlers"
	"rentms/internal/middleware"
	"rentms/internal/services"
	"rentms/pkg/response"

	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(invoiceService *services.InvoiceService, leaseService *services.LeaseService) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.SetupCORS())

	registerRoutes(router, invoiceService, leaseService)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, invoiceService *services.InvoiceService, leaseService *services.LeaseService) {
	db := database.GetDB()

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		// 租约
		leaseHandler := handlers.NewLeaseHandler(leaseService)
		leases := api.Group("/leases")
		{
			leases.POST("", leaseHandler.Create)                 // 创建租约（含首期账单）
			leases.GET("", leaseHandler.List)                    // 分页查询
			leases.POST("/:id/terminate", leaseHandler.Terminate) // 终止租约
		}
		api.GET("/units/:unit_id/lease", leaseHandler.GetByUnit)              // 房源当前租约
		api.GET("/tenants/:tenant_id/leases/active", leaseHandler.GetActiveByTenant) // 租客生效租约

		// 账单
		invoiceHandler := handlers.NewInvoiceHandler(invoiceService)
		invoices := api.Group("/invoices")
		{
			invoices.POST("", invoiceHandler.Create)                     // 创建账单
			invoices.GET("", invoiceHandler.List)                        // 分页查询
			invoices.GET("/upcoming", invoiceHandler.Upcoming)           // 即将到期
			invoices.GET("/overdue", invoiceHandler.Overdue)             // 已逾期
			invoices.GET("/:id", invoiceHandler.Get)                     // 单个账单
			invoices.POST("/:id/payments", invoiceHandler.RecordPayment) // 收款入账
			invoices.GET("/:id/transactions", invoiceHandler.Transactions) // 收款流水
			invoices.POST("/:id/void", invoiceHandler.Void)              // 作废
		}

		// 计费调度（手动触发入口）
		billingHandler := handlers.NewBillingHandler(invoiceService, leaseService)
		billing := api.Group("/billing")
		{
			billing.POST("/runs", billingHandler.TriggerRun)                  // 手动触发批处理
			billing.GET("/runs", billingHandler.Runs)                         // 批次记录
			billing.POST("/sweeps/overdue", billingHandler.TriggerOverdueSweep) // 逾期扫描
			billing.POST("/sweeps/expiry", billingHandler.TriggerExpirySweep)   // 到期扫描
			billing.GET("/status", billingHandler.Status)                     // 调度器状态
		}

		// 物业/房源/租客（外围CRUD）
		propertyHandler := handlers.NewPropertyHandler(
			services.NewPropertyService(db),
			services.NewTenantService(db),
		)
		api.POST("/properties", propertyHandler.CreateProperty)
		api.GET("/properties/:id/units", propertyHandler.ListUnits)
		api.POST("/units", propertyHandler.CreateUnit)
		api.POST("/tenants", propertyHandler.CreateTenant)
	}
}

func healthCheck(c *gin.Context) {
	data := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "RentMS",
		"version":   "1.0.0",
	}
	response.Success(c, data)
}

func ping(c *gin.Context) {
	response.SuccessWithMessage(c, "pong", nil)
}
