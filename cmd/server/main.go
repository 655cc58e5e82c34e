package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentms/internal/database"
	"rentms/internal/router"
	"rentms/internal/services"
	"rentms/pkg/config"
	"rentms/pkg/logger"
	"rentms/pkg/queue"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting Rental Management Billing Service...")

	// 初始化数据库
	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
	}()

	// 执行数据库迁移
	if err := database.Migrate(); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化提醒队列，Redis不可用时降级为不推送提醒
	var reminderQueue *queue.ReminderQueue
	rq := queue.NewReminderQueue(&queue.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	if err := rq.Ping(); err != nil {
		appLogger.Warnf("Redis连接失败，催缴提醒不可用: %v", err)
		rq.Close()
	} else {
		reminderQueue = rq
		defer reminderQueue.Close()
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 组装服务：租约激活通过支付完成事件挂接到账单服务
	db := database.GetDB()
	leaseService := services.NewLeaseService(db)
	invoiceService := services.NewInvoiceService(db, cfg.Billing.PaymentMaxRetries)
	invoiceService.RegisterPaymentCompletedHandler(leaseService)
	notificationService := services.NewNotificationService(invoiceService, reminderQueue, cfg.Billing.ReminderDaysAhead)

	// 创建并启动计费调度器（必须在路由初始化前）
	billingScheduler := services.NewBillingScheduler(db, invoiceService, leaseService, notificationService, cfg.Billing)
	services.SetGlobalBillingScheduler(billingScheduler)
	if err := billingScheduler.Start(); err != nil {
		appLogger.Errorf("Failed to start billing scheduler: %v", err)
		// 不影响主服务启动
	}
	defer billingScheduler.Stop()

	// 设置路由
	r := router.SetupRouter(invoiceService, leaseService)

	// 启动服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Errorf("Failed to shutdown server: %v", err)
	}
}
