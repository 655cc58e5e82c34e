package services

import (
	"rentms/internal/models"
	"rentms/pkg/logger"
	"rentms/pkg/queue"
)

// NotificationService 催缴提醒服务
// 把即将到期和已逾期的账单组装成提醒消息推入Redis队列，
// 实际发送由外部通知服务消费。推送失败只记日志，不影响计费状态
type NotificationService struct {
	invoiceService *InvoiceService
	queue          *queue.ReminderQueue
	daysAhead      int
}

// NewNotificationService 创建催缴提醒服务
func NewNotificationService(invoiceService *InvoiceService, q *queue.ReminderQueue, daysAhead int) *NotificationService {
	if daysAhead < 1 {
		daysAhead = 7
	}
	return &NotificationService{
		invoiceService: invoiceService,
		queue:          q,
		daysAhead:      daysAhead,
	}
}

// DispatchReminders 推送一轮催缴提醒，返回成功入队的消息数
func (s *NotificationService) DispatchReminders() (int, error) {
	log := logger.GetLogger()

	if s.queue == nil {
		log.Warn("提醒队列未配置，跳过催缴提醒推送")
		return 0, nil
	}

	upcoming, err := s.invoiceService.GetUpcomingInvoices(s.daysAhead)
	if err != nil {
		return 0, err
	}
	overdue, err := s.invoiceService.GetOverdueInvoices()
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range upcoming {
		if s.enqueue(&upcoming[i], queue.ReminderKindUpcoming) {
			sent++
		}
	}
	for i := range overdue {
		if s.enqueue(&overdue[i], queue.ReminderKindOverdue) {
			sent++
		}
	}

	log.Infof("催缴提醒推送完成: 即将到期 %d, 已逾期 %d, 入队 %d",
		len(upcoming), len(overdue), sent)
	return sent, nil
}

// enqueue 组装并入队单条提醒，失败记警告不中断
func (s *NotificationService) enqueue(invoice *models.Invoice, kind string) bool {
	msg := &queue.ReminderMessage{
		Kind:      kind,
		InvoiceID: invoice.ID,
		LeaseID:   invoice.LeaseID,
		Amount:    invoice.Amount,
		AmountDue: invoice.RemainingAmount(),
		DueDate:   invoice.DueDate.Format("2006-01-02"),
	}
	if invoice.Tenant != nil {
		msg.TenantName = invoice.Tenant.Name
		msg.TenantEmail = invoice.Tenant.Email
		msg.TenantPhone = invoice.Tenant.Phone
	}

	if err := s.queue.Enqueue(msg); err != nil {
		logger.GetLogger().Warnf("提醒入队失败 invoice=%d: %v", invoice.ID, err)
		return false
	}
	return true
}
