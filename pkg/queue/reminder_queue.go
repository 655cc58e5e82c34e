package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ReminderQueue 催缴提醒队列（Redis实现）
// 计费核心只负责入队，实际的短信/邮件发送由外部的通知服务消费
type ReminderQueue struct {
	client *redis.Client
	prefix string
}

// 提醒类型常量
const (
	ReminderKindUpcoming = "upcoming" // 即将到期
	ReminderKindOverdue  = "overdue"  // 已逾期
)

// ReminderMessage 队列中的提醒消息
type ReminderMessage struct {
	Kind        string  `json:"kind"`         // upcoming/overdue
	InvoiceID   uint    `json:"invoice_id"`   // 账单ID
	LeaseID     *uint   `json:"lease_id"`     // 关联租约ID（临时账单为空）
	TenantName  string  `json:"tenant_name"`  // 租客姓名
	TenantEmail string  `json:"tenant_email"` // 租客邮箱
	TenantPhone string  `json:"tenant_phone"` // 租客电话
	Amount      float64 `json:"amount"`       // 账单金额
	AmountDue   float64 `json:"amount_due"`   // 未付余额
	DueDate     string  `json:"due_date"`     // 到期日（2006-01-02）
	Created     int64   `json:"created"`      // 入队时间戳
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// NewReminderQueue 创建提醒队列实例
func NewReminderQueue(config *Config) *ReminderQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "rentms:reminder"
	}

	return &ReminderQueue{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (q *ReminderQueue) Close() error {
	return q.client.Close()
}

// Ping 测试Redis连接
func (q *ReminderQueue) Ping() error {
	ctx := context.Background()
	return q.client.Ping(ctx).Err()
}

// queueKey 提醒队列的键
func (q *ReminderQueue) queueKey() string {
	return q.prefix + ":pending"
}

// Enqueue 将提醒消息加入队列
func (q *ReminderQueue) Enqueue(msg *ReminderMessage) error {
	ctx := context.Background()

	msg.Created = time.Now().Unix()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化提醒消息失败: %v", err)
	}

	if err := q.client.RPush(ctx, q.queueKey(), data).Err(); err != nil {
		return fmt.Errorf("提醒消息入队失败: %v", err)
	}

	return nil
}

// Dequeue 从队列取出一条提醒消息，队列为空时返回nil
func (q *ReminderQueue) Dequeue(timeout time.Duration) (*ReminderMessage, error) {
	ctx := context.Background()

	result, err := q.client.BLPop(ctx, timeout, q.queueKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("提醒消息出队失败: %v", err)
	}

	// BLPop返回 [key, value]
	var msg ReminderMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("反序列化提醒消息失败: %v", err)
	}

	return &msg, nil
}

// Length 当前队列长度
func (q *ReminderQueue) Length() (int64, error) {
	ctx := context.Background()
	return q.client.LLen(ctx, q.queueKey()).Result()
}
