package services

var globalBillingScheduler *BillingScheduler

// SetGlobalBillingScheduler 设置全局计费调度器
func SetGlobalBillingScheduler(scheduler *BillingScheduler) {
	globalBillingScheduler = scheduler
}

// GetGlobalBillingScheduler 获取全局计费调度器
func GetGlobalBillingScheduler() *BillingScheduler {
	return globalBillingScheduler
}
