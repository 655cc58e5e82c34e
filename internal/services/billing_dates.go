package services

import (
	"time"
)

// lastDayOfMonth 某月最后一天的日号
func lastDayOfMonth(year int, month time.Month) int {
	// 下月第0天即本月最后一天，月份溢出由time.Date自动归一化
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// addMonthsClamped 按日历加月份，日号超过目标月天数时对齐到月末
// 例如 1月31日 + 1个月 = 2月28日（闰年29日），而不是time.AddDate的3月2日
func addMonthsClamped(t time.Time, months int) time.Time {
	total := int(t.Month()) - 1 + months
	year := t.Year() + total/12
	month := time.Month(total%12 + 1)

	day := t.Day()
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}

	return time.Date(year, month, day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// monthsBetween 两个日期间完整经过的日历月数
// 日号未到起始日号时当月不计入（只数走完的整月），结果不为负
func monthsBetween(start, now time.Time) int {
	months := (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
	if now.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// truncateToDay 去掉时分秒，只保留日期部分
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
