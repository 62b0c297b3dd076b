package service

import (
	"time"

	"github.com/qs3c/lingo_go_server/internal/model"
)

// monthlyWindow 月度计费窗口，对齐自然月：当月 1 日 0 点到下月 1 日 0 点（UTC）。
// 12 月自动滚动到次年 1 月。
func monthlyWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return start, end
}

// annualWindow 年度计费窗口，锚定订阅实际开始日。
// 返回包含 now 的那一年窗口；闰年 2 月 29 日开始的订阅在平年收敛到 2 月 28 日。
func annualWindow(anchor, now time.Time) (time.Time, time.Time) {
	anchor = anchor.UTC()
	now = now.UTC()

	start := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)
	for {
		end := addYearsClamped(start, 1)
		if now.Before(end) || start.After(now) {
			return start, end
		}
		start = end
	}
}

// addYearsClamped 加年，目标月份没有对应日期时收敛到当月最后一天
// （Feb 29 + 1y -> Feb 28，而不是 time.AddDate 的 Mar 1）。
func addYearsClamped(t time.Time, years int) time.Time {
	year := t.Year() + years
	month := t.Month()
	day := t.Day()

	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// addMonthsClamped 加月，同样收敛日期（Jan 31 + 1mo -> Feb 28/29）
func addMonthsClamped(t time.Time, months int) time.Time {
	year := t.Year()
	month := int(t.Month()) + months
	for month > 12 {
		month -= 12
		year++
	}
	for month < 1 {
		month += 12
		year--
	}

	day := t.Day()
	if last := lastDayOfMonth(year, time.Month(month)); day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// currentWindow 按计费周期计算包含 now 的窗口
func currentWindow(period string, anchor, now time.Time) (time.Time, time.Time) {
	if period == model.PeriodAnnual && !anchor.IsZero() {
		return annualWindow(anchor, now)
	}
	return monthlyWindow(now)
}
