package timeutil

import (
	"time"
)

// ISOWeek 返回指定时刻所在的 ISO 周（周一为一周起点）
func ISOWeek(t time.Time) (year, week int) {
	return t.ISOWeek()
}

// WeekStart 返回指定时刻所在 ISO 周的周一零点（保留时区）
func WeekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // 周日算上一周的第 7 天
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -(weekday - 1))
}

// WeekEnd 返回指定时刻所在 ISO 周的周日 23:59:59
func WeekEnd(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 7).Add(-time.Second)
}

// WeekBounds 根据 ISO 周号反推该周的起止时间（UTC）。
// 以该年 1 月 4 日所在周为第一周。
func WeekBounds(year, week int) (start, end time.Time) {
	jan4 := time.Date(year, 1, 4, 0, 0, 0, 0, time.UTC)
	firstMonday := WeekStart(jan4)
	start = firstMonday.AddDate(0, 0, (week-1)*7)
	end = start.AddDate(0, 0, 7).Add(-time.Second)
	return start, end
}
