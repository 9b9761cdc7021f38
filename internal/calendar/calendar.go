package calendar

import "time"

// WeekLength 是一个工作周中的工作日数量
const WeekLength = 5

// 所有日期都统一到当天中午，避免时区转换时跨越日界导致日期偏移一天
const normalizedHour = 12

// NormalizeDay 将时间归一化到所在日期的中午（保留原有时区）
func NormalizeDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, normalizedHour, 0, 0, 0, t.Location())
}

// InLocation 将一个日历日（通常来自数据库的 DATE 或 YYYY-MM-DD 字符串）解释为 loc 中的同一天中午
func InLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, normalizedHour, 0, 0, 0, loc)
}

// ParseDay 解析 YYYY-MM-DD 格式的日期
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeDay(t), nil
}

// IsBusinessDay 判断是否为周一到周五
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// SameDay 比较两个时间是否落在同一日历日
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// NormalizeAnchor 将锚点日期归一化：周六顺延 2 天，周日顺延 1 天，工作日保持不变
func NormalizeAnchor(anchor time.Time) time.Time {
	day := NormalizeDay(anchor)
	switch day.Weekday() {
	case time.Saturday:
		return day.AddDate(0, 0, 2)
	case time.Sunday:
		return day.AddDate(0, 0, 1)
	default:
		return day
	}
}

// NextBusinessDay 返回 day 之后的第一个工作日
func NextBusinessDay(day time.Time) time.Time {
	next := NormalizeDay(day).AddDate(0, 0, 1)
	for !IsBusinessDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// BusinessDays 从归一化后的锚点开始，返回连续的 n 个工作日
func BusinessDays(anchor time.Time, n int) []time.Time {
	if n <= 0 {
		return []time.Time{}
	}

	days := make([]time.Time, 0, n)
	day := NormalizeAnchor(anchor)
	for len(days) < n {
		days = append(days, day)
		day = NextBusinessDay(day)
	}

	return days
}

// Walker 按时间顺序逐个产出工作日，不会重复访问任何一天
type Walker struct {
	next time.Time
}

func NewWalker(anchor time.Time) *Walker {
	return &Walker{next: NormalizeAnchor(anchor)}
}

func (w *Walker) Next() time.Time {
	day := w.next
	w.next = NextBusinessDay(day)
	return day
}

// WeekOf 返回 day 所在周的周一到周五
func WeekOf(day time.Time) []time.Time {
	d := NormalizeDay(day)
	// time.Sunday == 0，把周日视为上一周的最后一天
	offset := (int(d.Weekday()) + 6) % 7
	monday := d.AddDate(0, 0, -offset)

	week := make([]time.Time, WeekLength)
	for i := range week {
		week[i] = monday.AddDate(0, 0, i)
	}

	return week
}
