package services

import (
	"strings"
	"time"
)

// Clock は現在時刻を返します。テストでは固定時刻に差し替えます。
type Clock func() time.Time

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseOrNow は ISO-8601 の時刻を loc の時刻に変換します。
// 空文字列や解釈できない値は now() にフォールバックします。タイムゾーン無しの値は UTC とみなします。
func ParseOrNow(iso string, loc *time.Location, now Clock) time.Time {
	if now == nil {
		now = time.Now
	}
	iso = strings.TrimSpace(iso)
	if iso != "" {
		for _, layout := range isoLayouts {
			if t, err := time.ParseInLocation(layout, iso, time.UTC); err == nil {
				return t.In(loc)
			}
		}
	}
	return now().In(loc)
}

// LocalDate は created_at から日記の日付 (YYYY-MM-DD) を決めます。
func LocalDate(iso string, loc *time.Location, now Clock) string {
	return ParseOrNow(iso, loc, now).Format("2006-01-02")
}
