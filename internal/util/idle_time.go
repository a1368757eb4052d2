package util

import (
	"fmt"
	"math"
	"time"

	"github.com/c0dezer019/Presence/internal/model"
)

type IdleBreakdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// CalculateIdleTime splits now-since into whole days, hours and minutes, flooring the rest.
func CalculateIdleTime(since time.Time, now time.Time) (IdleBreakdown, error) {
	if now.Before(since) {
		return IdleBreakdown{}, &model.CoreError{
			Code:    model.ErrInvalidRange.Code,
			Message: fmt.Sprintf("now %s is before since %s", now.Format(time.RFC3339), since.Format(time.RFC3339)),
		}
	}

	totalMinutes := int(now.Sub(since) / time.Minute)

	return IdleBreakdown{
		Days:    totalMinutes / (24 * 60),
		Hours:   (totalMinutes / 60) % 24,
		Minutes: totalMinutes % 60,
	}, nil
}

// RenderIdleTime formats a breakdown as "3 days, 4 hours, and 5 minutes". Spans of 365 days
// or more get a "<years> years, " prefix with the days reduced modulo 365.
func RenderIdleTime(breakdown IdleBreakdown) string {
	days := breakdown.Days
	prefix := ""

	if days >= 365 {
		years := int(math.Round(float64(days) / 365))
		days = days % 365
		prefix = fmt.Sprintf("%d years, ", years)
	}

	minuteUnit := "minutes"
	if breakdown.Minutes == 1 {
		minuteUnit = "minute"
	}

	return fmt.Sprintf("%s%d days, %d hours, and %d %s", prefix, days, breakdown.Hours, breakdown.Minutes, minuteUnit)
}

func RenderIdleSince(since time.Time, now time.Time) (string, error) {
	breakdown, err := CalculateIdleTime(since, now)
	if err != nil {
		return "", err
	}
	return RenderIdleTime(breakdown), nil
}
