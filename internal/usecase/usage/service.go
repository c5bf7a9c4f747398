// Package usage reports embedding token consumption against the configured budget.
package usage

import (
	"context"
	"fmt"
	"time"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod maps a query parameter to a Period. Empty means day.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Report is the token usage of one period. Limit 0 and Remaining -1 mean unlimited.
type Report struct {
	Period      Period `json:"period"`
	Scope       string `json:"scope,omitempty"`
	PeriodStart int64  `json:"period_start"`
	PeriodEnd   int64  `json:"period_end"`
	TokensUsed  int64  `json:"tokens_used"`
	TokensLimit int64  `json:"tokens_limit"`
	Remaining   int64  `json:"tokens_remaining"`
	Exhausted   bool   `json:"exhausted"`
}

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br, now: func() time.Time { return time.Now().UTC() }}
}

// Report builds a usage report for the given period. Timestamps are unix millis.
func (s *Service) Report(_ context.Context, period Period) Report {
	now := s.now()
	var start, end time.Time
	switch period {
	case PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	default:
		period = PeriodDay
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.Add(24 * time.Hour)
	}

	r := Report{
		Period:      period,
		PeriodStart: start.UnixMilli(),
		PeriodEnd:   end.UnixMilli(),
		Remaining:   -1,
	}
	if s.br == nil {
		return r
	}

	snap := s.br.Snapshot()
	r.Scope = snap.Scope
	if period == PeriodMonth {
		r.TokensUsed, r.TokensLimit, r.Remaining = snap.MonthlyUsed, snap.MonthlyLimit, snap.RemainingMonthly
	} else {
		r.TokensUsed, r.TokensLimit, r.Remaining = snap.DailyUsed, snap.DailyLimit, snap.RemainingDaily
	}
	r.Exhausted = r.TokensLimit > 0 && r.Remaining <= 0
	return r
}
