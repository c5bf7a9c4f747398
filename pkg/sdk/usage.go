package eulex

import (
	"context"
	"fmt"
	"time"

	usageuc "github.com/kailas-cloud/eulex/internal/usecase/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
)

// UsageReport contains embedding token usage for a budget window.
type UsageReport struct {
	Period      UsagePeriod
	PeriodStart time.Time
	PeriodEnd   time.Time
	TokensUsed  int64
	TokensLimit int64

	// TokensRemaining is -1 when the window has no limit.
	TokensRemaining int64
	IsExhausted     bool
}

// Usage returns the embedding token usage for the given period.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) (_ UsageReport, err error) {
	defer c.obs.track("usage")(&err)

	p, err := usageuc.ParsePeriod(string(period))
	if err != nil {
		return UsageReport{}, fmt.Errorf("usage: %w", err)
	}
	r := c.usageSvc.Report(ctx, p)

	return UsageReport{
		Period:          UsagePeriod(r.Period),
		PeriodStart:     time.UnixMilli(r.PeriodStart).UTC(),
		PeriodEnd:       time.UnixMilli(r.PeriodEnd).UTC(),
		TokensUsed:      r.TokensUsed,
		TokensLimit:     r.TokensLimit,
		TokensRemaining: r.Remaining,
		IsExhausted:     r.Exhausted,
	}, nil
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	Report(ctx context.Context, period usageuc.Period) usageuc.Report
}
