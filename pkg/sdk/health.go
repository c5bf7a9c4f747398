package eulex

import (
	"context"
	"slices"

	healthuc "github.com/kailas-cloud/eulex/internal/usecase/health"
)

// Components reported in HealthStatus.Checks. Embedding and LLM appear
// only when the provider supports a health probe.
const (
	ComponentIndex     = healthuc.CheckIndex
	ComponentCache     = healthuc.CheckCache
	ComponentEmbedding = healthuc.CheckEmbedding
	ComponentLLM       = healthuc.CheckLLM
)

// HealthStatus summarizes component checks. Status is "ok", "degraded"
// (a provider or the cache is failing) or "error" (the index cannot open).
type HealthStatus struct {
	Status string
	Checks map[string]string
}

// Ready reports whether queries can be served at all.
func (h HealthStatus) Ready() bool {
	return h.Status != string(healthuc.Unhealthy)
}

// Failing lists the components whose check did not pass, sorted.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, result := range h.Checks {
		if result != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Health probes the index, the cache store and the providers.
func (c *Client) Health(ctx context.Context) HealthStatus {
	defer c.obs.track("health")(nil)

	report := c.healthSvc.Check(ctx)
	out := HealthStatus{
		Status: string(report.Status),
		Checks: make(map[string]string, len(report.Checks)),
	}
	for name, result := range report.Checks {
		out.Checks[name] = string(result)
	}
	return out
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
