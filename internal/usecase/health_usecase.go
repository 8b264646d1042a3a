package usecase

import (
	"context"
	"time"
)

// HealthCheck probes one dependency; nil means healthy.
type HealthCheck func(ctx context.Context) error

type HealthUsecase interface {
	Check(ctx context.Context) (map[string]string, bool)
}

type healthUsecase struct {
	checks map[string]HealthCheck
}

func NewHealthUsecase(checks map[string]HealthCheck) HealthUsecase {
	return &healthUsecase{checks: checks}
}

func (u *healthUsecase) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out := map[string]string{"status": "ok"}
	healthy := true
	for name, check := range u.checks {
		if err := check(ctx); err != nil {
			out[name] = "unavailable"
			out["status"] = "degraded"
			healthy = false
			continue
		}
		out[name] = "ok"
	}
	return out, healthy
}
