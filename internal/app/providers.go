package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/fsrs"
	"github.com/eslsoft/gapmap/internal/infrastructure/config"
	"github.com/eslsoft/gapmap/internal/mastery"
	"github.com/eslsoft/gapmap/internal/planner"
)

// provideSchedulerParams maps config onto the stock weight table; only
// the retention and interval bounds are exposed as knobs.
func provideSchedulerParams(cfg *config.Config) fsrs.Params {
	params := fsrs.DefaultParams()
	if cfg.Engine.DesiredRetention > 0 {
		params.DesiredRetention = cfg.Engine.DesiredRetention
	}
	if cfg.Engine.MaximumIntervalDays > 0 {
		params.MaximumInterval = cfg.Engine.MaximumIntervalDays
	}
	return params
}

func provideEstimatorConfig(cfg *config.Config) mastery.EstimatorConfig {
	ec := mastery.DefaultEstimatorConfig()
	if cfg.Engine.RecencyHalfLifeDays > 0 {
		ec.RecencyHalfLifeDays = cfg.Engine.RecencyHalfLifeDays
	}
	if cfg.Engine.TrendWindow > 0 {
		ec.TrendWindow = cfg.Engine.TrendWindow
	}
	if cfg.Engine.TrendThreshold > 0 {
		ec.TrendThreshold = cfg.Engine.TrendThreshold
	}
	return ec
}

func provideThresholds(cfg *config.Config) mastery.Thresholds {
	th := mastery.DefaultThresholds()
	if cfg.Engine.CriticalThreshold > 0 {
		th.Critical = cfg.Engine.CriticalThreshold
	}
	if cfg.Engine.WeakThreshold > 0 {
		th.Weak = cfg.Engine.WeakThreshold
	}
	if cfg.Engine.StrongThreshold > 0 {
		th.Strong = cfg.Engine.StrongThreshold
	}
	return th
}

func providePlannerConfig(cfg *config.Config) planner.Config {
	pc := planner.DefaultConfig()
	if cfg.Engine.CoverageMinAttempts > 0 {
		pc.CoverageMinAttempts = cfg.Engine.CoverageMinAttempts
	}
	return pc
}

func providePlanBudget(cfg *config.Config) entity.PlanBudget {
	budget := entity.PlanBudget{MaxItems: 15, MaxMinutes: 30, ReviewShare: 0.7}
	if cfg.Engine.PlanMaxItems > 0 {
		budget.MaxItems = cfg.Engine.PlanMaxItems
	}
	if cfg.Engine.PlanMaxMinutes > 0 {
		budget.MaxMinutes = cfg.Engine.PlanMaxMinutes
	}
	if cfg.Engine.PlanReviewShare > 0 {
		budget.ReviewShare = cfg.Engine.PlanReviewShare
	}
	return budget
}

func provideHandler(mux *chi.Mux) http.Handler { return mux }
