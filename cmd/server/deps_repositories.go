package main

import (
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/config"
	"github.com/labelflow/labelflow/api/internal/pkg/circuitbreaker"
	"github.com/labelflow/labelflow/api/internal/pkg/metrics"
	"github.com/labelflow/labelflow/api/internal/service"
)

const storeBreakerName = "store"

// initRepositories wraps the store's repositories with a timeout and a
// circuit breaker registered in breakers
func initRepositories(cfg *config.Config, logger *zap.Logger, dbs *Databases, breakers *circuitbreaker.Registry) service.Repositories {
	breakerCfg := circuitbreaker.GuardConfig(storeBreakerName, cfg.Store.BreakerMaxFailures, cfg.Store.BreakerCooldown)
	breakerCfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		metrics.SetBreakerState(name, int(to))
	}

	cb := breakers.Get(storeBreakerName, breakerCfg)
	return dbs.Store.Repositories.Guarded(circuitbreaker.NewGuard(cb, cfg.Store.OpTimeout))
}
