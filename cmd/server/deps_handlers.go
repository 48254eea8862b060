package main

import (
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/handler"
	"github.com/labelflow/labelflow/api/internal/pkg/circuitbreaker"
)

// Handlers holds all HTTP handler instances
type Handlers struct {
	Health   *handler.HealthHandler
	Docs     *handler.DocsHandler
	Datasets *handler.DatasetsHandler
	Tasks    *handler.TasksHandler
}

// initHandlers initializes all HTTP handlers
func initHandlers(logger *zap.Logger, dbs *Databases, svcs *Services, breakers *circuitbreaker.Registry) *Handlers {
	checks := map[string]handler.Pinger{
		"store": dbs.Store.Ping,
	}
	if dbs.Redis != nil {
		checks["redis"] = dbs.Redis.Ping
	}

	return &Handlers{
		Health:   handler.NewHealthHandler(checks, breakers.Stats, appVersion),
		Docs:     handler.NewDocsHandler(),
		Datasets: handler.NewDatasetsHandler(svcs.Dataset, logger),
		Tasks:    handler.NewTasksHandler(svcs.Task, svcs.TagSet, svcs.Selector, svcs.Annotation, logger),
	}
}
