package main

import (
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/config"
	"github.com/labelflow/labelflow/api/internal/service"
	"github.com/labelflow/labelflow/api/internal/worker"
)

// Services holds all service instances
type Services struct {
	Dataset    *service.DatasetService
	Task       *service.TaskService
	TagSet     *service.TagSetService
	Selector   *service.SelectorService
	Annotation *service.AnnotationService
}

// initServices initializes all services
func initServices(cfg *config.Config, logger *zap.Logger, repos service.Repositories, dbs *Databases) *Services {
	// A nil publisher leaves machine requests flagged but unpublished
	var publisher service.MachineJobPublisher
	if dbs.AsynqClient != nil {
		publisher = worker.NewPublisher(dbs.AsynqClient, cfg.Worker.QueueMachine)
	}

	return &Services{
		Dataset: service.NewDatasetService(repos),
		Task:    service.NewTaskService(repos),
		TagSet: service.NewTagSetService(logger, repos, publisher, service.RetryConfig{
			MaxRetries:      cfg.TagSet.MaxRetries,
			InitialInterval: cfg.TagSet.InitialInterval,
		}),
		Selector: service.NewSelectorService(logger, repos, service.SelectorConfig{
			LeaseDuration: cfg.Selector.LeaseDuration,
			ScanBatchSize: cfg.Selector.ScanBatchSize,
		}),
		Annotation: service.NewAnnotationService(logger, repos),
	}
}
