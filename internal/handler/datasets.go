package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/domain"
	"github.com/labelflow/labelflow/api/internal/service"
)

// DatasetsHandler handles dataset endpoints
type DatasetsHandler struct {
	datasetService *service.DatasetService
	logger         *zap.Logger
}

// NewDatasetsHandler creates a new datasets handler
func NewDatasetsHandler(datasetService *service.DatasetService, logger *zap.Logger) *DatasetsHandler {
	return &DatasetsHandler{
		datasetService: datasetService,
		logger:         logger,
	}
}

// RegisterRoutes registers dataset routes under the given router
func (h *DatasetsHandler) RegisterRoutes(r fiber.Router) {
	datasets := r.Group("/datasets")
	datasets.Post("/", h.CreateDataset)
	datasets.Get("/:datasetId", h.GetDataset)
	datasets.Post("/:datasetId/items", h.AddItems)
	datasets.Get("/:datasetId/items", h.ListItems)
}

// CreateDataset handles POST /api/v1/datasets
func (h *DatasetsHandler) CreateDataset(c *fiber.Ctx) error {
	var input domain.DatasetInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	dataset, err := h.datasetService.Create(c.UserContext(), &input)
	if err != nil {
		return err
	}

	h.logger.Info("dataset created", zap.String("dataset_id", dataset.ID.String()))

	return created(c, dataset)
}

// GetDataset handles GET /api/v1/datasets/:datasetId
func (h *DatasetsHandler) GetDataset(c *fiber.Ctx) error {
	datasetID, err := uuidParam(c, "datasetId")
	if err != nil {
		return err
	}

	dataset, err := h.datasetService.Get(c.UserContext(), datasetID)
	if err != nil {
		return err
	}
	return ok(c, dataset)
}

// AddItems handles POST /api/v1/datasets/:datasetId/items
func (h *DatasetsHandler) AddItems(c *fiber.Ctx) error {
	datasetID, err := uuidParam(c, "datasetId")
	if err != nil {
		return err
	}
	var input domain.DatasetItemsInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	items, err := h.datasetService.AddItems(c.UserContext(), datasetID, &input)
	if err != nil {
		return err
	}

	h.logger.Info("dataset items added",
		zap.String("dataset_id", datasetID.String()),
		zap.Int("count", len(items)),
	)

	return created(c, items)
}

// ListItems handles GET /api/v1/datasets/:datasetId/items?limit=&offset=
func (h *DatasetsHandler) ListItems(c *fiber.Ctx) error {
	datasetID, err := uuidParam(c, "datasetId")
	if err != nil {
		return err
	}
	page := ParsePagination(c)

	items, total, err := h.datasetService.ListItems(c.UserContext(), datasetID, page.Limit, page.Offset)
	if err != nil {
		return err
	}

	return ok(c, ListData[domain.DatasetItem]{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset})
}
