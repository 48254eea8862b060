package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/domain"
	"github.com/labelflow/labelflow/api/internal/service"
)

// TasksHandler handles task, tag-set and labeling endpoints
type TasksHandler struct {
	tasks       *service.TaskService
	tagSets     *service.TagSetService
	selector    *service.SelectorService
	annotations *service.AnnotationService
	logger      *zap.Logger
}

// NewTasksHandler creates a new tasks handler
func NewTasksHandler(
	tasks *service.TaskService,
	tagSets *service.TagSetService,
	selector *service.SelectorService,
	annotations *service.AnnotationService,
	logger *zap.Logger,
) *TasksHandler {
	return &TasksHandler{
		tasks:       tasks,
		tagSets:     tagSets,
		selector:    selector,
		annotations: annotations,
		logger:      logger,
	}
}

// NextItemData wraps the next item; Item is null when nothing is left to label
type NextItemData struct {
	Item *domain.ItemPresentation `json:"item"`
}

// RegisterRoutes registers task routes under the given router
func (h *TasksHandler) RegisterRoutes(r fiber.Router) {
	tasks := r.Group("/tasks")
	tasks.Post("/", h.CreateTask)
	tasks.Get("/:taskId", h.GetTask)
	tasks.Get("/:taskId/progress", h.GetProgress)
	tasks.Get("/:taskId/items", h.ListItems)
	tasks.Get("/:taskId/assigned-items", h.ListAssignedItems)
	tasks.Post("/:taskId/machine", h.SetMachineRunning)

	tasks.Post("/:taskId/tags", h.AddTag)
	tasks.Put("/:taskId/tags/:symbol", h.ModifyTag)
	tasks.Delete("/:taskId/tags/:symbol", h.DeleteTag)
	tasks.Put("/:taskId/tag-order", h.ReorderTags)
	tasks.Put("/:taskId/relation-tags", h.SetRelationTags)

	tasks.Get("/:taskId/next-item", h.NextItem)
	tasks.Put("/:taskId/items/:itemId/tags", h.SubmitItemTags)
}

// CreateTask handles POST /api/v1/tasks
func (h *TasksHandler) CreateTask(c *fiber.Ctx) error {
	var input domain.TaskInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	task, err := h.tasks.Create(c.UserContext(), &input)
	if err != nil {
		return err
	}

	h.logger.Info("task created",
		zap.String("task_id", task.ID.String()),
		zap.String("dataset_id", task.DatasetID.String()),
	)

	return created(c, task)
}

// GetTask handles GET /api/v1/tasks/:taskId
func (h *TasksHandler) GetTask(c *fiber.Ctx) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}

	task, err := h.tagSets.GetTask(c.UserContext(), taskID)
	if err != nil {
		return err
	}
	return ok(c, task)
}

// GetProgress handles GET /api/v1/tasks/:taskId/progress
func (h *TasksHandler) GetProgress(c *fiber.Ctx) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}

	progress, err := h.tasks.Progress(c.UserContext(), taskID)
	if err != nil {
		return err
	}
	return ok(c, progress)
}

// ListItems handles GET /api/v1/tasks/:taskId/items?byHuman=&limit=&offset=
func (h *TasksHandler) ListItems(c *fiber.Ctx) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}
	byHuman, err := optionalBoolQuery(c, "byHuman")
	if err != nil {
		return err
	}
	page := ParsePagination(c)

	items, total, err := h.tasks.ListItems(c.UserContext(), &domain.TaskItemFilter{TaskID: taskID, ByHuman: byHuman}, page.Limit, page.Offset)
	if err != nil {
		return err
	}

	return ok(c, ListData[domain.TaskItem]{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset})
}

// ListAssignedItems handles GET /api/v1/tasks/:taskId/assigned-items
func (h *TasksHandler) ListAssignedItems(c *fiber.Ctx) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}

	ids, err := h.tasks.AssignedItemIDs(c.UserContext(), taskID)
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ok(c, ids)
}

// SetMachineRunning handles POST /api/v1/tasks/:taskId/machine
func (h *TasksHandler) SetMachineRunning(c *fiber.Ctx) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}

	if err := h.tagSets.SetMachineRunning(c.UserContext(), taskID); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(Response{Success: true})
}

// AddTag handles POST /api/v1/tasks/:taskId/tags
func (h *TasksHandler) AddTag(c *fiber.Ctx) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}
	var input domain.TagInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	task, err := h.tagSets.AddTag(c.UserContext(), taskID, &input)
	if err != nil {
		return err
	}
	return ok(c, task)
}

// ModifyTag handles PUT /api/v1/tasks/:taskId/tags/:symbol
func (h *TasksHandler) ModifyTag(c *fiber.Ctx) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}
	symbol, err := pathParam(c, "symbol")
	if err != nil {
		return err
	}
	var input domain.TagUpdateInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	task, err := h.tagSets.ModifyTag(c.UserContext(), taskID, symbol, &input)
	if err != nil {
		return err
	}
	return ok(c, task)
}

// DeleteTag handles DELETE /api/v1/tasks/:taskId/tags/:symbol
func (h *TasksHandler) DeleteTag(c *fiber.Ctx) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}

	symbol, err := pathParam(c, "symbol")
	if err != nil {
		return err
	}

	task, err := h.tagSets.DeleteTag(c.UserContext(), taskID, symbol)
	if err != nil {
		return err
	}
	return ok(c, task)
}

// ReorderTags handles PUT /api/v1/tasks/:taskId/tag-order
func (h *TasksHandler) ReorderTags(c *fiber.Ctx) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}
	var input domain.TagOrderInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	task, err := h.tagSets.ReorderTags(c.UserContext(), taskID, input.Symbols)
	if err != nil {
		return err
	}
	return ok(c, task)
}

// SetRelationTags handles PUT /api/v1/tasks/:taskId/relation-tags
func (h *TasksHandler) SetRelationTags(c *fiber.Ctx) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}
	var input domain.RelationTagsInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	task, err := h.tagSets.SetRelationTags(c.UserContext(), taskID, input.Names)
	if err != nil {
		return err
	}
	return ok(c, task)
}

// NextItem handles GET /api/v1/tasks/:taskId/next-item
func (h *TasksHandler) NextItem(c *fiber.Ctx) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}

	item, err := h.selector.Next(c.UserContext(), taskID)
	if err != nil {
		return err
	}
	return ok(c, NextItemData{Item: item})
}

// SubmitItemTags handles PUT /api/v1/tasks/:taskId/items/:itemId/tags
func (h *TasksHandler) SubmitItemTags(c *fiber.Ctx) error {
	taskID, err := uuidParam(c, "taskId")
	if err != nil {
		return err
	}
	itemID, err := uuidParam(c, "itemId")
	if err != nil {
		return err
	}
	var input domain.SubmissionInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	if err := h.annotations.SubmitJSON(c.UserContext(), taskID, itemID, &input); err != nil {
		return err
	}
	return ok(c, fiber.Map{"taskId": taskID, "datasetItemId": itemID})
}
