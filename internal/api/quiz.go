package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"quiz-assistant/internal/models"
	"quiz-assistant/internal/worker"
)

const (
	ackBody           = "ok-test"
	taskIDHeader      = "X-Task-Id"
	msgFieldsRequired = "generatedPdfId, beUrl and question required"
	msgTaskNotFound   = "task not found"
	msgUnavailable    = "service is shutting down"
)

// TaskService accepts quiz tasks and reports on them. *worker.Runner implements it.
type TaskService interface {
	Submit(ctx context.Context, task models.Task) (models.Task, error)
	Get(ctx context.Context, id string) (models.Task, error)
}

type mcqRequest struct {
	GeneratedPdfID string `json:"generatedPdfId" validate:"required"`
	BeURL          string `json:"beUrl" validate:"required"`
	Question       string `json:"question" validate:"required"`
}

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// QuizHandler serves the assistant routes
type QuizHandler struct {
	tasks  TaskService
	logger *zap.Logger
}

func NewQuizHandler(tasks TaskService, logger *zap.Logger) *QuizHandler {
	return &QuizHandler{tasks: tasks, logger: logger}
}

// Register mounts the handler routes on e
func (h *QuizHandler) Register(e *echo.Echo) {
	g := e.Group("/assistant")
	g.GET("", h.Ping)
	g.POST("/mcq", h.CreateMCQ)
	g.GET("/mcq/:taskId", h.GetTask)
}

// Ping handles GET /assistant
func (h *QuizHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, ackBody)
}

// CreateMCQ handles POST /assistant/mcq. The answer is produced in the
// background; the response only acknowledges the request.
func (h *QuizHandler) CreateMCQ(c echo.Context) error {
	var req mcqRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, msgFieldsRequired)
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, http.StatusBadRequest, msgFieldsRequired)
	}

	task, err := h.tasks.Submit(c.Request().Context(), models.Task{
		GeneratedPdfID: req.GeneratedPdfID,
		BeURL:          req.BeURL,
		Question:       req.Question,
	})
	if errors.Is(err, worker.ErrRunnerClosed) {
		return respondError(c, http.StatusServiceUnavailable, msgUnavailable)
	}
	if err != nil {
		h.logger.Error("failed to submit task", zap.String("generated_pdf_id", req.GeneratedPdfID), zap.Error(err))
		return respondError(c, http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(taskIDHeader, task.ID)
	return c.JSON(http.StatusOK, ackBody)
}

// GetTask handles GET /assistant/mcq/:taskId
func (h *QuizHandler) GetTask(c echo.Context) error {
	task, err := h.tasks.Get(c.Request().Context(), c.Param("taskId"))
	if errors.Is(err, worker.ErrTaskNotFound) {
		return respondError(c, http.StatusNotFound, msgTaskNotFound)
	}
	if err != nil {
		return respondError(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, task)
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, errorResponse{StatusCode: status, Message: message})
}
