package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/adreel/api/internal/middleware"
	"github.com/adreel/api/internal/model"
	"github.com/adreel/api/internal/service"
	"github.com/adreel/api/internal/timeline"
	"github.com/adreel/api/pkg/response"
)

type VideoHandler struct {
	videos      *service.VideoService
	composition *service.CompositionService
	captions    *service.CaptionService
	validator   *validator.Validate
}

func NewVideoHandler(videos *service.VideoService, composition *service.CompositionService, captions *service.CaptionService, v *validator.Validate) *VideoHandler {
	return &VideoHandler{
		videos:      videos,
		composition: composition,
		captions:    captions,
		validator:   v,
	}
}

// Create handles POST /api/videos
func (h *VideoHandler) Create(c *fiber.Ctx) error {
	var req model.CreateVideoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.videos.CreateJob(c.UserContext(), middleware.GetUserID(c), &req)
	if err != nil {
		return jobError(c, err)
	}

	return response.Created(c, job)
}

// List handles GET /api/videos
func (h *VideoHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return response.ValidationError(c, "limit must not be negative", nil)
	}

	result, err := h.videos.ListJobs(c.UserContext(), middleware.GetUserID(c), limit)
	if err != nil {
		return jobError(c, err)
	}

	return response.OK(c, result)
}

// Get handles GET /api/videos/:id
func (h *VideoHandler) Get(c *fiber.Ctx) error {
	view, err := h.videos.GetJobView(c.UserContext(), middleware.GetUserID(c), c.Params("id"))
	if err != nil {
		return jobError(c, err)
	}

	return response.OK(c, view)
}

// Generate handles POST /api/videos/:id/generate
func (h *VideoHandler) Generate(c *fiber.Ctx) error {
	result, err := h.videos.StartGeneration(c.UserContext(), middleware.GetUserID(c), c.Params("id"))
	if err != nil {
		return jobError(c, err)
	}

	return response.Accepted(c, result)
}

// UpdateOverlay handles PATCH /api/videos/:id/overlay
func (h *VideoHandler) UpdateOverlay(c *fiber.Ctx) error {
	job, err := h.ownedJob(c)
	if err != nil {
		return jobError(c, err)
	}

	update, problem := h.parseOverlayUpdate(c)
	if problem != nil {
		return response.ValidationError(c, problem.message, problem.details)
	}

	job, err = h.composition.UpdateOverlay(c.UserContext(), middleware.GetUserID(c), job.ID, update)
	if err != nil {
		return jobError(c, err)
	}

	return response.OK(c, job)
}

// Compose handles POST /api/videos/:id/compose
func (h *VideoHandler) Compose(c *fiber.Ctx) error {
	job, err := h.ownedJob(c)
	if err != nil {
		return jobError(c, err)
	}

	update, problem := h.parseOverlayUpdate(c)
	if problem != nil {
		return response.ValidationError(c, problem.message, problem.details)
	}

	result := h.composition.PrepareComposition(c.UserContext(), middleware.GetUserID(c), job.ID, update)
	if !result.Success {
		return jobError(c, result.Err())
	}

	return response.OK(c, result)
}

// Timeline handles GET /api/videos/:id/timeline
func (h *VideoHandler) Timeline(c *fiber.Ctx) error {
	job, err := h.ownedJob(c)
	if err != nil {
		return jobError(c, err)
	}

	spec, err := h.composition.PreviewTimeline(c.UserContext(), job.ID)
	if err != nil {
		return jobError(c, err)
	}

	return response.OK(c, spec)
}

// Frame handles GET /api/videos/:id/timeline/frames/:frame
func (h *VideoHandler) Frame(c *fiber.Ctx) error {
	frame, err := c.ParamsInt("frame")
	if err != nil {
		return response.ValidationError(c, "frame must be an integer", nil)
	}

	job, err := h.ownedJob(c)
	if err != nil {
		return jobError(c, err)
	}

	state, err := h.composition.EvaluateFrame(c.UserContext(), job.ID, frame)
	if err != nil {
		if isFrameOutOfRange(err) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return jobError(c, err)
	}

	return response.OK(c, state)
}

// SuggestCaptions handles POST /api/videos/:id/captions/suggest
func (h *VideoHandler) SuggestCaptions(c *fiber.Ctx) error {
	var req model.CaptionSuggestRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
		if err := h.validator.Struct(&req); err != nil {
			return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
		}
	}

	job, err := h.ownedJob(c)
	if err != nil {
		return jobError(c, err)
	}

	result, err := h.captions.Suggest(c.UserContext(), job, &req)
	if err != nil {
		return jobError(c, err)
	}

	return response.OK(c, result)
}

// AttachRendered handles POST /api/videos/:id/rendered
func (h *VideoHandler) AttachRendered(c *fiber.Ctx) error {
	var req model.AttachRenderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.videos.AttachRenderedVideo(c.UserContext(), middleware.GetUserID(c), c.Params("id"), req.VideoURL)
	if err != nil {
		return jobError(c, err)
	}

	return response.OK(c, job)
}

func (h *VideoHandler) ownedJob(c *fiber.Ctx) (*model.VideoJob, error) {
	return h.videos.GetJob(c.UserContext(), middleware.GetUserID(c), c.Params("id"))
}

type requestProblem struct {
	message string
	details interface{}
}

// parseOverlayUpdate reads an optional overlay body. An empty body means no
// change.
func (h *VideoHandler) parseOverlayUpdate(c *fiber.Ctx) (model.OverlayUpdate, *requestProblem) {
	if len(c.Body()) == 0 {
		return nil, nil
	}

	var req model.OverlayUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, &requestProblem{message: "Invalid request body"}
	}
	if err := h.validator.Struct(&req); err != nil {
		return nil, &requestProblem{message: "Validation failed", details: formatValidationErrors(err)}
	}

	update, err := req.ToUpdate()
	if err != nil {
		return nil, &requestProblem{message: err.Error()}
	}
	return update, nil
}

func isFrameOutOfRange(err error) bool {
	return errors.Is(err, timeline.ErrFrameOutOfRange)
}
