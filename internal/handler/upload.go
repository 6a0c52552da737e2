package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/adreel/api/internal/middleware"
	"github.com/adreel/api/internal/model"
	"github.com/adreel/api/internal/service"
	"github.com/adreel/api/pkg/response"
)

const maxUploadSize = 10 * 1024 * 1024 // 10MB

type UploadHandler struct {
	service service.ImageUploader
}

func NewUploadHandler(svc service.ImageUploader) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Image handles POST /api/upload/image
func (h *UploadHandler) Image(c *fiber.Ctx) error {
	kind := model.ImageKind(c.FormValue("kind", string(model.ImageKindProduct)))
	if !kind.Valid() {
		return response.ValidationError(c, "kind must be product or logo", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > maxUploadSize {
		return response.ValidationError(c, "File size exceeds 10MB limit", map[string]interface{}{
			"maxSize":  maxUploadSize,
			"fileSize": file.Size,
		})
	}

	contentType := file.Header.Get("Content-Type")
	if !service.IsSupportedImage(contentType) {
		return response.ValidationError(c, "Invalid file type. Supported: JPEG, PNG, WEBP", map[string]interface{}{
			"contentType": contentType,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	result, err := h.service.UploadImage(c.UserContext(), middleware.GetUserID(c), kind, contentType, f, file.Size)
	if err != nil {
		return jobError(c, err)
	}

	return response.Created(c, result)
}

// DeleteImage handles DELETE /api/upload/image/*
func (h *UploadHandler) DeleteImage(c *fiber.Ctx) error {
	key := strings.TrimPrefix(c.Params("*"), "/")
	if key == "" {
		return response.ValidationError(c, "Image key is required", nil)
	}

	if err := h.service.DeleteImage(c.UserContext(), middleware.GetUserID(c), key); err != nil {
		if model.KindOf(err) == model.KindNotFound {
			return response.NotFound(c, "Image not found")
		}
		return jobError(c, err)
	}

	return response.NoContent(c)
}
