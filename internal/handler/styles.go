package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/adreel/api/internal/style"
	"github.com/adreel/api/pkg/response"
)

type StylesResponse struct {
	DefaultStyle string             `json:"defaultStyle"`
	Styles       []style.Style      `json:"styles"`
	MusicTracks  []style.MusicTrack `json:"musicTracks"`
}

type StylesHandler struct {
	catalog *style.Catalog
}

func NewStylesHandler(catalog *style.Catalog) *StylesHandler {
	return &StylesHandler{catalog: catalog}
}

// List handles GET /api/styles
func (h *StylesHandler) List(c *fiber.Ctx) error {
	return response.OK(c, StylesResponse{
		DefaultStyle: h.catalog.DefaultStyleID(),
		Styles:       h.catalog.Styles(),
		MusicTracks:  h.catalog.MusicTracks(),
	})
}
