package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/render"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
)

// MediaHandler handles question image uploads for script clients.
type MediaHandler struct {
	base
	mediaService *service.MediaService
	renderer     *render.Renderer
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(mediaService *service.MediaService, renderer *render.Renderer, sessions *session.Manager, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		base:         newBase(sessions, log, "media_handler"),
		mediaService: mediaService,
		renderer:     renderer,
	}
}

// UploadImage godoc
// POST /api/teacher/images
// Accepts a multipart file (field "file"), validates it and forwards it to
// the backend. Returns the image key and its public URL.
func (h *MediaHandler) UploadImage(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"file": "file is required",
		})
		return
	}

	key, err := h.mediaService.Upload(c.Request.Context(), middleware.GetSession(c), header)
	if err != nil {
		h.failAPI(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"image_key": key,
		"url":       h.renderer.ImageURL(key),
	})
}
