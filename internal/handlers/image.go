package handlers

import (
	"errors"
	"net/http"
	"strings"

	"memories-backend/internal/middleware"
	"memories-backend/internal/models"
	"memories-backend/internal/services"
	"memories-backend/internal/storage"

	"github.com/go-chi/chi/v5"
)

const (
	maxUploadSize      = 20 << 20
	defaultContentType = "image/jpeg"
)

// ImageHandler handles image-related HTTP requests
type ImageHandler struct {
	imageService *services.ImageService
}

// NewImageHandler creates a new image handler
func NewImageHandler(imageService *services.ImageService) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
	}
}

// PartialDeliveryResponse is returned when some recipients failed
type PartialDeliveryResponse struct {
	Error  string                 `json:"error"`
	Result *models.DeliveryResult `json:"result"`
}

// SendImage handles POST /api/v1/images
func (h *ImageHandler) SendImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	recipients := parseRecipients(r.MultipartForm.Value["recipient_ids"])
	if len(recipients) == 0 {
		respondError(w, "recipient_ids is required", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	result, err := h.imageService.Send(ctx, storage.File{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}, userID, recipients)
	if errors.Is(err, models.ErrPartialDelivery) {
		respondJSON(w, http.StatusMultiStatus, PartialDeliveryResponse{Error: err.Error(), Result: result})
		return
	}
	if err != nil {
		respondServiceError(w, r, err, "Failed to send image")
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// ListUndelivered handles GET /api/v1/images/undelivered
func (h *ImageHandler) ListUndelivered(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	images, err := h.imageService.ListUndelivered(ctx, middleware.GetUserID(ctx))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list images")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"images": images})
}

// MarkViewed handles POST /api/v1/images/{image_id}/viewed
func (h *ImageHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	share, err := h.imageService.MarkViewed(ctx, chi.URLParam(r, "image_id"), middleware.GetUserID(ctx))
	if err != nil {
		respondServiceError(w, r, err, "Failed to mark image viewed")
		return
	}

	respondJSON(w, http.StatusOK, share)
}

// parseRecipients accepts repeated fields and comma separated lists
func parseRecipients(values []string) []string {
	var recipients []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				recipients = append(recipients, id)
			}
		}
	}
	return recipients
}
