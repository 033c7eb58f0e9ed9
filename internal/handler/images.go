package handler

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/aryan0dhankhar/memedata/internal/respond"
	"github.com/aryan0dhankhar/memedata/internal/service"
)

// ImageHandler handles the images resource
type ImageHandler struct {
	images   *service.ImageService
	maxBytes int64
	rw       *respond.Writer
	logger   *slog.Logger
}

// NewImageHandler creates a new image handler
func NewImageHandler(images *service.ImageService, maxBytes int64, rw *respond.Writer, logger *slog.Logger) *ImageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = service.DefaultMaxImageBytes
	}
	return &ImageHandler{images: images, maxBytes: maxBytes, rw: rw, logger: logger}
}

// uploadedFile returns the multipart "image" part
func (h *ImageHandler) uploadedFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	// Leave room for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+maxBodyBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		return nil, apperror.NewValidation("image", "expected a multipart upload within the size limit")
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, apperror.NewValidation("image", "is required")
	}
	return file, nil
}

// List handles GET /images
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	images, err := h.images.List(r.Context())
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	out := make([]imageResponse, 0, len(images))
	for _, img := range images {
		out = append(out, toImageResponse(img))
	}
	h.rw.JSON(w, http.StatusOK, map[string]any{"images": out})
}

// Upload handles POST /images
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, err := h.uploadedFile(w, r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	defer file.Close()

	img, err := h.images.Upload(r.Context(), file)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	h.rw.JSON(w, http.StatusCreated, map[string]any{"image": toImageResponse(img)})
}

// Get handles GET /images/{id}: the file when Accept admits it, metadata otherwise
func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}

	img, err := h.images.Get(r.Context(), id)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	if !acceptsImage(r.Header.Get("Accept"), img.MimeType) {
		h.rw.JSON(w, http.StatusOK, map[string]any{"image": toImageResponse(img)})
		return
	}

	img, rc, err := h.images.Open(r.Context(), id)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", img.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(img.SizeBytes, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream image", slog.Int64("image_id", id), slog.String("error", err.Error()))
	}
}

// Replace handles PUT /images/{id}
func (h *ImageHandler) Replace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	file, err := h.uploadedFile(w, r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	defer file.Close()

	img, err := h.images.Replace(r.Context(), id, file)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	h.rw.JSON(w, http.StatusOK, map[string]any{"image": toImageResponse(img)})
}

// Delete handles DELETE /images/{id}
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	if err := h.images.Delete(r.Context(), id); err != nil {
		h.rw.Error(w, r, err)
		return
	}
	h.rw.NoContent(w)
}

// acceptsImage reports whether an Accept header names mimeType or image/*.
// A bare */* does not count, so generic clients get metadata.
func acceptsImage(accept, mimeType string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if q, ok := params["q"]; ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				continue
			}
		}
		if mediaType == mimeType || mediaType == "image/*" {
			return true
		}
	}
	return false
}
