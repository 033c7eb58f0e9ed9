package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/aryan0dhankhar/memedata/internal/respond"
	"github.com/aryan0dhankhar/memedata/internal/service"
)

// TextHandler handles the texts resource
type TextHandler struct {
	texts  *service.TextService
	rw     *respond.Writer
	logger *slog.Logger
}

// NewTextHandler creates a new text handler
func NewTextHandler(texts *service.TextService, rw *respond.Writer, logger *slog.Logger) *TextHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextHandler{texts: texts, rw: rw, logger: logger}
}

// List handles GET /texts
func (h *TextHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := service.ParseFilter(service.ListTextsInput{
		AllTags:    queryList(r, "all_tags"),
		AnyTags:    queryList(r, "any_tags"),
		NoTags:     queryList(r, "no_tags"),
		DateFrom:   q.Get("date_from"),
		DateTo:     q.Get("date_to"),
		Offset:     q.Get("offset"),
		MaxResults: q.Get("max_n_results"),
	})
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}

	page, err := h.texts.List(r.Context(), filter)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}

	h.rw.JSON(w, http.StatusOK, map[string]any{
		"texts":  textObjects(page.Texts, queryFields(r)),
		"offset": page.NextOffset,
	})
}

// Create handles POST /texts
func (h *TextHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := bindText(w, r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}

	in := service.TextInput{}
	if body.Content != nil {
		in.Content = *body.Content
	}
	if body.Tags != nil {
		in.Tags = *body.Tags
	}

	text, err := h.texts.Create(r.Context(), in)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	h.rw.JSON(w, http.StatusCreated, map[string]any{"text": project(textObject(text), queryFields(r))})
}

// Get handles GET /texts/{id}
func (h *TextHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	text, err := h.texts.Get(r.Context(), id)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	h.rw.JSON(w, http.StatusOK, map[string]any{"text": project(textObject(text), queryFields(r))})
}

// Update handles PUT /texts/{id}
func (h *TextHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	body, err := bindText(w, r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}

	text, err := h.texts.Update(r.Context(), id, service.TextPatch{Content: body.Content, Tags: body.Tags})
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	h.rw.JSON(w, http.StatusOK, map[string]any{"text": project(textObject(text), queryFields(r))})
}

// Delete handles DELETE /texts/{id}
func (h *TextHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	if err := h.texts.Delete(r.Context(), id); err != nil {
		h.rw.Error(w, r, err)
		return
	}
	h.rw.NoContent(w)
}

// NotFound renders unknown routes in the error envelope
func NotFound(rw *respond.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rw.Error(w, r, apperror.NewNotFound("resource not found"))
	}
}
