package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/aryan0dhankhar/memedata/internal/domain"
	"github.com/aryan0dhankhar/memedata/internal/observability/metrics"
	"github.com/aryan0dhankhar/memedata/internal/validation"
)

const (
	// DefaultMaxResults is the page size when max_n_results is absent
	DefaultMaxResults = 1000
	dateLayout        = "2006-01-02"
)

// TextInput is the payload of a text creation
type TextInput struct {
	Content string   `json:"content" validate:"required,max=2048"`
	Tags    []string `json:"tags"`
}

// TextPatch is the payload of a partial text update; nil fields are left alone
type TextPatch struct {
	Content *string   `json:"content" validate:"omitnil,min=1,max=2048"`
	Tags    *[]string `json:"tags"`
}

// ListTextsInput holds the raw listing parameters as received
type ListTextsInput struct {
	AllTags    []string
	AnyTags    []string
	NoTags     []string
	DateFrom   string
	DateTo     string
	Offset     string
	MaxResults string
}

// TextPage is one page of a listing. NextOffset is nil on the last page.
type TextPage struct {
	Texts      []*domain.Text
	NextOffset *int
}

// TextService stores and queries texts
type TextService struct {
	texts     domain.TextRepository
	tags      domain.TagRepository
	resolver  *TagResolver
	validator *validation.Validator
	now       func() time.Time
	logger    *slog.Logger
}

// NewTextService creates a text service
func NewTextService(
	texts domain.TextRepository,
	tags domain.TagRepository,
	resolver *TagResolver,
	validator *validation.Validator,
	logger *slog.Logger,
) *TextService {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = validation.New()
	}
	return &TextService{
		texts:     texts,
		tags:      tags,
		resolver:  resolver,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// Create stores a new text with its tags
func (s *TextService) Create(ctx context.Context, in TextInput) (*domain.Text, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	tags, err := s.resolver.Resolve(ctx, in.Tags)
	if err != nil {
		return nil, err
	}

	text := &domain.Text{Content: in.Content, CreatedAt: s.now(), Tags: tags}
	if err := s.texts.Create(ctx, text, tagIDs(tags)); err != nil {
		return nil, apperror.NewInternal("failed to create text", err)
	}

	s.logger.Info("text created", slog.Int64("text_id", text.ID), slog.Int("tags", len(tags)))
	return text, nil
}

// Get returns one text
func (s *TextService) Get(ctx context.Context, id int64) (*domain.Text, error) {
	text, err := s.texts.GetByID(ctx, id)
	if err != nil {
		return nil, s.notFoundOr(err, id, "failed to get text")
	}
	return text, nil
}

// Update applies a partial update. Supplying tags replaces the whole tag set.
// A patch with neither field returns the text unchanged.
func (s *TextService) Update(ctx context.Context, id int64, patch TextPatch) (*domain.Text, error) {
	if err := s.validator.Validate(patch); err != nil {
		return nil, err
	}
	if patch.Content == nil && patch.Tags == nil {
		return s.Get(ctx, id)
	}

	upd := domain.TextUpdate{Content: patch.Content, UpdatedAt: s.now()}
	if patch.Tags != nil {
		tags, err := s.resolver.Resolve(ctx, *patch.Tags)
		if err != nil {
			return nil, err
		}
		upd.SetTags = true
		upd.TagIDs = tagIDs(tags)
	}

	text, err := s.texts.Update(ctx, id, upd)
	if err != nil {
		return nil, s.notFoundOr(err, id, "failed to update text")
	}
	s.logger.Info("text updated", slog.Int64("text_id", id))
	return text, nil
}

// Delete removes a text and its tag links
func (s *TextService) Delete(ctx context.Context, id int64) error {
	if err := s.texts.Delete(ctx, id); err != nil {
		return s.notFoundOr(err, id, "failed to delete text")
	}
	s.logger.Info("text deleted", slog.Int64("text_id", id))
	return nil
}

// ParseFilter validates raw listing parameters. All problems are reported
// in one validation error.
func ParseFilter(in ListTextsInput) (domain.TextFilter, error) {
	var fields []apperror.FieldError
	filter := domain.TextFilter{
		AllTags: normalizeFilterTags(in.AllTags),
		AnyTags: normalizeFilterTags(in.AnyTags),
		NoTags:  normalizeFilterTags(in.NoTags),
		Limit:   DefaultMaxResults,
	}

	parseCount := func(field, raw string, dst *int) {
		if raw == "" {
			return
		}
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
		if err != nil || n < 0 {
			fields = append(fields, apperror.FieldError{Field: field, Message: "must be a non-negative integer"})
			return
		}
		*dst = int(n)
	}
	parseCount("offset", in.Offset, &filter.Offset)
	parseCount("max_n_results", in.MaxResults, &filter.Limit)

	parseDate := func(field, raw string) *time.Time {
		if raw == "" {
			return nil
		}
		d, err := time.Parse(dateLayout, strings.TrimSpace(raw))
		if err != nil {
			fields = append(fields, apperror.FieldError{Field: field, Message: "must be a date in YYYY-MM-DD format"})
			return nil
		}
		return &d
	}
	from := parseDate("date_from", in.DateFrom)
	to := parseDate("date_to", in.DateTo)
	if from != nil && to != nil && from.After(*to) {
		fields = append(fields, apperror.FieldError{Field: "date_from", Message: "must not be after date_to"})
	}

	if len(fields) > 0 {
		return domain.TextFilter{}, apperror.NewValidationFields(fields)
	}

	filter.DateFrom = from
	if to != nil {
		next := to.AddDate(0, 0, 1)
		filter.DateTo = &next
	}
	return filter, nil
}

// List returns the page of texts matching filter, newest first
func (s *TextService) List(ctx context.Context, filter domain.TextFilter) (*TextPage, error) {
	start := time.Now()

	// max_n_results=0 is a final page: no rows and no cursor, even when texts match.
	if filter.Limit == 0 {
		metrics.ObserveTextQuery("empty", time.Since(start))
		return &TextPage{Texts: []*domain.Text{}}, nil
	}

	if len(filter.AllTags) > 0 {
		existing, err := s.tags.FindByContents(ctx, filter.AllTags)
		if err != nil {
			metrics.ObserveTextQuery("error", time.Since(start))
			return nil, apperror.NewInternal("failed to look up tags", err)
		}
		if len(existing) < len(filter.AllTags) {
			metrics.ObserveTextQuery("short_circuit", time.Since(start))
			return &TextPage{Texts: []*domain.Text{}}, nil
		}
		filter.AnyTags = nil
	}

	texts, err := s.texts.List(ctx, filter)
	if err != nil {
		metrics.ObserveTextQuery("error", time.Since(start))
		return nil, apperror.NewInternal("failed to list texts", err)
	}

	page := &TextPage{Texts: texts}
	if len(texts) > filter.Limit {
		page.Texts = texts[:filter.Limit]
		next := filter.Offset + filter.Limit
		page.NextOffset = &next
	}
	if page.Texts == nil {
		page.Texts = []*domain.Text{}
	}

	metrics.ObserveTextQuery("ok", time.Since(start))
	return page, nil
}

func (s *TextService) notFoundOr(err error, id int64, msg string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperror.NewNotFound(fmt.Sprintf("text %d does not exist", id))
	}
	return apperror.NewInternal(msg, err)
}

// normalizeFilterTags lower-cases, trims and deduplicates filter names
func normalizeFilterTags(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func tagIDs(tags []domain.Tag) []int64 {
	ids := make([]int64, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}
