package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/aryan0dhankhar/memedata/internal/domain"
	"github.com/aryan0dhankhar/memedata/internal/observability/metrics"
	"github.com/aryan0dhankhar/memedata/pkg/cache"
)

const (
	// MaxTagLength is the byte limit of a tag's content
	MaxTagLength   = 32
	defaultMaxTags = 16
	tagCacheSize   = 4096
)

// TagResolver maps tag names to stored tags, creating missing ones.
// Tags never change once created, so resolved tags are cached without expiry.
type TagResolver struct {
	tags      domain.TagRepository
	maxTags   int
	blacklist map[string]struct{}
	cache     *cache.Cache[string, domain.Tag]
	logger    *slog.Logger
}

// NewTagResolver creates a resolver. maxTags <= 0 uses the default of 16.
func NewTagResolver(tags domain.TagRepository, maxTags int, blacklist []string, logger *slog.Logger) *TagResolver {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTags <= 0 {
		maxTags = defaultMaxTags
	}
	bl := make(map[string]struct{}, len(blacklist))
	for _, name := range blacklist {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			bl[name] = struct{}{}
		}
	}
	return &TagResolver{
		tags:      tags,
		maxTags:   maxTags,
		blacklist: bl,
		cache:     cache.New[string, domain.Tag](tagCacheSize),
		logger:    logger,
	}
}

// Validate checks names against the naming rules, the blacklist and the
// tag count limit. All violations are reported together. It returns the
// distinct names in input order.
func (r *TagResolver) Validate(names []string) ([]string, error) {
	var fields []apperror.FieldError
	seen := make(map[string]struct{}, len(names))
	distinct := make([]string, 0, len(names))

	for _, name := range names {
		if msg := tagNameViolation(name); msg != "" {
			fields = append(fields, apperror.FieldError{Field: "tags", Message: msg})
			continue
		}
		if _, ok := r.blacklist[name]; ok {
			fields = append(fields, apperror.FieldError{Field: "tags", Message: fmt.Sprintf("%q is not allowed", name)})
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		distinct = append(distinct, name)
	}

	if len(distinct) > r.maxTags {
		fields = append(fields, apperror.FieldError{
			Field:   "tags",
			Message: fmt.Sprintf("at most %d tags are allowed, got %d", r.maxTags, len(distinct)),
		})
	}
	if len(fields) > 0 {
		return nil, apperror.NewValidationFields(fields)
	}
	return distinct, nil
}

// Resolve validates names and returns the corresponding tags, creating
// any that do not exist yet.
func (r *TagResolver) Resolve(ctx context.Context, names []string) ([]domain.Tag, error) {
	distinct, err := r.Validate(names)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Tag, 0, len(distinct))
	created := 0
	for _, name := range distinct {
		if tag, ok := r.cache.Get(name); ok {
			out = append(out, tag)
			continue
		}

		tag, isNew, err := r.tags.FindOrCreate(ctx, name)
		if err != nil {
			return nil, apperror.NewInternal("failed to resolve tag", err)
		}
		if isNew {
			created++
			r.logger.Debug("tag created", slog.String("tag", name), slog.Int64("tag_id", tag.ID))
		}
		r.cache.Set(name, *tag, 0)
		out = append(out, *tag)
	}

	metrics.ObserveTagsCreated(created)
	return out, nil
}

func tagNameViolation(name string) string {
	switch {
	case name == "":
		return "tag must not be empty"
	case len(name) > MaxTagLength:
		return fmt.Sprintf("%q exceeds %d bytes", name, MaxTagLength)
	}
	for _, c := range name {
		switch {
		case c > unicode.MaxASCII:
			return fmt.Sprintf("%q must be ASCII", name)
		case unicode.IsSpace(c):
			return fmt.Sprintf("%q must not contain whitespace", name)
		case c == ',':
			return fmt.Sprintf("%q must not contain commas", name)
		case unicode.IsUpper(c):
			return fmt.Sprintf("%q must be lower-case", name)
		case !unicode.IsPrint(c):
			return fmt.Sprintf("%q must not contain control characters", name)
		}
	}
	return ""
}

// SplitTags turns a comma separated list into trimmed names. An empty or
// all-blank string yields no names.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
