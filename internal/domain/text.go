package domain

import (
	"context"
	"time"
)

// Tag is a canonical, deduplicated label
type Tag struct {
	ID        int64
	Content   string // Unique, lower-case ASCII, no spaces or commas
	CreatedAt time.Time
}

// Text is a stored snippet with its tag set
type Text struct {
	ID        int64
	Content   string
	CreatedAt time.Time
	UpdatedAt *time.Time // nil until the first mutation
	Tags      []Tag
}

// TextFilter holds the predicates and window of a text listing.
// Empty tag slices and nil dates mean "no constraint".
type TextFilter struct {
	AllTags  []string
	AnyTags  []string
	NoTags   []string
	DateFrom *time.Time // inclusive lower bound, midnight UTC
	DateTo   *time.Time // exclusive upper bound, midnight UTC of the day after
	Offset   int
	Limit    int
}

// TextUpdate carries the optional fields of a partial update
type TextUpdate struct {
	Content   *string
	TagIDs    []int64
	SetTags   bool // TagIDs replaces the tag set when true
	UpdatedAt time.Time
}

// TagRepository defines data access for tags
type TagRepository interface {
	// FindOrCreate returns the tag with the given content, inserting it if absent.
	// It is safe under concurrent calls for the same content.
	FindOrCreate(ctx context.Context, content string) (*Tag, bool, error)
	// FindByContents returns the tags that exist among contents.
	FindByContents(ctx context.Context, contents []string) ([]Tag, error)
}

// TextRepository defines data access for texts
type TextRepository interface {
	Create(ctx context.Context, text *Text, tagIDs []int64) error
	GetByID(ctx context.Context, id int64) (*Text, error)
	Update(ctx context.Context, id int64, upd TextUpdate) (*Text, error)
	Delete(ctx context.Context, id int64) error
	// List returns up to filter.Limit+1 texts so callers can detect a further page.
	List(ctx context.Context, filter TextFilter) ([]*Text, error)
}
