package handler

import (
	"sort"
	"time"

	"github.com/aryan0dhankhar/memedata/internal/domain"
)

const timeFormat = time.RFC3339Nano

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeFormat)
	return &s
}

// textFieldNames is the fixed set a fields projection may select from
var textFieldNames = map[string]bool{
	"text_id":    true,
	"content":    true,
	"created_at": true,
	"updated_at": true,
	"tags":       true,
}

func textObject(t *domain.Text) map[string]any {
	tags := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		tags = append(tags, tag.Content)
	}
	sort.Strings(tags)

	return map[string]any{
		"text_id":    t.ID,
		"content":    t.Content,
		"created_at": t.CreatedAt.UTC().Format(timeFormat),
		"updated_at": formatOptionalTime(t.UpdatedAt),
		"tags":       tags,
	}
}

// project keeps only the requested known fields. A nil selection keeps everything.
func project(obj map[string]any, fields []string) map[string]any {
	if fields == nil {
		return obj
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if !textFieldNames[f] {
			continue
		}
		if v, ok := obj[f]; ok {
			out[f] = v
		}
	}
	return out
}

func textObjects(texts []*domain.Text, fields []string) []map[string]any {
	out := make([]map[string]any, 0, len(texts))
	for _, t := range texts {
		out = append(out, project(textObject(t), fields))
	}
	return out
}

type userResponse struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		UserID:    u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt.UTC().Format(timeFormat),
	}
}

type imageResponse struct {
	ImageID   int64   `json:"image_id"`
	MimeType  string  `json:"mimetype"`
	SizeBytes int64   `json:"size_bytes"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

func toImageResponse(img *domain.Image) imageResponse {
	return imageResponse{
		ImageID:   img.ID,
		MimeType:  img.MimeType,
		SizeBytes: img.SizeBytes,
		CreatedAt: img.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: formatOptionalTime(img.UpdatedAt),
	}
}
