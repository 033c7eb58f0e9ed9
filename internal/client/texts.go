package client

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Text is a stored snippet. Fields left out of a projection keep their zero value.
type Text struct {
	ID        int64      `json:"text_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	Tags      []string   `json:"tags"`
}

// TextQuery selects a page of texts. Dates are YYYY-MM-DD.
type TextQuery struct {
	Fields     []string
	AllTags    []string
	AnyTags    []string
	NoTags     []string
	DateFrom   string
	DateTo     string
	Offset     int
	MaxResults int // zero uses the server default
}

func (q TextQuery) values() url.Values {
	v := url.Values{}
	setList := func(key string, list []string) {
		if len(list) > 0 {
			v.Set(key, strings.Join(list, ","))
		}
	}
	setList("fields", q.Fields)
	setList("all_tags", q.AllTags)
	setList("any_tags", q.AnyTags)
	setList("no_tags", q.NoTags)
	if q.DateFrom != "" {
		v.Set("date_from", q.DateFrom)
	}
	if q.DateTo != "" {
		v.Set("date_to", q.DateTo)
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.MaxResults > 0 {
		v.Set("max_n_results", strconv.Itoa(q.MaxResults))
	}
	return v
}

// TextPage is one page of a listing; NextOffset is nil on the last page.
type TextPage struct {
	Texts      []Text `json:"texts"`
	NextOffset *int   `json:"offset"`
}

// TextPatch holds the fields of an update. A non-nil empty Tags clears the tag set.
type TextPatch struct {
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

func textPath(id int64) string {
	return "/texts/" + strconv.FormatInt(id, 10)
}

func (c *Client) ListTexts(ctx context.Context, q TextQuery) (*TextPage, error) {
	var page TextPage
	err := c.authedCall(ctx, func(ctx context.Context, token string) error {
		return c.doJSON(ctx, request{method: http.MethodGet, path: "/texts", query: q.values(), token: token}, &page)
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// IterTexts yields every text matching q, following the offset cursor
// until the server reports no further page.
func (c *Client) IterTexts(ctx context.Context, q TextQuery) iter.Seq2[Text, error] {
	return func(yield func(Text, error) bool) {
		for {
			page, err := c.ListTexts(ctx, q)
			if err != nil {
				yield(Text{}, err)
				return
			}
			for _, t := range page.Texts {
				if !yield(t, nil) {
					return
				}
			}
			if page.NextOffset == nil {
				return
			}
			q.Offset = *page.NextOffset
		}
	}
}

func (c *Client) GetText(ctx context.Context, id int64, fields ...string) (*Text, error) {
	return c.textRequest(ctx, http.MethodGet, textPath(id), nil, fields)
}

func (c *Client) CreateText(ctx context.Context, content string, tags []string) (*Text, error) {
	if tags == nil {
		tags = []string{}
	}
	return c.textRequest(ctx, http.MethodPost, "/texts", TextPatch{Content: &content, Tags: &tags}, nil)
}

func (c *Client) UpdateText(ctx context.Context, id int64, patch TextPatch) (*Text, error) {
	return c.textRequest(ctx, http.MethodPut, textPath(id), patch, nil)
}

func (c *Client) DeleteText(ctx context.Context, id int64) error {
	return c.authedCall(ctx, func(ctx context.Context, token string) error {
		return c.doJSON(ctx, request{method: http.MethodDelete, path: textPath(id), token: token}, nil)
	})
}

func (c *Client) textRequest(ctx context.Context, method, path string, payload any, fields []string) (*Text, error) {
	var out struct {
		Text Text `json:"text"`
	}
	var query url.Values
	if len(fields) > 0 {
		query = url.Values{"fields": {strings.Join(fields, ",")}}
	}
	err := c.authedCall(ctx, func(ctx context.Context, token string) error {
		req := request{method: method, path: path, query: query, token: token}
		if payload != nil {
			body, err := jsonBody(payload)
			if err != nil {
				return err
			}
			req.body = body
			req.contentType = "application/json"
		}
		return c.doJSON(ctx, req, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out.Text, nil
}
