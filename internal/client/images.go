package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// Image is the metadata of an uploaded picture.
type Image struct {
	ID        int64      `json:"image_id"`
	MimeType  string     `json:"mimetype"`
	SizeBytes int64      `json:"size_bytes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func imagePath(id int64) string {
	return "/images/" + strconv.FormatInt(id, 10)
}

func (c *Client) ListImages(ctx context.Context) ([]Image, error) {
	var out struct {
		Images []Image `json:"images"`
	}
	err := c.authedCall(ctx, func(ctx context.Context, token string) error {
		return c.doJSON(ctx, request{method: http.MethodGet, path: "/images", token: token}, &out)
	})
	return out.Images, err
}

// GetImage returns metadata only.
func (c *Client) GetImage(ctx context.Context, id int64) (*Image, error) {
	var out struct {
		Image Image `json:"image"`
	}
	err := c.authedCall(ctx, func(ctx context.Context, token string) error {
		return c.doJSON(ctx, request{method: http.MethodGet, path: imagePath(id), token: token}, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out.Image, nil
}

// DownloadImage copies the image bytes to w and returns their mimetype.
func (c *Client) DownloadImage(ctx context.Context, id int64, w io.Writer) (string, error) {
	var mimeType string
	err := c.authedCall(ctx, func(ctx context.Context, token string) error {
		resp, err := c.do(ctx, request{method: http.MethodGet, path: imagePath(id), accept: "image/*", token: token})
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		mimeType = resp.Header.Get("Content-Type")
		if _, err := io.Copy(w, resp.Body); err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		return nil
	})
	return mimeType, err
}

// UploadImage stores a new image read from r.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (*Image, error) {
	return c.sendImage(ctx, http.MethodPost, "/images", filename, r)
}

// ReplaceImage swaps the bytes of an existing image.
func (c *Client) ReplaceImage(ctx context.Context, id int64, filename string, r io.Reader) (*Image, error) {
	return c.sendImage(ctx, http.MethodPut, imagePath(id), filename, r)
}

func (c *Client) DeleteImage(ctx context.Context, id int64) error {
	return c.authedCall(ctx, func(ctx context.Context, token string) error {
		return c.doJSON(ctx, request{method: http.MethodDelete, path: imagePath(id), token: token}, nil)
	})
}

func (c *Client) sendImage(ctx context.Context, method, path, filename string, r io.Reader) (*Image, error) {
	// The body is buffered so a retried attempt can send it again.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	payload := buf.Bytes()

	var out struct {
		Image Image `json:"image"`
	}
	err = c.authedCall(ctx, func(ctx context.Context, token string) error {
		return c.doJSON(ctx, request{
			method:      method,
			path:        path,
			body:        bytes.NewReader(payload),
			contentType: mw.FormDataContentType(),
			token:       token,
		}, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out.Image, nil
}
