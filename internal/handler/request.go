package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/aryan0dhankhar/memedata/internal/service"
)

const maxBodyBytes = 1 << 20

// isJSON reports whether the request body is JSON; anything else is parsed as a form
func isJSON(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.NewValidation("body", "request body too large")
		}
		return apperror.NewValidation("body", "malformed JSON: "+err.Error())
	}
	return nil
}

func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(maxBodyBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return apperror.NewValidation("body", "malformed form body")
	}
	return nil
}

// credentials is the username/password payload of login and registration
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func bindCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var c credentials
	if isJSON(r) {
		err := decodeJSON(w, r, &c)
		return c, err
	}
	if err := parseForm(w, r); err != nil {
		return c, err
	}
	c.Username = r.PostFormValue("username")
	c.Password = r.PostFormValue("password")
	return c, nil
}

// textBody is a create or update payload. Tags is nil when not supplied.
type textBody struct {
	Content *string
	Tags    *[]string
}

type textBodyJSON struct {
	Content *string         `json:"content"`
	Tags    json.RawMessage `json:"tags"`
}

func bindText(w http.ResponseWriter, r *http.Request) (textBody, error) {
	var body textBody
	if isJSON(r) {
		var raw textBodyJSON
		if err := decodeJSON(w, r, &raw); err != nil {
			return body, err
		}
		body.Content = raw.Content
		tags, err := parseTagsJSON(raw.Tags)
		if err != nil {
			return body, err
		}
		body.Tags = tags
		return body, nil
	}

	if err := parseForm(w, r); err != nil {
		return body, err
	}
	if values, ok := r.PostForm["content"]; ok && len(values) > 0 {
		body.Content = &values[0]
	}
	if values, ok := r.PostForm["tags"]; ok {
		tags := service.SplitTags(strings.Join(values, ","))
		body.Tags = &tags
	}
	return body, nil
}

// parseTagsJSON accepts "a,b" or ["a","b"]; null or absent means not supplied
func parseTagsJSON(raw json.RawMessage) (*[]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var tags []string
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, apperror.NewValidation("tags", "must be a string or a list of strings")
		}
		tags = service.SplitTags(s)
	} else {
		if err := json.Unmarshal(raw, &tags); err != nil {
			return nil, apperror.NewValidation("tags", "must be a string or a list of strings")
		}
		for i := range tags {
			tags[i] = strings.TrimSpace(tags[i])
		}
	}
	if tags == nil {
		tags = []string{}
	}
	return &tags, nil
}

// pathID parses the {id} path value as a positive integer
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewValidation("id", "must be a positive integer")
	}
	return id, nil
}

// queryList reads a comma separated query parameter; repeated keys are merged
func queryList(r *http.Request, key string) []string {
	values, ok := r.URL.Query()[key]
	if !ok {
		return nil
	}
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// queryFields returns the fields projection, or nil when the parameter is absent
func queryFields(r *http.Request) []string {
	if _, ok := r.URL.Query()["fields"]; !ok {
		return nil
	}
	fields := queryList(r, "fields")
	if fields == nil {
		fields = []string{}
	}
	return fields
}
