package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/memedata/internal/client"
	"github.com/aryan0dhankhar/memedata/internal/featureflags"
	"github.com/aryan0dhankhar/memedata/internal/security/auth"
	"github.com/aryan0dhankhar/memedata/pkg/config"
	"github.com/aryan0dhankhar/memedata/pkg/database"
)

const (
	suPassword    = "supersecret"
	alicePassword = "password123"
)

type testEnv struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestEnv(t *testing.T, flags map[string]string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Environment:        "test",
		ServerPort:         0,
		JWTSecret:          "test-secret",
		JWTIssuer:          "memedata-test",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    time.Hour,
		Superusers:         []string{"su"},
		MinPasswordLength:  8,
		MaxTags:            16,
		ImageDir:           filepath.Join(dir, "images"),
		MaxImageBytes:      1 << 20,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}

	dbConfig := database.DefaultConfig()
	dbConfig.Path = filepath.Join(dir, "memedata.db")
	require.NoError(t, database.Migrate(dbConfig, nil))
	pool, err := database.NewConnectionPool(context.Background(), dbConfig, nil)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	s, err := New(cfg, nil, pool, Options{
		Flags:  featureflags.New(func(key string) string { return flags[key] }),
		Hasher: auth.NewBcryptHasher(bcrypt.MinCost),
	})
	require.NoError(t, err)

	created, err := s.Users().EnsureSuperusers(context.Background(), cfg.Superusers, suPassword)
	require.NoError(t, err)
	require.Equal(t, 1, created)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{t: t, srv: srv}
}

func (e *testEnv) client(username, password string) *client.Client {
	e.t.Helper()
	c, err := client.New(e.srv.URL)
	require.NoError(e.t, err)
	_, err = c.Login(context.Background(), username, password)
	require.NoError(e.t, err)
	return c
}

func (e *testEnv) registerAlice() *client.Client {
	e.t.Helper()
	anon, err := client.New(e.srv.URL)
	require.NoError(e.t, err)
	_, err = anon.Register(context.Background(), "alice", alicePassword)
	require.NoError(e.t, err)
	return e.client("alice", alicePassword)
}

// do sends a raw request and decodes a JSON body into a generic map.
func (e *testEnv) do(method, path, token string, body io.Reader, contentType string) (int, map[string]any) {
	e.t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(e.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	var out map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		require.NoError(e.t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, _ = env.do(http.MethodGet, "/readyz", "", nil, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(http.MethodGet, "/healthz", "", nil, "")

	resp, err := http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "memedata_http_requests_total")
}

func TestLoginErrorsUseEnvelope(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(http.MethodPost, "/auth/login", "",
		strings.NewReader(`{"username":"nobody","password":"whatever1"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []any{map[string]any{"message": "invalid username or password", "code": float64(400)}}, body["errors"])
}

func TestLoginAcceptsFormEncoding(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(http.MethodPost, "/auth/login", "",
		strings.NewReader("username=su&password="+suPassword), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user 'su' logged in", body["message"])
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	status, body := env.do(http.MethodGet, "/nope", "", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["errors"])
}

func TestUnsupportedContentType(t *testing.T) {
	env := newTestEnv(t, nil)
	status, _ := env.do(http.MethodPost, "/auth/login", "", strings.NewReader("<xml/>"), "application/xml")
	assert.Equal(t, http.StatusUnsupportedMediaType, status)
}

func TestRegistrationValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.registerAlice()

	status, body := env.do(http.MethodPost, "/users", "",
		strings.NewReader(`{"username":"alice","password":"password123"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"].([]any)[0].(map[string]any)["message"], "already taken")

	status, _ = env.do(http.MethodPost, "/users", "",
		strings.NewReader(`{"username":"bob","password":"short"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRestrictedRegistration(t *testing.T) {
	env := newTestEnv(t, map[string]string{"FLAG_RESTRICT_REGISTRATION": "true"})

	status, _ := env.do(http.MethodPost, "/users", "",
		strings.NewReader(`{"username":"bob","password":"password123"}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, status)

	su := env.client("su", suPassword)
	id, err := su.Register(context.Background(), "bob", "password123")
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestTextLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.registerAlice()
	ctx := context.Background()

	created, err := alice.CreateText(ctx, "hi", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "hi", created.Content)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Nil(t, created.UpdatedAt)
	assert.Equal(t, []string{"a", "b"}, created.Tags)

	bye := "bye"
	updated, err := alice.UpdateText(ctx, created.ID, client.TextPatch{Content: &bye})
	require.NoError(t, err)
	assert.Equal(t, "bye", updated.Content)
	assert.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, []string{"a", "b"}, updated.Tags)

	page, err := alice.ListTexts(ctx, client.TextQuery{AllTags: []string{"a"}})
	require.NoError(t, err)
	require.Len(t, page.Texts, 1)
	assert.Equal(t, created.ID, page.Texts[0].ID)
	assert.Nil(t, page.NextOffset)

	require.NoError(t, alice.DeleteText(ctx, created.ID))
	_, err = alice.GetText(ctx, created.ID)
	assert.True(t, client.IsNotFound(err))
}

func TestTextTagsFromForm(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.registerAlice()
	token := alice.Tokens().AccessToken

	status, body := env.do(http.MethodPost, "/texts", token,
		strings.NewReader("content=hello&tags=web,%20go,go"), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusCreated, status)
	text := body["text"].(map[string]any)
	assert.Equal(t, []any{"go", "web"}, text["tags"])

	status, body = env.do(http.MethodPost, "/texts", token,
		strings.NewReader("content=hello&tags=Go,has%20space"), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Len(t, body["errors"], 2, "every invalid tag is reported")
}

func TestTextListFieldsProjection(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.registerAlice()
	_, err := alice.CreateText(context.Background(), "projected", []string{"x"})
	require.NoError(t, err)

	status, body := env.do(http.MethodGet, "/texts?fields=content,bogus", alice.Tokens().AccessToken, nil, "")
	require.Equal(t, http.StatusOK, status)
	texts := body["texts"].([]any)
	require.Len(t, texts, 1)
	assert.Equal(t, map[string]any{"content": "projected"}, texts[0])
	assert.Nil(t, body["offset"])
}

func TestAllTagsWithUnknownTagIsEmpty(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.registerAlice()
	ctx := context.Background()
	_, err := alice.CreateText(ctx, "tagged", []string{"a"})
	require.NoError(t, err)

	page, err := alice.ListTexts(ctx, client.TextQuery{AllTags: []string{"a", "never-used"}})
	require.NoError(t, err)
	assert.Empty(t, page.Texts)
	assert.Nil(t, page.NextOffset)
}

func TestTextPagination(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.registerAlice()
	ctx := context.Background()
	for _, c := range []string{"t1", "t2", "t3", "t4", "t5"} {
		_, err := alice.CreateText(ctx, c, nil)
		require.NoError(t, err)
	}

	first, err := alice.ListTexts(ctx, client.TextQuery{MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, first.Texts, 2)
	require.NotNil(t, first.NextOffset)
	assert.Equal(t, 2, *first.NextOffset)
	assert.Equal(t, "t5", first.Texts[0].Content)

	var all []string
	for text, err := range alice.IterTexts(ctx, client.TextQuery{MaxResults: 2}) {
		require.NoError(t, err)
		all = append(all, text.Content)
	}
	assert.Equal(t, []string{"t5", "t4", "t3", "t2", "t1"}, all)

	status, body := env.do(http.MethodGet, "/texts?max_n_results=-1", alice.Tokens().AccessToken, nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body["errors"])
}

func TestTokenTypesAndRevocation(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.registerAlice()
	tokens := alice.Tokens()

	status, _ := env.do(http.MethodGet, "/texts", tokens.RefreshToken, nil, "")
	assert.Equal(t, http.StatusUnauthorized, status, "refresh token cannot access resources")

	status, _ = env.do(http.MethodPost, "/auth/token/refresh", tokens.AccessToken, nil, "")
	assert.Equal(t, http.StatusUnauthorized, status, "access token cannot refresh")

	status, body := env.do(http.MethodPost, "/auth/token/refresh", tokens.RefreshToken, nil, "")
	require.Equal(t, http.StatusOK, status)
	fresh := body["access_token"].(string)
	require.NotEmpty(t, fresh)

	status, _ = env.do(http.MethodPost, "/auth/logout/access", tokens.AccessToken, nil, "")
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = env.do(http.MethodGet, "/texts", tokens.AccessToken, nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = env.do(http.MethodGet, "/texts", fresh, nil, "")
	assert.Equal(t, http.StatusOK, status, "other access tokens stay valid")

	status, _ = env.do(http.MethodPost, "/auth/logout/refresh", tokens.RefreshToken, nil, "")
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = env.do(http.MethodPost, "/auth/token/refresh", tokens.RefreshToken, nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestClientRecoversFromRevokedAccessToken(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.registerAlice()

	status, _ := env.do(http.MethodPost, "/auth/logout/access", alice.Tokens().AccessToken, nil, "")
	require.Equal(t, http.StatusNoContent, status)

	_, err := alice.ListTexts(context.Background(), client.TextQuery{})
	require.NoError(t, err)
}

func TestUserManagementRequiresPrivileges(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.registerAlice()
	ctx := context.Background()

	_, err := alice.ListUsers(ctx)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	su := env.client("su", suPassword)
	users, err := su.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	var aliceID int64
	for _, u := range users {
		if u.Username == "alice" {
			aliceID = u.ID
		}
	}
	require.NotZero(t, aliceID)

	got, err := su.GetUser(ctx, aliceID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	require.NoError(t, su.DeleteUser(ctx, aliceID))
	_, err = su.GetUser(ctx, aliceID)
	assert.True(t, client.IsNotFound(err))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.registerAlice()
	ctx := context.Background()
	data := pngBytes(t)

	img, err := alice.UploadImage(ctx, "dot.png", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, int64(len(data)), img.SizeBytes)

	meta, err := alice.GetImage(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.ID, meta.ID)

	var buf bytes.Buffer
	mimeType, err := alice.DownloadImage(ctx, img.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, data, buf.Bytes())

	_, err = alice.UploadImage(ctx, "fake.png", strings.NewReader("not an image"))
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	images, err := alice.ListImages(ctx)
	require.NoError(t, err)
	assert.Len(t, images, 1)

	require.NoError(t, alice.DeleteImage(ctx, img.ID))
	_, err = alice.GetImage(ctx, img.ID)
	assert.True(t, client.IsNotFound(err))
}
