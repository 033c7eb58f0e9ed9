package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/aryan0dhankhar/memedata/internal/domain"
)

type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[int64]*domain.User{}}
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Username == u.Username {
			return domain.ErrConflict
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now().UTC()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUserRepo) List(_ context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.User, 0, len(m.byID))
	for _, u := range m.byID {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newMemRevocations() *memRevocations {
	return &memRevocations{revoked: map[string]time.Time{}}
}

func (m *memRevocations) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.revoked[jti]; !ok {
		m.revoked[jti] = expiresAt
	}
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[jti]
	return ok, nil
}

type memTagRepo struct {
	mu        sync.Mutex
	nextID    int64
	byContent map[string]domain.Tag
	calls     int
}

func newMemTagRepo() *memTagRepo {
	return &memTagRepo{byContent: map[string]domain.Tag{}}
}

func (m *memTagRepo) FindOrCreate(_ context.Context, content string) (*domain.Tag, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if t, ok := m.byContent[content]; ok {
		return &t, false, nil
	}
	m.nextID++
	t := domain.Tag{ID: m.nextID, Content: content, CreatedAt: time.Now().UTC()}
	m.byContent[content] = t
	return &t, true, nil
}

func (m *memTagRepo) FindByContents(_ context.Context, contents []string) ([]domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Tag
	for _, c := range contents {
		if t, ok := m.byContent[c]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTagRepo) byID(id int64) domain.Tag {
	for _, t := range m.byContent {
		if t.ID == id {
			return t
		}
	}
	return domain.Tag{}
}

// memTextRepo evaluates filters in memory with the same ordering as the SQL store
type memTextRepo struct {
	mu     sync.Mutex
	tags   *memTagRepo
	nextID int64
	texts  map[int64]*domain.Text
	clock  time.Time
}

func newMemTextRepo(tags *memTagRepo) *memTextRepo {
	return &memTextRepo{
		tags:  tags,
		texts: map[int64]*domain.Text{},
		clock: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memTextRepo) tagsFor(ids []int64) []domain.Tag {
	out := make([]domain.Tag, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.tags.byID(id))
	}
	return out
}

func (m *memTextRepo) Create(_ context.Context, text *domain.Text, tagIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.clock = m.clock.Add(time.Minute)
	text.ID = m.nextID
	text.CreatedAt = m.clock
	text.UpdatedAt = nil
	text.Tags = m.tagsFor(tagIDs)
	cp := *text
	m.texts[text.ID] = &cp
	return nil
}

func (m *memTextRepo) GetByID(_ context.Context, id int64) (*domain.Text, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.texts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTextRepo) Update(_ context.Context, id int64, upd domain.TextUpdate) (*domain.Text, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.texts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Content != nil {
		t.Content = *upd.Content
	}
	if upd.SetTags {
		t.Tags = m.tagsFor(upd.TagIDs)
	}
	at := upd.UpdatedAt
	t.UpdatedAt = &at
	cp := *t
	return &cp, nil
}

func (m *memTextRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.texts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.texts, id)
	return nil
}

func hasTag(t *domain.Text, name string) bool {
	for _, tag := range t.Tags {
		if tag.Content == name {
			return true
		}
	}
	return false
}

func (m *memTextRepo) List(_ context.Context, f domain.TextFilter) ([]*domain.Text, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*domain.Text
	for _, t := range m.texts {
		ok := true
		for _, n := range f.AllTags {
			ok = ok && hasTag(t, n)
		}
		if len(f.AnyTags) > 0 {
			hit := false
			for _, n := range f.AnyTags {
				hit = hit || hasTag(t, n)
			}
			ok = ok && hit
		}
		for _, n := range f.NoTags {
			ok = ok && !hasTag(t, n)
		}
		if f.DateFrom != nil && t.CreatedAt.Before(*f.DateFrom) {
			ok = false
		}
		if f.DateTo != nil && !t.CreatedAt.Before(*f.DateTo) {
			ok = false
		}
		if ok {
			cp := *t
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	if f.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > f.Limit+1 {
		matched = matched[:f.Limit+1]
	}
	return matched, nil
}

type memImageRepo struct {
	mu        sync.Mutex
	nextID    int64
	images    map[int64]*domain.Image
	updateErr error
}

func newMemImageRepo() *memImageRepo {
	return &memImageRepo{images: map[int64]*domain.Image{}}
}

func (m *memImageRepo) Create(_ context.Context, img *domain.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	img.ID = m.nextID
	img.CreatedAt = time.Now().UTC()
	cp := *img
	m.images[img.ID] = &cp
	return nil
}

func (m *memImageRepo) GetByID(_ context.Context, id int64) (*domain.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *img
	return &cp, nil
}

func (m *memImageRepo) Update(_ context.Context, img *domain.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.images[img.ID]; !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	img.UpdatedAt = &now
	cp := *img
	m.images[img.ID] = &cp
	return nil
}

func (m *memImageRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.images, id)
	return nil
}

func (m *memImageRepo) List(_ context.Context) ([]*domain.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Image, 0, len(m.images))
	for _, img := range m.images {
		cp := *img
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	err   error
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: map[string][]byte{}}
}

func (m *memBlobStore) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return int64(len(data)), nil
}

func (m *memBlobStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *memBlobStore) Move(_ context.Context, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[from]
	if !ok {
		return domain.ErrNotFound
	}
	m.blobs[to] = data
	delete(m.blobs, from)
	return nil
}

var errBoom = errors.New("boom")
