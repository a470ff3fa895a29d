package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/securecloudx/securecloudx/internal/common"
	"github.com/securecloudx/securecloudx/internal/dbx"
	"github.com/securecloudx/securecloudx/internal/ledger"
	"github.com/securecloudx/securecloudx/internal/logging"
	"github.com/securecloudx/securecloudx/internal/server/models"
	"github.com/securecloudx/securecloudx/internal/server/repositories/files"
	"github.com/securecloudx/securecloudx/internal/server/repositories/users"
)

// In-memory fakes shared by user and custody service tests.

type fakeUserRepo struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	byerr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byerr != nil {
		return nil, r.byerr
	}
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	r.byID[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, userName string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.UserName == userName {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUserRepo) List(_ context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.byID {
		out = append(out, &models.User{ID: u.ID, UserName: u.UserName, CreatedAt: u.CreatedAt})
	}
	return out, nil
}

type fakeFileRepo struct {
	mu   sync.Mutex
	byID map[string]*models.File
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{byID: make(map[string]*models.File)}
}

func (r *fakeFileRepo) Create(_ context.Context, file *models.File) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	file.CreatedAt = time.Now()
	r.byID[file.ID] = file
	return file, nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, id string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.byID[id]; ok {
		return f, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeFileRepo) ListByOwner(_ context.Context, ownerID string) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.File
	for _, f := range r.byID {
		if f.OwnerID == ownerID {
			out = append(out, f)
		}
	}
	return out, nil
}

type fakeRepoManager struct {
	users *fakeUserRepo
	files *fakeFileRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{users: newFakeUserRepo(), files: newFakeFileRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository { return m.users }
func (m *fakeRepoManager) Files(dbx.DBTX) files.Repository { return m.files }

type memLedgerStore struct {
	mu      sync.Mutex
	records []*ledger.Record
}

func (s *memLedgerStore) Load(context.Context) ([]*ledger.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ledger.Record(nil), s.records...), nil
}

func (s *memLedgerStore) Save(_ context.Context, records []*ledger.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]*ledger.Record(nil), records...)
	return nil
}

type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (s *memBlobStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (s *memBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.blobs[key]; ok {
		return append([]byte(nil), b...), nil
	}
	return nil, common.ErrorNotFound
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
