package usecase_test

import (
	"context"
	"encoding/json"
	"time"

	"downloader/domain/dto"
	"downloader/domain/model"
	"downloader/infrastructure/clients/google"
	"downloader/infrastructure/storage"
	"downloader/usecase"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type MockDownloadCache struct {
	mock.Mock
}

func (m *MockDownloadCache) Get(ctx context.Context, id string) (*model.Download, bool) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*model.Download), args.Bool(1)
}

func (m *MockDownloadCache) Set(ctx context.Context, d *model.Download) {
	m.Called(ctx, d)
}

func (m *MockDownloadCache) Invalidate(ctx context.Context, id string) {
	m.Called(ctx, id)
}

type MockDownloadRepository struct {
	mock.Mock
}

func (m *MockDownloadRepository) Create(ctx context.Context, d *model.Download) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDownloadRepository) GetByID(ctx context.Context, id string) (*model.Download, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Download), args.Error(1)
}

func (m *MockDownloadRepository) GetByIDForUser(ctx context.Context, id, userID string) (*model.Download, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Download), args.Error(1)
}

func (m *MockDownloadRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Download, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Download), args.Error(1)
}

func (m *MockDownloadRepository) MarkProcessing(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockDownloadRepository) MarkCompleted(ctx context.Context, id string, result model.DownloadResult) error {
	return m.Called(ctx, id, result).Error(0)
}

func (m *MockDownloadRepository) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return m.Called(ctx, id, errMsg).Error(0)
}

func (m *MockDownloadRepository) MarkExpired(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockDownloadRepository) FindExpiredCompleted(ctx context.Context, now time.Time) ([]*model.Download, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Download), args.Error(1)
}

func (m *MockDownloadRepository) FindFailedCreatedBefore(ctx context.Context, before time.Time) ([]*model.Download, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Download), args.Error(1)
}

func (m *MockDownloadRepository) FindByStatus(ctx context.Context, status model.DownloadStatus) ([]*model.Download, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Download), args.Error(1)
}

func (m *MockDownloadRepository) FindStaleProcessing(ctx context.Context, before time.Time) ([]*model.Download, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Download), args.Error(1)
}

func (m *MockDownloadRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) UpsertByGoogleID(ctx context.Context, u *model.User) (*model.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindTokenExpiredBefore(ctx context.Context, now time.Time) ([]*model.User, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateTokens(ctx context.Context, id string, tokens model.TokenBundle) error {
	return m.Called(ctx, id, tokens).Error(0)
}

type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, task dto.DownloadTask) error {
	return m.Called(ctx, task).Error(0)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, url string, fileType model.DownloadType, formatID string) (*dto.ExtractionResponse, error) {
	args := m.Called(ctx, url, fileType, formatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ExtractionResponse), args.Error(1)
}

func (m *MockExtractor) Formats(ctx context.Context, url string) (json.RawMessage, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, evt dto.DownloadStatusEvent) error {
	return m.Called(ctx, evt).Error(0)
}

type MockGoogleAuth struct {
	mock.Mock
}

func (m *MockGoogleAuth) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockGoogleAuth) AuthURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockGoogleAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *MockGoogleAuth) UserInfo(ctx context.Context, token *oauth2.Token) (*google.Profile, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*google.Profile), args.Error(1)
}

func (m *MockGoogleAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

// fixture bundles the mocks with an in-memory download directory.
type fixture struct {
	repo      *MockDownloadRepository
	users     *MockUserRepository
	queue     *MockQueue
	extractor *MockExtractor
	events    *MockPublisher
	google    *MockGoogleAuth
	fs        afero.Fs
	store     storage.IFileStore
}

func newFixture() *fixture {
	fs := afero.NewMemMapFs()
	store := storage.NewFileStore(fs, "/downloads")
	_ = store.EnsureDir()
	return &fixture{
		repo:      new(MockDownloadRepository),
		users:     new(MockUserRepository),
		queue:     new(MockQueue),
		extractor: new(MockExtractor),
		events:    new(MockPublisher),
		google:    new(MockGoogleAuth),
		fs:        fs,
		store:     store,
	}
}

func (f *fixture) deps() usecase.Deps {
	return usecase.Deps{
		Downloads: f.repo,
		Users:     f.users,
		Queue:     f.queue,
		Extractor: f.extractor,
		Store:     f.store,
		Events:    f.events,
		Google:    f.google,
		Clock:     func() time.Time { return fixedNow },
	}
}

func (f *fixture) writeFile(name, content string) {
	_ = afero.WriteFile(f.fs, f.store.Path(name), []byte(content), 0o644)
}

func (f *fixture) exists(name string) bool {
	ok, _ := afero.Exists(f.fs, f.store.Path(name))
	return ok
}

// expectEvent accepts any published event with the given status.
func (f *fixture) expectEvent(status model.DownloadStatus) *mock.Call {
	return f.events.On("Publish", mock.Anything, mock.MatchedBy(func(evt dto.DownloadStatusEvent) bool {
		return evt.Status == string(status)
	})).Return(nil)
}
