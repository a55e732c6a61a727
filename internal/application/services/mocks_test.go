package services_test

import (
	"context"
	"time"

	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	"github.com/stretchr/testify/mock"
)

type MockCategoryRepository struct{ mock.Mock }

func (m *MockCategoryRepository) List(ctx context.Context) ([]*entities.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Category), args.Error(1)
}

type MockProviderRepository struct{ mock.Mock }

func (m *MockProviderRepository) Create(ctx context.Context, provider *entities.Provider) error {
	return m.Called(ctx, provider).Error(0)
}

func (m *MockProviderRepository) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Provider), args.Error(1)
}

func (m *MockProviderRepository) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Provider), args.Error(1)
}

type MockNearbyRepository struct{ mock.Mock }

func (m *MockNearbyRepository) Nearby(ctx context.Context, params repositories.NearbyParams) ([]*entities.NearbyProvider, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.NearbyProvider), args.Error(1)
}

type MockReviewRepository struct{ mock.Mock }

func (m *MockReviewRepository) Create(ctx context.Context, review *entities.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *MockReviewRepository) ListByProvider(ctx context.Context, providerID string) ([]*entities.Review, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Review), args.Error(1)
}

type MockProfileRepository struct{ mock.Mock }

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*entities.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Profile), args.Error(1)
}

func (m *MockProfileRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Profile, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Profile), args.Error(1)
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *entities.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

type MockProviderSearchIndex struct{ mock.Mock }

func (m *MockProviderSearchIndex) Search(ctx context.Context, params repositories.ProviderSearchParams) ([]string, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProviderSearchIndex) Index(ctx context.Context, provider *entities.Provider) error {
	return m.Called(ctx, provider).Error(0)
}

func (m *MockProviderSearchIndex) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockObjectStorage struct{ mock.Mock }

func (m *MockObjectStorage) Upload(ctx context.Context, path string, data []byte, contentType string, overwrite bool) error {
	return m.Called(ctx, path, data, contentType, overwrite).Error(0)
}

func (m *MockObjectStorage) PublicURL(path string) string {
	return m.Called(path).String(0)
}

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) Create(ctx context.Context, creds *entities.Credentials) error {
	return m.Called(ctx, creds).Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.Credentials, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Credentials), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

type MockSessionRepository struct{ mock.Mock }

func (m *MockSessionRepository) Create(ctx context.Context, record *repositories.SessionRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*repositories.SessionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.SessionRecord), args.Error(1)
}

func (m *MockSessionRepository) GetByRefreshTokenHash(ctx context.Context, hash string) (*repositories.SessionRecord, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.SessionRecord), args.Error(1)
}

func (m *MockSessionRepository) Rotate(ctx context.Context, id, newHash string, expiresAt time.Time) error {
	return m.Called(ctx, id, newHash, expiresAt).Error(0)
}

func (m *MockSessionRepository) Revoke(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockMagicLinkRepository struct{ mock.Mock }

func (m *MockMagicLinkRepository) Create(ctx context.Context, tokenHash, email string, expiresAt time.Time) error {
	return m.Called(ctx, tokenHash, email, expiresAt).Error(0)
}

func (m *MockMagicLinkRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	args := m.Called(ctx, tokenHash, now)
	return args.String(0), args.Error(1)
}

type MockMagicLinkSender struct{ mock.Mock }

func (m *MockMagicLinkSender) Send(ctx context.Context, link providers.MagicLink) error {
	return m.Called(ctx, link).Error(0)
}

func (m *MockMagicLinkSender) Close() error { return nil }

// fakeSessionBus loops published events back to subscribers, like a single
// Redis channel shared by several instances.
type fakeSessionBus struct {
	events chan *entities.SessionEvent
}

func newFakeSessionBus() *fakeSessionBus {
	return &fakeSessionBus{events: make(chan *entities.SessionEvent, 16)}
}

func (b *fakeSessionBus) Publish(ctx context.Context, event *entities.SessionEvent) error {
	return nil
}

func (b *fakeSessionBus) Subscribe(ctx context.Context) (<-chan *entities.SessionEvent, error) {
	out := make(chan *entities.SessionEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-b.events:
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *fakeSessionBus) Close() error { return nil }

var _ providers.SessionBus = (*fakeSessionBus)(nil)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
