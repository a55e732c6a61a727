package services

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultRadiusKm is used when a nearby query carries no positive radius
const DefaultRadiusKm = 10.0

const searchFetchConcurrency = 8

// NearbyQuery describes a proximity lookup. A nil CategoryID means no filter.
type NearbyQuery struct {
	Latitude   float64
	Longitude  float64
	RadiusKm   float64
	CategoryID *string
}

// ProviderDetail is a provider with its review list
type ProviderDetail struct {
	Provider      *entities.Provider `json:"provider"`
	Reviews       []*entities.Review `json:"reviews"`
	ReviewCount   int                `json:"review_count"`
	AverageRating float64            `json:"average_rating"`
}

// ProviderInput is a provider listing submitted by its owner
type ProviderInput struct {
	UserID       string
	CategoryID   string
	BusinessName string
	Description  *string
	Phone        string
	WhatsApp     *string
	Telegram     *string
	Address      *string
	Latitude     *float64
	Longitude    *float64
}

func (in ProviderInput) validate() error {
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return apperrors.NewValidationError("owner is required")
	case strings.TrimSpace(in.BusinessName) == "":
		return apperrors.NewValidationError("business name is required")
	case strings.TrimSpace(in.CategoryID) == "":
		return apperrors.NewValidationError("category is required")
	case strings.TrimSpace(in.Phone) == "":
		return apperrors.NewValidationError("phone is required")
	case (in.Latitude == nil) != (in.Longitude == nil):
		return apperrors.NewValidationError("latitude and longitude must be given together")
	case in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90):
		return apperrors.NewValidationError("latitude must be between -90 and 90")
	case in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180):
		return apperrors.NewValidationError("longitude must be between -180 and 180")
	}
	return nil
}

// ReviewLister loads the reviews of a provider
type ReviewLister interface {
	ListReviews(ctx context.Context, providerID string) ([]*entities.Review, error)
}

// DiscoveryService answers category and provider questions
type DiscoveryService struct {
	categoryRepo    repositories.CategoryRepository
	providerRepo    repositories.ProviderRepository
	nearbyRepo      repositories.NearbyRepository
	reviews         ReviewLister
	searchIndex     repositories.ProviderSearchIndex
	defaultRadiusKm float64
}

// NewDiscoveryService creates a new discovery service. searchIndex may be
// nil, in which case SearchProviders falls back to a name match.
func NewDiscoveryService(
	categoryRepo repositories.CategoryRepository,
	providerRepo repositories.ProviderRepository,
	nearbyRepo repositories.NearbyRepository,
	reviews ReviewLister,
	searchIndex repositories.ProviderSearchIndex,
	defaultRadiusKm float64,
) *DiscoveryService {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = DefaultRadiusKm
	}
	return &DiscoveryService{
		categoryRepo:    categoryRepo,
		providerRepo:    providerRepo,
		nearbyRepo:      nearbyRepo,
		reviews:         reviews,
		searchIndex:     searchIndex,
		defaultRadiusKm: defaultRadiusKm,
	}
}

// ListCategories returns every category ordered by primary name
func (s *DiscoveryService) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, remoteQuery("failed to list categories", err)
	}
	if categories == nil {
		categories = []*entities.Category{}
	}
	return categories, nil
}

// FindNearby returns providers within the radius of a point as ranked by the
// nearby procedure. Rows are passed through without client-side filtering.
func (s *DiscoveryService) FindNearby(ctx context.Context, q NearbyQuery) ([]*entities.NearbyProvider, error) {
	radius := q.RadiusKm
	if radius <= 0 {
		radius = s.defaultRadiusKm
	}

	results, err := s.nearbyRepo.Nearby(ctx, repositories.NearbyParams{
		Latitude:       q.Latitude,
		Longitude:      q.Longitude,
		RadiusKm:       radius,
		CategoryFilter: q.CategoryID,
	})
	if err != nil {
		return nil, remoteQuery("failed to find nearby providers", err)
	}
	if results == nil {
		results = []*entities.NearbyProvider{}
	}
	return results, nil
}

// GetProviderByID returns a provider with its category
func (s *DiscoveryService) GetProviderByID(ctx context.Context, id string) (*entities.Provider, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("provider id is required")
	}
	provider, err := s.providerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, remoteQuery("failed to get provider", err)
	}
	return provider, nil
}

// ListProvidersByCategory returns approved, active providers of a category
// ordered by business name
func (s *DiscoveryService) ListProvidersByCategory(ctx context.Context, categoryID string) ([]*entities.Provider, error) {
	if strings.TrimSpace(categoryID) == "" {
		return nil, apperrors.NewValidationError("category id is required")
	}
	providers, err := s.providerRepo.List(ctx, repositories.VisibleInCategory(categoryID))
	if err != nil {
		return nil, remoteQuery("failed to list providers", err)
	}
	if providers == nil {
		providers = []*entities.Provider{}
	}
	return providers, nil
}

// CreateProvider stores a new listing for moderation. It is not indexed for
// search until it has been approved.
func (s *DiscoveryService) CreateProvider(ctx context.Context, in ProviderInput) (*entities.Provider, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	provider := &entities.Provider{
		UserID:       in.UserID,
		CategoryID:   strings.TrimSpace(in.CategoryID),
		BusinessName: strings.TrimSpace(in.BusinessName),
		Description:  trimmedOrNil(in.Description),
		Phone:        strings.TrimSpace(in.Phone),
		WhatsApp:     trimmedOrNil(in.WhatsApp),
		Telegram:     trimmedOrNil(in.Telegram),
		Address:      trimmedOrNil(in.Address),
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
	}
	if err := s.providerRepo.Create(ctx, provider); err != nil {
		return nil, remoteWrite("failed to create provider", err)
	}

	log.Info().Str("provider_id", provider.ID).Str("user_id", provider.UserID).Msg("provider submitted for moderation")
	return provider, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// GetProviderDetail loads a provider and its reviews concurrently
func (s *DiscoveryService) GetProviderDetail(ctx context.Context, id string) (*ProviderDetail, error) {
	detail := &ProviderDetail{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.GetProviderByID(gctx, id)
		detail.Provider = p
		return err
	})
	g.Go(func() error {
		reviews, err := s.reviews.ListReviews(gctx, id)
		detail.Reviews = reviews
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	detail.ReviewCount = len(detail.Reviews)
	if detail.ReviewCount > 0 {
		total := 0
		for _, r := range detail.Reviews {
			total += r.Rating
		}
		detail.AverageRating = float64(total) / float64(detail.ReviewCount)
	}
	return detail, nil
}

// SearchProviders runs a text search over visible providers. Results keep the
// relevance order of the index.
func (s *DiscoveryService) SearchProviders(ctx context.Context, text string, categoryID *string) ([]*entities.Provider, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("search text is required")
	}
	if s.searchIndex == nil {
		return s.searchByName(ctx, text, categoryID)
	}

	ids, err := s.searchIndex.Search(ctx, repositories.ProviderSearchParams{Query: text, CategoryID: categoryID})
	if err != nil {
		log.Warn().Err(err).Msg("search index unavailable, falling back to name match")
		return s.searchByName(ctx, text, categoryID)
	}

	found := make([]*entities.Provider, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(searchFetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			p, err := s.providerRepo.GetByID(gctx, id)
			if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, remoteQuery("failed to load search results", err)
	}

	results := make([]*entities.Provider, 0, len(found))
	for _, p := range found {
		// The index can lag behind approvals and deactivations.
		if p != nil && p.Visible() {
			results = append(results, p)
		}
	}
	return results, nil
}

func (s *DiscoveryService) searchByName(ctx context.Context, text string, categoryID *string) ([]*entities.Provider, error) {
	approved, active := true, true
	filter := repositories.ProviderFilter{IsApproved: &approved, IsActive: &active}
	if categoryID != nil {
		filter.CategoryID = *categoryID
	}

	providers, err := s.providerRepo.List(ctx, filter)
	if err != nil {
		return nil, remoteQuery("failed to search providers", err)
	}

	needle := strings.ToLower(text)
	results := make([]*entities.Provider, 0)
	for _, p := range providers {
		if strings.Contains(strings.ToLower(p.BusinessName), needle) {
			results = append(results, p)
		}
	}
	return results, nil
}

// ReindexProviders pushes every visible provider into the search index,
// removes the ones that are no longer visible and returns how many were
// indexed
func (s *DiscoveryService) ReindexProviders(ctx context.Context) (int, error) {
	if s.searchIndex == nil {
		return 0, apperrors.NewInternalError("search index is not configured", nil)
	}

	providers, err := s.providerRepo.List(ctx, repositories.ProviderFilter{})
	if err != nil {
		return 0, remoteQuery("failed to list providers for indexing", err)
	}

	var (
		mu               sync.Mutex
		indexed, removed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(searchFetchConcurrency)
	for _, p := range providers {
		g.Go(func() error {
			if !p.Visible() {
				if err := s.searchIndex.Delete(gctx, p.ID); err != nil {
					return err
				}
				mu.Lock()
				removed++
				mu.Unlock()
				return nil
			}
			if err := s.searchIndex.Index(gctx, p); err != nil {
				return err
			}
			mu.Lock()
			indexed++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return indexed, apperrors.NewRemoteWriteError("failed to index providers", err)
	}

	log.Info().Int("indexed", indexed).Int("removed", removed).Msg("provider index rebuilt")
	return indexed, nil
}
