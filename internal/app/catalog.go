package app

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotel_backoffice/internal/domain"
)

// The active list is stored under a versioned key. Writes bump the generation
// after the database write, so a slow reader that loaded the old list can only
// refill a key that nobody reads any more.
const (
	activePackagesKey = "packages:active"
	activePackagesGen = "packages:active:gen"
)

type PackageInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Features    []string `json:"features" validate:"max=50,dive,max=200"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
}

// CatalogService serves the package catalog. The active list is read on every
// public page, so it is cached and evicted on every write.
type CatalogService struct {
	repo     domain.PackageRepository
	cache    domain.Cache
	cacheTTL time.Duration
	validate *validator.Validate
	now      func() time.Time
}

func NewCatalogService(r domain.PackageRepository, c domain.Cache, ttl time.Duration, v *validator.Validate) *CatalogService {
	return &CatalogService{repo: r, cache: c, cacheTTL: ttl, validate: v, now: time.Now}
}

func (s *CatalogService) ListActive(ctx context.Context) ([]domain.Package, error) {
	var (
		out []domain.Package
		key string
	)
	if s.cache != nil {
		key = s.activeKey(ctx)
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}
	ps, err := s.repo.ListActivePackages(ctx)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		ps = []domain.Package{}
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, ps, int(s.cacheTTL.Seconds()))
	}
	return ps, nil
}

// activeKey resolves the current generation; no generation yet means "0".
func (s *CatalogService) activeKey(ctx context.Context) string {
	var gen string
	if ok, err := s.cache.Get(ctx, activePackagesGen, &gen); err != nil || !ok || gen == "" {
		gen = "0"
	}
	return activePackagesKey + ":" + gen
}

// GetActive returns the package only if it can still be booked.
func (s *CatalogService) GetActive(ctx context.Context, id int64) (domain.Package, error) {
	if id <= 0 {
		return domain.Package{}, domain.Validation("packageId must be positive")
	}
	p, err := s.repo.GetPackage(ctx, id)
	if err != nil {
		return domain.Package{}, err
	}
	if !p.IsActive {
		return domain.Package{}, domain.NotFound("package not found")
	}
	return p, nil
}

func (s *CatalogService) Create(ctx context.Context, in PackageInput) (domain.Package, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.Package{}, validationError(err)
	}
	p, err := s.repo.CreatePackage(ctx, domain.Package{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Features:    cleanFeatures(in.Features),
		Price:       *in.Price,
		IsActive:    true,
	})
	if err != nil {
		return domain.Package{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *CatalogService) Update(ctx context.Context, id int64, in PackageInput) (domain.Package, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.Package{}, validationError(err)
	}
	cur, err := s.repo.GetPackage(ctx, id)
	if err != nil {
		return domain.Package{}, err
	}
	cur.Title = strings.TrimSpace(in.Title)
	cur.Description = strings.TrimSpace(in.Description)
	cur.Features = cleanFeatures(in.Features)
	cur.Price = *in.Price
	p, err := s.repo.UpdatePackage(ctx, cur)
	if err != nil {
		return domain.Package{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

// Deactivate soft-deletes a package. Bookings keep their snapshot price.
func (s *CatalogService) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.DeactivatePackage(ctx, id, s.now().UTC()); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// invalidate moves readers to a fresh generation and drops the entry they were
// using. The generation key has no expiry.
func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	old := s.activeKey(ctx)
	if err := s.cache.Set(ctx, activePackagesGen, uuid.NewString(), 0); err != nil {
		log.Warn().Err(err).Str("key", activePackagesGen).Msg("package cache generation bump failed")
	}
	if err := s.cache.Del(ctx, old); err != nil {
		log.Warn().Err(err).Str("key", old).Msg("package cache eviction failed")
	}
}

func cleanFeatures(in []string) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		if t := strings.TrimSpace(f); t != "" {
			out = append(out, t)
		}
	}
	return out
}
