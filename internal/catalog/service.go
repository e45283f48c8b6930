package catalog

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aranya-labs/backend-vastra/internal/common"
)

// Service serves catalog reads through the cache and writes through the repo.
type Service struct {
	Repo   Repo
	Cache  *Cache
	Logger zerolog.Logger
}

type listPage struct {
	Items []Product `json:"items"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// ListProducts returns a page of products, served from cache when available.
func (s *Service) ListProducts(ctx context.Context, page, perPage int) ([]Product, error) {
	key := KeyList(perPage, (page-1)*perPage)
	var cached listPage
	ok, err := s.Cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	}
	if ok {
		return cached.Items, nil
	}
	items, err := s.Repo.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, key, listPage{Items: items, Page: page, Limit: perPage}); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return items, nil
}

// GetProduct returns a product detail by slug, served from cache when available.
func (s *Service) GetProduct(ctx context.Context, slug string) (Product, error) {
	key := KeyProduct(slug)
	var cached Product
	ok, err := s.Cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	}
	if ok {
		return cached, nil
	}
	p, err := s.Repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, common.NewAppError(common.CodeNotFound, "product not found", http.StatusNotFound, err)
		}
		return Product{}, err
	}
	if err := s.Cache.SetJSON(ctx, key, p); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return p, nil
}

// Import normalises a raw product document, persists it and invalidates the
// display cache. Stock reads are unaffected because they never go through the
// cache.
func (s *Service) Import(ctx context.Context, raw []byte) (Product, error) {
	p, err := NormalizeDoc(raw)
	if err != nil {
		return Product{}, common.NewAppError(common.CodeBadRequest, err.Error(), http.StatusBadRequest, err)
	}
	if err := s.Repo.Upsert(ctx, p); err != nil {
		return Product{}, err
	}
	if err := s.Cache.Invalidate(ctx, p.Slug); err != nil {
		s.Logger.Warn().Err(err).Str("slug", p.Slug).Msg("catalog cache invalidation failed")
	}
	return p, nil
}
