package service

import (
	"context"
	"fmt"

	"clothing-marketplace/internal/model"
	"clothing-marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// catalogService implements CatalogService.
type catalogService struct {
	variantRepo repository.VariantRepository
	logger      zerolog.Logger
}

// NewCatalogService creates a new catalog read service.
func NewCatalogService(variantRepo repository.VariantRepository, logger zerolog.Logger) CatalogService {
	return &catalogService{
		variantRepo: variantRepo,
		logger:      logger.With().Str("service", "catalog").Logger(),
	}
}

// ListVariants lists the variants of a product with their stock counters.
func (s *catalogService) ListVariants(ctx context.Context, productID uuid.UUID) ([]model.ProductVariant, error) {
	variants, err := s.variantRepo.ListByProduct(ctx, productID)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", productID.String()).Msg("failed to list variants")
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	if len(variants) == 0 {
		return nil, model.ErrVariantNotFound.WithMessage("Product has no variants")
	}
	return variants, nil
}
