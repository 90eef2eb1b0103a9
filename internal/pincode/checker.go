package pincode

import (
	"context"
	"fmt"
	"sync"

	"clothing-marketplace/internal/model"

	"github.com/rs/zerolog"
)

// checker accepts a pincode present in any of its loaded sets.
type checker struct {
	sets   []Set
	logger zerolog.Logger
}

// NewChecker loads every file concurrently and returns a Checker over their union.
// With no files configured every well-formed pincode is serviceable.
func NewChecker(ctx context.Context, paths []string, loader Loader, logger zerolog.Logger) (Checker, error) {
	logger = logger.With().Str("component", "pincode-checker").Logger()

	type loadResult struct {
		set Set
		err error
	}

	results := make([]loadResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			set, err := loader.Load(ctx, path)
			results[index] = loadResult{set: set, err: err}
		}(i, path)
	}
	wg.Wait()

	c := &checker{
		sets:   make([]Set, 0, len(paths)),
		logger: logger,
	}

	total := 0
	for i, result := range results {
		if result.err != nil {
			logger.Error().Err(result.err).Str("file", paths[i]).Msg("failed to load pincode file")
			return nil, fmt.Errorf("failed to load pincode file %s: %w", paths[i], result.err)
		}
		c.sets = append(c.sets, result.set)
		total += result.set.Size()
	}

	logger.Info().
		Int("file_count", len(paths)).
		Int("total_pincodes", total).
		Msg("pincode checker initialised")

	return c, nil
}

// Serviceable returns nil when pincode appears in any loaded set.
func (c *checker) Serviceable(ctx context.Context, pincode string) error {
	if !Valid(pincode) {
		c.logger.Debug().Str("pincode", pincode).Msg("malformed pincode")
		return model.ErrPincodeNotServiceable.WithMessage("Delivery pincode must be six digits")
	}

	if len(c.sets) == 0 {
		return nil
	}

	for _, set := range c.sets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if set.Contains(pincode) {
			return nil
		}
	}

	c.logger.Debug().Str("pincode", pincode).Msg("pincode not serviceable")
	return model.ErrPincodeNotServiceable
}

// Close releases the loaded sets.
func (c *checker) Close() error {
	c.sets = nil
	c.logger.Info().Msg("pincode checker closed")
	return nil
}
