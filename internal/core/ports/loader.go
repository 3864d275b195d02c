package ports

import (
	"context"

	"go.trai.ch/trove/internal/core/domain"
)

// ContextLoader extracts deferred context blocks from a source file.
//
//go:generate mockgen -source=loader.go -destination=mocks/mock_loader.go -package=mocks
type ContextLoader interface {
	// Load evaluates the top level of the file at path in a fresh scope and returns
	// the blocks it registers, in registration order, without evaluating them.
	// It fails with domain.ErrIOFailure or domain.ErrParseFailure and then returns no blocks.
	Load(ctx context.Context, path string) ([]domain.ContextBlock, error)
}
