package domain

import (
	"context"

	"chatlens/internal/core/model"
)

// WriterPort stores analysis results
type WriterPort interface {
	Save(ctx context.Context, res model.Result) (Record, error)
}

// QueryPort reads stored analyses and their moments
type QueryPort interface {
	Latest(ctx context.Context, chatID string) (Record, error)
	Recent(ctx context.Context, limit int) ([]Record, error)
	Moments(ctx context.Context, f MomentFilter) ([]Moment, error)
}
