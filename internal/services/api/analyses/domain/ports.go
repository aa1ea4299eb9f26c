package domain

import (
	"context"

	adom "chatlens/internal/services/analyses/domain"
	wdom "chatlens/internal/services/analyzer/domain"
)

// ServicePort defines the service contract for the analyses API
type ServicePort interface {
	Analyze(ctx context.Context, in AnalyzeInput) (AnalyzeOutput, error)
	Enqueue(ctx context.Context, in AnalyzeInput) (wdom.Status, error)
	Job(ctx context.Context, jobID string) (wdom.Status, error)
	Latest(ctx context.Context, chatID string) (adom.Record, error)
	Recent(ctx context.Context, limit int) ([]adom.Record, error)
	Moments(ctx context.Context, q MomentQuery) ([]adom.Moment, error)
}
