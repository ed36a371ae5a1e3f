package http

import (
	"context"

	"dumpsift/internal/services"
	"dumpsift/pkg/contracts/domain"
)

// SplitServiceInterface defines the split operations the handler depends on.
type SplitServiceInterface interface {
	Split(ctx context.Context, req services.SplitRequest) (*domain.RunResult, error)
	Recognizers(ctx context.Context) []domain.RecognizerInfo
}
