// audit/service.go
package audit

import (
	"context"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/boundary/logging"
)

type Service interface {
	Record(ctx context.Context, artifact Artifact) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Record persists the artifact. A failed write is logged but never
// fails the caller: recording must not change the authorization
// outcome.
func (s *service) Record(ctx context.Context, artifact Artifact) error {
	if err := s.repo.Record(ctx, artifact); err != nil {
		logger.Error("Failed to record evaluation artifact",
			zap.String("requestID", artifact.RequestID),
			zap.Error(err))
		return err
	}
	return nil
}
