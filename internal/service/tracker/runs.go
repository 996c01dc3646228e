package tracker

import (
	"context"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/validator"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

type RunServiceImpl struct {
	repo tracker.RunRepository
}

// NewRunService serves run history. A nil repo means history is disabled.
func NewRunService(repo tracker.RunRepository) tracker.RunService {
	return &RunServiceImpl{repo: repo}
}

func (s *RunServiceImpl) ListRuns(ctx context.Context, limit int) (tracker.ListRunsResponse, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	if limit > maxRunLimit {
		limit = maxRunLimit
	}
	if s.repo == nil {
		return tracker.ListRunsResponse{Runs: []tracker.CheckRun{}, Limit: limit}, nil
	}

	runs, err := s.repo.List(ctx, limit)
	if err != nil {
		return tracker.ListRunsResponse{}, err
	}
	if runs == nil {
		runs = []tracker.CheckRun{}
	}
	return tracker.ListRunsResponse{Runs: runs, Limit: limit}, nil
}

func (s *RunServiceImpl) GetRun(ctx context.Context, id string) (tracker.CheckRun, error) {
	if s.repo == nil || !validator.IsValidUUID(id) {
		return tracker.CheckRun{}, tracker.ErrRunNotFound
	}
	return s.repo.GetByID(ctx, id)
}
