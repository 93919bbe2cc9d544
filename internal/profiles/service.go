package profiles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/msmebazaar/platform/internal/shared"
)

// EngagementProvider resolves gamification standing for a user.
type EngagementProvider interface {
	Standing(ctx context.Context, userID string) (points int64, badge string, err error)
}

// RecommendationCounter reports how many recommendations are ready for a user.
type RecommendationCounter interface {
	CountFor(ctx context.Context, userID string) (int, error)
}

// GamificationEmitter forwards profile events into the gamification pipeline.
type GamificationEmitter interface {
	Award(ctx context.Context, userID, event string) error
}

// Service wraps profile business rules.
type Service struct {
	repo       Repository
	engagement EngagementProvider
	recs       RecommendationCounter
	gamify     GamificationEmitter
}

// NewService constructs a Service. The collaborators may be nil; the summary
// then degrades to profile-only data.
func NewService(repo Repository, engagement EngagementProvider, recs RecommendationCounter, gamify GamificationEmitter) *Service {
	return &Service{repo: repo, engagement: engagement, recs: recs, gamify: gamify}
}

// Get fetches a profile by user id.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.repo.Get(ctx, userID)
}

// Upsert stores the caller's profile. Completing a profile for the first time
// emits a gamification event.
func (s *Service) Upsert(ctx context.Context, profile *Profile) (*Profile, error) {
	previous, err := s.repo.Get(ctx, profile.UserID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	if s.gamify != nil && profile.Completed() && !previous.Completed() {
		_ = s.gamify.Award(ctx, profile.UserID.String(), "profile_completed")
	}
	return profile, nil
}

// Summary fans out to the profile store, gamification, and recommendations
// concurrently and assembles a dashboard summary.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	summary := &Summary{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		profile, err := s.repo.Get(gctx, userID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}
		summary.Profile = profile
		return nil
	})
	if s.engagement != nil {
		g.Go(func() error {
			points, badge, err := s.engagement.Standing(gctx, userID.String())
			if err != nil {
				return nil // engagement data is decoration, not a hard dependency
			}
			summary.Points = points
			summary.Badge = badge
			return nil
		})
	}
	if s.recs != nil {
		g.Go(func() error {
			count, err := s.recs.CountFor(gctx, userID.String())
			if err != nil {
				return nil
			}
			summary.Recommendations = count
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}
