package gamification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/msmebazaar/platform/internal/shared"
)

const leaderboardKey = "gamification:leaderboard"

// Service awards points and maintains the leaderboard. The Redis sorted set
// holds the live standings; the Postgres event log is the source of truth.
type Service struct {
	repo  Repository
	redis *redis.Client
}

// NewService constructs a Service.
func NewService(repo Repository, client *redis.Client) *Service {
	return &Service{repo: repo, redis: client}
}

// Award records an event for a user and credits its points. Unknown events
// are rejected so typos never mint points.
func (s *Service) Award(ctx context.Context, userID, event string) error {
	points := PointsFor(event)
	if points == 0 {
		return fmt.Errorf("%w: unknown event %q", shared.ErrValidation, event)
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("%w: user id must be a UUID", shared.ErrValidation)
	}

	if err := s.repo.Insert(ctx, &Event{
		ID:     uuid.New(),
		UserID: id,
		Event:  event,
		Points: points,
	}); err != nil {
		return err
	}
	if s.redis != nil {
		return s.redis.ZIncrBy(ctx, leaderboardKey, float64(points), userID).Err()
	}
	return nil
}

// Standing returns a user's points and badge. Satisfies the profile module's
// engagement hook.
func (s *Service) Standing(ctx context.Context, userID string) (int64, string, error) {
	standing, err := s.StandingFor(ctx, userID)
	if err != nil {
		return 0, BadgeNone, err
	}
	return standing.Points, standing.Badge, nil
}

// StandingFor returns the full leaderboard entry, including rank. Users with
// no points rank zero.
func (s *Service) StandingFor(ctx context.Context, userID string) (Standing, error) {
	standing := Standing{UserID: userID}

	if s.redis != nil {
		score, err := s.redis.ZScore(ctx, leaderboardKey, userID).Result()
		switch {
		case err == redis.Nil:
			// Fall through to the event log below.
		case err != nil:
			return standing, err
		default:
			rank, err := s.redis.ZRevRank(ctx, leaderboardKey, userID).Result()
			if err != nil && err != redis.Nil {
				return standing, err
			}
			standing.Points = int64(score)
			standing.Badge = BadgeFor(standing.Points)
			standing.Rank = rank + 1
			return standing, nil
		}
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return standing, fmt.Errorf("%w: user id must be a UUID", shared.ErrValidation)
	}
	points, err := s.repo.TotalPoints(ctx, id)
	if err != nil {
		return standing, err
	}
	standing.Points = points
	standing.Badge = BadgeFor(points)
	if s.redis != nil && points > 0 {
		// Reseed the sorted set so the next lookup is served from Redis.
		if err := s.redis.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(points), Member: userID}).Err(); err == nil {
			if rank, err := s.redis.ZRevRank(ctx, leaderboardKey, userID).Result(); err == nil {
				standing.Rank = rank + 1
			}
		}
	}
	return standing, nil
}

// Leaderboard returns the top standings, best first.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if s.redis == nil {
		return nil, nil
	}
	entries, err := s.redis.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	standings := make([]Standing, 0, len(entries))
	for i, entry := range entries {
		member, _ := entry.Member.(string)
		points := int64(entry.Score)
		standings = append(standings, Standing{
			UserID: member,
			Points: points,
			Badge:  BadgeFor(points),
			Rank:   int64(i) + 1,
		})
	}
	return standings, nil
}

// History lists a user's awarded events, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Event, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user id must be a UUID", shared.ErrValidation)
	}
	return s.repo.ListForUser(ctx, id, limit)
}
