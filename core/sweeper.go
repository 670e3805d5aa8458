package core

import (
	"context"
	"time"
)

// ClearExpiredResult counts rows removed by each sweep phase.
type ClearExpiredResult struct {
	RefreshTokens int
	AccessTokens  int
	IDTokens      int
	Grants        int
}

func (r ClearExpiredResult) Total() int {
	return r.RefreshTokens + r.AccessTokens + r.IDTokens + r.Grants
}

type sweepPhase struct {
	name  string
	count *int
	run   func(ctx context.Context, limit int) (int, error)
}

// ClearExpired deletes tokens past the refresh grace period. The grace period
// is validated before anything is removed, so a bad setting deletes nothing.
// Phases run in order: refresh tokens whose access token expired or that were
// revoked before the cutoff (with their access tokens), unreferenced expired
// access tokens, unreferenced expired ID tokens, then expired grants.
func (s *Service) ClearExpired(ctx context.Context) (result ClearExpiredResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		fields["refresh_tokens"] = result.RefreshTokens
		fields["access_tokens"] = result.AccessTokens
		fields["id_tokens"] = result.IDTokens
		fields["grants"] = result.Grants
		s.observeOperation(ctx, startedAt, "clear_expired", err, fields)
	}()

	grace, err := s.config.RefreshTokenGracePeriod()
	if err != nil {
		err = s.mapError(err)
		return ClearExpiredResult{}, err
	}
	now := s.currentTime()
	cutoff := now.Add(-grace)
	fields["cutoff"] = cutoff.Format(time.RFC3339Nano)

	store := s.expiredTokenStore
	phases := []sweepPhase{
		{name: "refresh_tokens", count: &result.RefreshTokens, run: func(ctx context.Context, limit int) (int, error) {
			return store.DeleteExpiredRefreshTokens(ctx, cutoff, limit)
		}},
		{name: "access_tokens", count: &result.AccessTokens, run: func(ctx context.Context, limit int) (int, error) {
			return store.DeleteExpiredAccessTokens(ctx, cutoff, limit)
		}},
		{name: "id_tokens", count: &result.IDTokens, run: func(ctx context.Context, limit int) (int, error) {
			return store.DeleteExpiredIDTokens(ctx, cutoff, limit)
		}},
		{name: "grants", count: &result.Grants, run: func(ctx context.Context, limit int) (int, error) {
			return store.DeleteExpiredGrants(ctx, now, limit)
		}},
	}
	for _, phase := range phases {
		removed, phaseErr := s.runSweepPhase(ctx, phase)
		*phase.count = removed
		if phaseErr != nil {
			fields["phase"] = phase.name
			err = s.mapError(phaseErr)
			return result, err
		}
	}
	return result, nil
}

func (s *Service) runSweepPhase(ctx context.Context, phase sweepPhase) (int, error) {
	limit := s.config.ClearExpired.BatchSize
	interval := s.config.BatchInterval()
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		removed, err := phase.run(ctx, limit)
		total += removed
		if err != nil {
			return total, err
		}
		if limit <= 0 || removed < limit {
			break
		}
		s.logInfo(ctx, "clear expired batch removed", map[string]any{
			"phase":   phase.name,
			"removed": removed,
		})
		if interval > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return total, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return total, nil
}
