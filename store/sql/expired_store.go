package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// DeleteExpiredRefreshTokens removes refresh tokens revoked before cutoff or
// bound to an access token that expired before cutoff, together with those
// access tokens.
func (s *TokenStore) DeleteExpiredRefreshTokens(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: token store is not configured")
	}
	cutoff = dbTime(cutoff)
	removed := 0
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		type candidate struct {
			ID            string  `bun:"id"`
			AccessTokenID *string `bun:"access_token_id"`
		}
		candidates := []candidate{}
		query := "SELECT r.id, r.access_token_id FROM ? AS r " +
			"WHERE (r.revoked IS NOT NULL AND r.revoked <= ?) " +
			"OR r.access_token_id IN (SELECT a.id FROM ? AS a WHERE a.expires IS NULL OR a.expires <= ?) " +
			"ORDER BY r.id"
		args := []any{bun.Ident(s.tables.refreshTokens), cutoff, bun.Ident(s.tables.accessTokens), cutoff}
		query, args = withLimit(query, args, limit)
		if err := tx.NewRaw(query, args...).Scan(ctx, &candidates); err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}
		refreshIDs := make([]string, 0, len(candidates))
		accessIDs := []string{}
		for _, item := range candidates {
			refreshIDs = append(refreshIDs, item.ID)
			if item.AccessTokenID != nil {
				accessIDs = append(accessIDs, *item.AccessTokenID)
			}
		}
		count, err := deleteByIDs(ctx, tx, s.tables.refreshTokens, refreshIDs)
		if err != nil {
			return err
		}
		if _, err := deleteByIDs(ctx, tx, s.tables.accessTokens, accessIDs); err != nil {
			return err
		}
		removed = count
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteExpiredAccessTokens removes expired access tokens no refresh token
// points at.
func (s *TokenStore) DeleteExpiredAccessTokens(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: token store is not configured")
	}
	query := "SELECT a.id FROM ? AS a " +
		"WHERE (a.expires IS NULL OR a.expires <= ?) " +
		"AND NOT EXISTS (SELECT 1 FROM ? AS r WHERE r.access_token_id = a.id) " +
		"ORDER BY a.id"
	args := []any{bun.Ident(s.tables.accessTokens), dbTime(cutoff), bun.Ident(s.tables.refreshTokens)}
	return s.deleteSelected(ctx, s.tables.accessTokens, query, args, limit)
}

// DeleteExpiredIDTokens removes expired ID tokens no access token points at.
func (s *TokenStore) DeleteExpiredIDTokens(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: token store is not configured")
	}
	query := "SELECT i.id FROM ? AS i " +
		"WHERE (i.expires IS NULL OR i.expires <= ?) " +
		"AND NOT EXISTS (SELECT 1 FROM ? AS a WHERE a.id_token_id = i.id) " +
		"ORDER BY i.id"
	args := []any{bun.Ident(s.tables.idTokens), dbTime(cutoff), bun.Ident(s.tables.accessTokens)}
	return s.deleteSelected(ctx, s.tables.idTokens, query, args, limit)
}

func (s *TokenStore) DeleteExpiredGrants(ctx context.Context, now time.Time, limit int) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: token store is not configured")
	}
	query := "SELECT g.id FROM ? AS g WHERE g.expires IS NULL OR g.expires <= ? ORDER BY g.id"
	args := []any{bun.Ident(s.tables.grants), dbTime(now)}
	return s.deleteSelected(ctx, s.tables.grants, query, args, limit)
}

func (s *TokenStore) deleteSelected(ctx context.Context, table string, query string, args []any, limit int) (int, error) {
	query, args = withLimit(query, args, limit)
	removed := 0
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ids := []string{}
		if err := tx.NewRaw(query, args...).Scan(ctx, &ids); err != nil {
			return err
		}
		count, err := deleteByIDs(ctx, tx, table, ids)
		removed = count
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func withLimit(query string, args []any, limit int) (string, []any) {
	if limit <= 0 {
		return query, args
	}
	return query + " LIMIT ?", append(args, limit)
}
