package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-oauth/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenStore persists token sets and runs the single-use exchanges in
// transactions.
type TokenStore struct {
	db       *bun.DB
	tables   tableSet
	idTokens *IDTokenStore
}

func (s *TokenStore) IssueTokens(ctx context.Context, in core.IssueTokensInput) (core.IssuedTokens, error) {
	if s == nil || s.db == nil {
		return core.IssuedTokens{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	var issued core.IssuedTokens
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var insertErr error
		issued, insertErr = s.insertTokens(ctx, tx, in)
		return insertErr
	})
	if err != nil {
		return core.IssuedTokens{}, err
	}
	return issued, nil
}

// ExchangeGrant deletes the grant in the same transaction that stores the
// tokens. A concurrent exchange that loses the delete gets ErrNotFound.
func (s *TokenStore) ExchangeGrant(ctx context.Context, code string, build core.GrantExchangeFunc) (core.IssuedTokens, error) {
	if s == nil || s.db == nil {
		return core.IssuedTokens{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	if build == nil {
		return core.IssuedTokens{}, fmt.Errorf("sqlstore: grant exchange builder is required")
	}
	var issued core.IssuedTokens
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findGrantByCode(ctx, tx, s.tables, strings.TrimSpace(code))
		if err != nil {
			return err
		}
		in, err := build(record.toDomain())
		if err != nil {
			return err
		}
		removed, err := deleteByIDs(ctx, tx, s.tables.grants, []string{record.ID})
		if err != nil {
			return err
		}
		if removed == 0 {
			return core.ErrNotFound
		}
		issued, err = s.insertTokens(ctx, tx, in)
		return err
	})
	if err != nil {
		return core.IssuedTokens{}, err
	}
	return issued, nil
}

// RotateRefreshToken revokes the presented token only while it is still
// live, so exactly one concurrent rotation wins.
func (s *TokenStore) RotateRefreshToken(
	ctx context.Context,
	token string,
	at time.Time,
	build core.RefreshRotationFunc,
) (core.IssuedTokens, error) {
	if s == nil || s.db == nil {
		return core.IssuedTokens{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	if build == nil {
		return core.IssuedTokens{}, fmt.Errorf("sqlstore: refresh rotation builder is required")
	}
	var issued core.IssuedTokens
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		refresh, err := findRefreshToken(ctx, tx, s.tables, "token", strings.TrimSpace(token))
		if err != nil {
			return err
		}
		if refresh.Revoked != nil {
			if refresh.Rotated {
				return core.ErrRefreshTokenRotated
			}
			return core.ErrRefreshTokenRevoked
		}
		var access *core.AccessToken
		if refresh.AccessTokenID != nil {
			record, findErr := findAccessToken(ctx, tx, s.tables, "id", *refresh.AccessTokenID)
			switch {
			case findErr == nil:
				current := record.toDomain()
				access = &current
			case !errors.Is(findErr, core.ErrNotFound):
				return findErr
			}
		}
		in, err := build(refresh.toDomain(), access)
		if err != nil {
			return err
		}
		revoked, err := revokeRefreshTokens(ctx, tx, s.tables, []*refreshTokenRecord{refresh}, at)
		if err != nil {
			return err
		}
		if revoked == 0 {
			return core.ErrRefreshTokenRotated
		}
		if _, err := tx.NewRaw(
			"UPDATE ? SET rotated = ? WHERE id = ?",
			bun.Ident(s.tables.refreshTokens), true, refresh.ID,
		).Exec(ctx); err != nil {
			return err
		}
		issued, err = s.insertTokens(ctx, tx, in)
		return err
	})
	if err != nil {
		return core.IssuedTokens{}, err
	}
	return issued, nil
}

// insertTokens writes the ID token first, then the access token that points
// at it, then the refresh token bound to the access token.
func (s *TokenStore) insertTokens(ctx context.Context, tx bun.Tx, in core.IssueTokensInput) (core.IssuedTokens, error) {
	if strings.TrimSpace(in.AccessToken.Token) == "" {
		return core.IssuedTokens{}, fmt.Errorf("sqlstore: access token value is required")
	}
	now := time.Now().UTC()
	out := core.IssuedTokens{}
	access := in.AccessToken

	if in.IDToken != nil {
		idToken := *in.IDToken
		if idToken.ID == "" {
			idToken.ID = uuid.NewString()
		}
		stampTimes(&idToken.CreatedAt, &idToken.UpdatedAt, now)
		created, err := s.idTokens.createTx(ctx, tx, idToken)
		if err != nil {
			return core.IssuedTokens{}, err
		}
		stored := created.toDomain()
		out.IDToken = &stored
		access.IDTokenID = copyString(&stored.ID)
	}

	if access.ID == "" {
		access.ID = uuid.NewString()
	}
	stampTimes(&access.CreatedAt, &access.UpdatedAt, now)
	accessRecord := newAccessTokenRecord(access)
	if err := insertInto(ctx, tx, accessRecord, s.tables.accessTokens); err != nil {
		return core.IssuedTokens{}, err
	}
	out.AccessToken = accessRecord.toDomain()

	if in.RefreshToken != nil {
		refresh := *in.RefreshToken
		if refresh.ID == "" {
			refresh.ID = uuid.NewString()
		}
		if refresh.TokenFamily == "" {
			refresh.TokenFamily = uuid.NewString()
		}
		refresh.AccessTokenID = copyString(&access.ID)
		stampTimes(&refresh.CreatedAt, &refresh.UpdatedAt, now)
		refreshRecord := newRefreshTokenRecord(refresh)
		if err := insertInto(ctx, tx, refreshRecord, s.tables.refreshTokens); err != nil {
			return core.IssuedTokens{}, err
		}
		stored := refreshRecord.toDomain()
		out.RefreshToken = &stored
	}
	return out, nil
}

func stampTimes(createdAt *time.Time, updatedAt *time.Time, now time.Time) {
	if createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt.IsZero() {
		*updatedAt = now
	}
}
