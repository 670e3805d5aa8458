package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-oauth/core"
	"github.com/uptrace/bun"
)

type AccessTokenStore struct {
	db     *bun.DB
	tables tableSet
}

func (s *AccessTokenStore) Get(ctx context.Context, id string) (core.AccessToken, error) {
	if s == nil || s.db == nil {
		return core.AccessToken{}, fmt.Errorf("sqlstore: access token store is not configured")
	}
	record, err := findAccessToken(ctx, s.db, s.tables, "id", strings.TrimSpace(id))
	if err != nil {
		return core.AccessToken{}, err
	}
	return record.toDomain(), nil
}

func (s *AccessTokenStore) GetByToken(ctx context.Context, token string) (core.AccessToken, error) {
	if s == nil || s.db == nil {
		return core.AccessToken{}, fmt.Errorf("sqlstore: access token store is not configured")
	}
	record, err := findAccessToken(ctx, s.db, s.tables, "token", strings.TrimSpace(token))
	if err != nil {
		return core.AccessToken{}, err
	}
	return record.toDomain(), nil
}

func (s *AccessTokenStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: access token store is not configured")
	}
	id = strings.TrimSpace(id)
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw(
			"DELETE FROM ? WHERE access_token_id = ?",
			bun.Ident(s.tables.refreshTokens), id,
		).Exec(ctx); err != nil {
			return err
		}
		removed, err := deleteByIDs(ctx, tx, s.tables.accessTokens, []string{id})
		if err != nil {
			return err
		}
		if removed == 0 {
			return core.ErrNotFound
		}
		return nil
	})
}

func findAccessToken(ctx context.Context, db bun.IDB, tables tableSet, column string, value string) (*accessTokenRecord, error) {
	if value == "" {
		return nil, core.ErrNotFound
	}
	record := &accessTokenRecord{}
	err := selectFrom(db, record, tables.accessTokens, accessTokenAlias).
		Where("?.? = ?", bun.Ident(accessTokenAlias), bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return record, nil
}

type RefreshTokenStore struct {
	db     *bun.DB
	tables tableSet
}

func (s *RefreshTokenStore) GetByToken(ctx context.Context, token string) (core.RefreshToken, error) {
	if s == nil || s.db == nil {
		return core.RefreshToken{}, fmt.Errorf("sqlstore: refresh token store is not configured")
	}
	record, err := findRefreshToken(ctx, s.db, s.tables, "token", strings.TrimSpace(token))
	if err != nil {
		return core.RefreshToken{}, err
	}
	return record.toDomain(), nil
}

func (s *RefreshTokenStore) Revoke(ctx context.Context, id string, at time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: refresh token store is not configured")
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findRefreshToken(ctx, tx, s.tables, "id", strings.TrimSpace(id))
		if err != nil {
			return err
		}
		_, err = revokeRefreshTokens(ctx, tx, s.tables, []*refreshTokenRecord{record}, at)
		return err
	})
}

func (s *RefreshTokenStore) RevokeFamily(ctx context.Context, family string, at time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: refresh token store is not configured")
	}
	family = strings.TrimSpace(family)
	if family == "" {
		return 0, nil
	}
	revoked := 0
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		records := []*refreshTokenRecord{}
		if err := selectFrom(tx, &records, s.tables.refreshTokens, refreshTokenAlias).
			Where("?.token_family = ?", bun.Ident(refreshTokenAlias), family).
			Where("?.revoked IS NULL", bun.Ident(refreshTokenAlias)).
			Scan(ctx); err != nil {
			return err
		}
		count, err := revokeRefreshTokens(ctx, tx, s.tables, records, at)
		revoked = count
		return err
	})
	if err != nil {
		return 0, err
	}
	return revoked, nil
}

// revokeRefreshTokens stamps each live token as revoked, unlinks it and
// deletes the access token it was bound to. Tokens revoked concurrently are
// skipped.
func revokeRefreshTokens(
	ctx context.Context,
	tx bun.Tx,
	tables tableSet,
	records []*refreshTokenRecord,
	at time.Time,
) (int, error) {
	stamp := dbTime(at)
	revoked := 0
	accessIDs := []string{}
	for _, record := range records {
		if record == nil {
			continue
		}
		if record.AccessTokenID != nil {
			accessIDs = append(accessIDs, *record.AccessTokenID)
		}
		if record.Revoked != nil {
			if _, err := tx.NewRaw(
				"UPDATE ? SET access_token_id = NULL, updated_at = ? WHERE id = ?",
				bun.Ident(tables.refreshTokens), stamp, record.ID,
			).Exec(ctx); err != nil {
				return revoked, err
			}
			continue
		}
		res, err := tx.NewRaw(
			"UPDATE ? SET revoked = ?, access_token_id = NULL, updated_at = ? WHERE id = ? AND revoked IS NULL",
			bun.Ident(tables.refreshTokens), stamp, stamp, record.ID,
		).Exec(ctx)
		if err != nil {
			return revoked, err
		}
		affected, _ := res.RowsAffected()
		revoked += int(affected)
	}
	if _, err := deleteByIDs(ctx, tx, tables.accessTokens, accessIDs); err != nil {
		return revoked, err
	}
	return revoked, nil
}

func findRefreshToken(ctx context.Context, db bun.IDB, tables tableSet, column string, value string) (*refreshTokenRecord, error) {
	if value == "" {
		return nil, core.ErrNotFound
	}
	record := &refreshTokenRecord{}
	err := selectFrom(db, record, tables.refreshTokens, refreshTokenAlias).
		Where("?.? = ?", bun.Ident(refreshTokenAlias), bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return record, nil
}
