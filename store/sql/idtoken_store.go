package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-oauth/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// IDTokenStore keeps ID tokens in the fixed oauth_id_tokens table through the
// generic repository.
type IDTokenStore struct {
	db     *bun.DB
	tables tableSet
	repo   repository.Repository[*idTokenRecord]
}

func (s *IDTokenStore) Get(ctx context.Context, id string) (core.IDToken, error) {
	return s.findOne(ctx, "id", strings.TrimSpace(id))
}

func (s *IDTokenStore) GetByToken(ctx context.Context, token string) (core.IDToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return core.IDToken{}, core.ErrNotFound
	}
	return s.findOne(ctx, "token_checksum", tokenChecksum(token))
}

func (s *IDTokenStore) findOne(ctx context.Context, column string, value string) (core.IDToken, error) {
	if s == nil || s.repo == nil {
		return core.IDToken{}, fmt.Errorf("sqlstore: id token store is not configured")
	}
	if value == "" {
		return core.IDToken{}, core.ErrNotFound
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy(column, "=", value),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.IDToken{}, err
	}
	if len(records) == 0 {
		return core.IDToken{}, core.ErrNotFound
	}
	return records[0].toDomain(), nil
}

// Delete removes the token and clears the link from its access token.
func (s *IDTokenStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: id token store is not configured")
	}
	id = strings.TrimSpace(id)
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw(
			"UPDATE ? SET id_token_id = NULL WHERE id_token_id = ?",
			bun.Ident(s.tables.accessTokens), id,
		).Exec(ctx); err != nil {
			return err
		}
		removed, err := deleteByIDs(ctx, tx, s.tables.idTokens, []string{id})
		if err != nil {
			return err
		}
		if removed == 0 {
			return core.ErrNotFound
		}
		return nil
	})
}

func (s *IDTokenStore) createTx(ctx context.Context, tx bun.Tx, token core.IDToken) (*idTokenRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: id token store is not configured")
	}
	return s.repo.CreateTx(ctx, tx, newIDTokenRecord(token))
}
