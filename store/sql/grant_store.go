package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-oauth/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type GrantStore struct {
	db     *bun.DB
	tables tableSet
}

func (s *GrantStore) Create(ctx context.Context, grant core.Grant) (core.Grant, error) {
	if s == nil || s.db == nil {
		return core.Grant{}, fmt.Errorf("sqlstore: grant store is not configured")
	}
	if strings.TrimSpace(grant.Code) == "" {
		return core.Grant{}, fmt.Errorf("sqlstore: grant code is required")
	}
	if strings.TrimSpace(grant.ID) == "" {
		grant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = now
	}
	if grant.UpdatedAt.IsZero() {
		grant.UpdatedAt = now
	}
	record := newGrantRecord(grant)
	if err := insertInto(ctx, s.db, record, s.tables.grants); err != nil {
		return core.Grant{}, err
	}
	return record.toDomain(), nil
}

func (s *GrantStore) GetByCode(ctx context.Context, code string) (core.Grant, error) {
	if s == nil || s.db == nil {
		return core.Grant{}, fmt.Errorf("sqlstore: grant store is not configured")
	}
	record, err := findGrantByCode(ctx, s.db, s.tables, strings.TrimSpace(code))
	if err != nil {
		return core.Grant{}, err
	}
	return record.toDomain(), nil
}

func (s *GrantStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: grant store is not configured")
	}
	removed, err := deleteByIDs(ctx, s.db, s.tables.grants, []string{strings.TrimSpace(id)})
	if err != nil {
		return err
	}
	if removed == 0 {
		return core.ErrNotFound
	}
	return nil
}

func findGrantByCode(ctx context.Context, db bun.IDB, tables tableSet, code string) (*grantRecord, error) {
	if code == "" {
		return nil, core.ErrNotFound
	}
	record := &grantRecord{}
	err := selectFrom(db, record, tables.grants, grantAlias).
		Where("?.code = ?", bun.Ident(grantAlias), code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return record, nil
}
