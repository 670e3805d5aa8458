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

type ApplicationStore struct {
	db     *bun.DB
	tables tableSet
}

func (s *ApplicationStore) Create(ctx context.Context, app core.Application) (core.Application, error) {
	if s == nil || s.db == nil {
		return core.Application{}, fmt.Errorf("sqlstore: application store is not configured")
	}
	if strings.TrimSpace(app.ClientID) == "" {
		return core.Application{}, fmt.Errorf("sqlstore: client id is required")
	}
	if strings.TrimSpace(app.ID) == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = now

	record := newApplicationRecord(app)
	if err := insertInto(ctx, s.db, record, s.tables.applications); err != nil {
		return core.Application{}, err
	}
	return record.toDomain(), nil
}

func (s *ApplicationStore) Get(ctx context.Context, id string) (core.Application, error) {
	return s.getBy(ctx, "id", strings.TrimSpace(id))
}

func (s *ApplicationStore) GetByClientID(ctx context.Context, clientID string) (core.Application, error) {
	return s.getBy(ctx, "client_id", strings.TrimSpace(clientID))
}

func (s *ApplicationStore) getBy(ctx context.Context, column string, value string) (core.Application, error) {
	if s == nil || s.db == nil {
		return core.Application{}, fmt.Errorf("sqlstore: application store is not configured")
	}
	if value == "" {
		return core.Application{}, core.ErrNotFound
	}
	record := &applicationRecord{}
	err := selectFrom(s.db, record, s.tables.applications, applicationAlias).
		Where("?.? = ?", bun.Ident(applicationAlias), bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return core.Application{}, mapNoRows(err)
	}
	return record.toDomain(), nil
}

func (s *ApplicationStore) Update(ctx context.Context, app core.Application) (core.Application, error) {
	if s == nil || s.db == nil {
		return core.Application{}, fmt.Errorf("sqlstore: application store is not configured")
	}
	current, err := s.Get(ctx, app.ID)
	if err != nil {
		return core.Application{}, err
	}
	app.CreatedAt = current.CreatedAt
	app.UpdatedAt = time.Now().UTC()

	record := newApplicationRecord(app)
	res, err := s.db.NewUpdate().
		Model(record).
		ModelTableExpr("?", bun.Ident(s.tables.applications)).
		ExcludeColumn("id", "created_at").
		Where("id = ?", record.ID).
		Exec(ctx)
	if err != nil {
		return core.Application{}, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.Application{}, core.ErrNotFound
	}
	return record.toDomain(), nil
}

// Delete removes the application and everything issued to it in one
// transaction, children first so the circular token links never dangle.
func (s *ApplicationStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: application store is not configured")
	}
	id = strings.TrimSpace(id)
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, table := range []string{
			s.tables.refreshTokens,
			s.tables.accessTokens,
			s.tables.idTokens,
			s.tables.grants,
		} {
			if _, err := tx.NewRaw("DELETE FROM ? WHERE application_id = ?", bun.Ident(table), id).Exec(ctx); err != nil {
				return err
			}
		}
		res, err := tx.NewRaw("DELETE FROM ? WHERE id = ?", bun.Ident(s.tables.applications), id).Exec(ctx)
		if err != nil {
			return err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return core.ErrNotFound
		}
		return nil
	})
}
