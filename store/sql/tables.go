package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goliatone/go-oauth/core"
	"github.com/uptrace/bun"
)

// tableSet holds the table names resolved from the model registry.
type tableSet struct {
	applications  string
	grants        string
	accessTokens  string
	refreshTokens string
	idTokens      string
}

func resolveTables(registry *core.ModelRegistry) (tableSet, error) {
	if registry == nil {
		registry = core.NewModelRegistry(core.ModelsConfig{})
	}
	resolved, err := registry.ResolveAll()
	if err != nil {
		return tableSet{}, err
	}
	tables := tableSet{
		applications:  resolved[core.ModelApplication].Table,
		grants:        resolved[core.ModelGrant].Table,
		accessTokens:  resolved[core.ModelAccessToken].Table,
		refreshTokens: resolved[core.ModelRefreshToken].Table,
		idTokens:      resolved[core.ModelIDToken].Table,
	}
	for kind, table := range map[core.ModelKind]string{
		core.ModelApplication:  tables.applications,
		core.ModelGrant:        tables.grants,
		core.ModelAccessToken:  tables.accessTokens,
		core.ModelRefreshToken: tables.refreshTokens,
		core.ModelIDToken:      tables.idTokens,
	} {
		if table == "" {
			return tableSet{}, core.NewConfigurationError(fmt.Sprintf("sqlstore: no table bound for model %s", kind))
		}
	}
	return tables, nil
}

// selectFrom aliases table so column lists generated from the record's
// struct tags keep resolving when the table is overridden.
func selectFrom(db bun.IDB, model any, table string, alias string) *bun.SelectQuery {
	return db.NewSelect().Model(model).ModelTableExpr("? AS ?", bun.Ident(table), bun.Ident(alias))
}

func insertInto(ctx context.Context, db bun.IDB, model any, table string) error {
	_, err := db.NewInsert().Model(model).ModelTableExpr("?", bun.Ident(table)).Exec(ctx)
	return err
}

func deleteByIDs(ctx context.Context, db bun.IDB, table string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := db.NewRaw("DELETE FROM ? WHERE id IN (?)", bun.Ident(table), bun.In(ids)).Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}
