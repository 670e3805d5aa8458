// Package migrations exposes the embedded oauth schema per SQL dialect.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	oauth "github.com/goliatone/go-oauth"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	defaultSourceLabel = "go-oauth"
	migrationsDir      = "data/sql/migrations"
	upSuffix           = ".up.sql"
	downSuffix         = ".down.sql"
)

// FilesystemSpec is the migration tree for one dialect.
type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []FilesystemSpec
}

// RegisterFunc hands a dialect tree to the migration runner.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithDialectSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithValidationTargets restricts registration to the given dialects. Driver
// names such as "sqlite3" or "postgresql" are accepted.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		next := make([]string, 0, len(targets))
		for _, target := range targets {
			dialect, err := DialectFor(target)
			if err != nil {
				continue
			}
			next = appendUnique(next, dialect)
		}
		if len(next) > 0 {
			r.ValidationTargets = next
		}
	}
}

// DialectFor maps a database/sql driver name to a migration dialect.
func DialectFor(driver string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("migrations: unsupported dialect %q", driver)
	}
}

// Filesystems returns the Postgres tree and its sqlite subtree. Each tree
// must hold at least one migration and every up file needs a down file.
func Filesystems(sources ...fs.FS) ([]FilesystemSpec, error) {
	root := oauth.GetMigrationsFS()
	if len(sources) > 0 && sources[0] != nil {
		root = sources[0]
	}

	base, basePath, err := migrationsRoot(root)
	if err != nil {
		return nil, err
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	filesystems := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: basePath, FS: base},
		{Dialect: DialectSQLite, Path: pathJoin(basePath, "sqlite"), FS: sqliteFS},
	}
	for _, spec := range filesystems {
		if _, err := Versions(spec.FS); err != nil {
			return nil, fmt.Errorf("migrations: %s filesystem %q: %w", spec.Dialect, spec.Path, err)
		}
	}
	return filesystems, nil
}

// Versions lists the migration versions of fsys in apply order.
func Versions(fsys fs.FS) ([]string, error) {
	ups, err := fs.Glob(fsys, "*"+upSuffix)
	if err != nil {
		return nil, err
	}
	if len(ups) == 0 {
		return nil, fmt.Errorf("no *%s files", upSuffix)
	}
	downs, err := fs.Glob(fsys, "*"+downSuffix)
	if err != nil {
		return nil, err
	}
	hasDown := make(map[string]bool, len(downs))
	for _, name := range downs {
		hasDown[strings.TrimSuffix(name, downSuffix)] = true
	}

	versions := make([]string, 0, len(ups))
	for _, name := range ups {
		version := strings.TrimSuffix(name, upSuffix)
		if !hasDown[version] {
			return nil, fmt.Errorf("migration %s has no %s file", version, downSuffix)
		}
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions, nil
}

// Register calls registerFn for each targeted dialect. A target without a
// migration tree is an error.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       defaultSourceLabel,
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}
	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}

	byDialect := make(map[string]FilesystemSpec, len(reg.Filesystems))
	for _, spec := range reg.Filesystems {
		byDialect[spec.Dialect] = spec
	}
	for _, dialect := range reg.ValidationTargets {
		spec, ok := byDialect[dialect]
		if !ok || spec.FS == nil {
			return reg, fmt.Errorf("migrations: no filesystem for %s", dialect)
		}
		if err := registerFn(ctx, dialect, reg.SourceLabel, spec.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", dialect, spec.Path, err)
		}
	}
	return reg, nil
}

func migrationsRoot(root fs.FS) (fs.FS, string, error) {
	sub, err := fs.Sub(root, migrationsDir)
	if err == nil {
		if _, statErr := fs.Stat(sub, "."); statErr == nil {
			return sub, migrationsDir, nil
		}
	}

	entries, readErr := fs.ReadDir(root, ".")
	if readErr == nil {
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
				return root, ".", nil
			}
		}
	}
	return nil, "", fmt.Errorf("migrations: %s not found", migrationsDir)
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}

func pathJoin(base string, suffix string) string {
	if base == "." {
		return suffix
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(suffix, "/")
}
