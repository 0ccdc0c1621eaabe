// Package postgres implements extractor.CatalogQuerier for PostgreSQL
// targets, reusing the pgx stack's database/sql adapter so target
// extraction and Central Repository storage share one driver stack.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sentineldb/sentinel/internal/types"
)

// DriverName is the database/sql driver name registered by pgx/v5/stdlib.
const DriverName = "pgx"

// Querier implements extractor.CatalogQuerier against pg_proc / pg_views.
type Querier struct{}

// Dialect implements extractor.CatalogQuerier.
func (Querier) Dialect() string { return "postgres" }

// ServerInfo implements extractor.CatalogQuerier.
func (Querier) ServerInfo(ctx context.Context, db *sql.DB) (string, error) {
	var serverVersion, dbName string
	err := db.QueryRowContext(ctx, `SELECT current_setting('server_version'), current_database()`).Scan(&serverVersion, &dbName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgres %s / %s", serverVersion, dbName), nil
}

// catalogQuery returns routines (procedures and functions, split by kind
// via pg_proc.prokind) and views, excluding system schemas. Postgres keeps
// no modification timestamp in its catalogs, so last_modified is the
// extraction instant.
const catalogQuery = `
SELECT n.nspname AS schema_name, p.proname AS object_name,
       CASE p.prokind
           WHEN 'p' THEN 'P'
           WHEN 'f' THEN (CASE WHEN p.proretset THEN 'TF' ELSE 'FN' END)
           ELSE 'FN'
       END AS kind,
       COALESCE(pg_get_functiondef(p.oid), '') AS definition,
       now() AS last_modified
FROM pg_proc p
JOIN pg_namespace n ON n.oid = p.pronamespace
WHERE n.nspname NOT IN ('pg_catalog', 'information_schema')
  AND p.prokind IN ('f', 'p')
UNION ALL
SELECT schemaname, viewname, 'V', COALESCE(definition, ''), now()
FROM pg_views
WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
`

// AllObjects implements extractor.CatalogQuerier.
func (Querier) AllObjects(ctx context.Context, db *sql.DB) ([]types.ProgrammableObject, error) {
	rows, err := db.QueryContext(ctx, catalogQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []types.ProgrammableObject
	for rows.Next() {
		var obj types.ProgrammableObject
		if err := rows.Scan(&obj.Schema, &obj.Name, &obj.Kind, &obj.Definition, &obj.LastModified); err != nil {
			return nil, err
		}
		result = append(result, obj)
	}
	return result, rows.Err()
}

// SingleObject implements extractor.CatalogQuerier.
func (q Querier) SingleObject(ctx context.Context, db *sql.DB, schema, name string) (*types.ProgrammableObject, error) {
	objects, err := q.AllObjects(ctx, db)
	if err != nil {
		return nil, err
	}
	for _, obj := range objects {
		if obj.Schema == schema && obj.Name == name {
			o := obj
			return &o, nil
		}
	}
	return nil, nil
}
