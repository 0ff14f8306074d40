// Package store implements the persistent-store side of the pipeline against
// PostgreSQL: the four upsert-engine operations, table setup from entity
// descriptors, and the maintenance helpers the CLI needs.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/entity"
)

// Postgres owns the connection pool for one pipeline run. The orchestrator
// opens and closes it; other components only borrow it.
type Postgres struct {
	pool *pgxpool.Pool
	qb   squirrel.StatementBuilderType
	log  *logrus.Logger
}

// Connect opens a pgx pool against url and verifies it with a ping.
func Connect(ctx context.Context, url string, log *logrus.Logger) (*Postgres, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection URL: %w", err)
	}

	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec
	cfg.MaxConns = 4
	cfg.MinConns = 0
	cfg.MaxConnLifetime = 15 * time.Minute
	cfg.MaxConnIdleTime = 3 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Postgres{
		pool: pool,
		qb:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		log:  log,
	}, nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Pool exposes the underlying pool for read-only collaborators (analytics).
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// Exists reports whether a row with the given conflict-key value is present.
func (p *Postgres) Exists(ctx context.Context, table, keyColumn string, key any) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %q WHERE %q = $1)`, table, keyColumn)
	if err := p.pool.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("existence check on %s: %w", table, err)
	}
	return exists, nil
}

// Update overwrites the non-key columns of the row matching the key.
func (p *Postgres) Update(ctx context.Context, table, keyColumn string, key any, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	query, args, err := p.qb.
		Update(fmt.Sprintf("%q", table)).
		SetMap(values).
		Where(squirrel.Eq{keyColumn: key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update for %s: %w", table, err)
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

// Insert adds a full row.
func (p *Postgres) Insert(ctx context.Context, table string, values map[string]any) error {
	cols := make([]string, 0, len(values))
	vals := make([]any, 0, len(values))
	for c, v := range values {
		cols = append(cols, c)
		vals = append(vals, v)
	}
	query, args, err := p.qb.
		Insert(fmt.Sprintf("%q", table)).
		Columns(cols...).
		Values(vals...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert for %s: %w", table, err)
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// Keys lists the distinct committed conflict-key values of a table. The
// orchestrator uses this to satisfy referential checks for dependent
// entities.
func (p *Postgres) Keys(ctx context.Context, table, keyColumn string) (map[string]struct{}, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %q::text FROM %q`, keyColumn, table)
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list keys of %s: %w", table, err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key of %s: %w", table, err)
		}
		keys[k] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys of %s: %w", table, err)
	}
	return keys, nil
}

// Setup creates the target tables for the given descriptors if they do not
// exist, parents first so foreign keys resolve.
func (p *Postgres) Setup(ctx context.Context, descs []*entity.Descriptor) error {
	tables := make(map[string]string, len(descs))
	for _, d := range descs {
		tables[d.Name] = d.TableName
	}
	for _, d := range descs {
		ddl := CreateTableSQL(d, tables[d.Parent])
		if _, err := p.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", d.TableName, err)
		}
		p.log.WithField("table", d.TableName).Info("table ready")
	}
	return nil
}

// Truncate empties the target tables, children before parents so foreign
// keys never dangle mid-way.
func (p *Postgres) Truncate(ctx context.Context, descs []*entity.Descriptor) error {
	for i := len(descs) - 1; i >= 0; i-- {
		query := fmt.Sprintf(`TRUNCATE TABLE %q CASCADE`, descs[i].TableName)
		if _, err := p.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("truncate %s: %w", descs[i].TableName, err)
		}
	}
	return nil
}

// Count returns the number of rows in a table.
func (p *Postgres) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %q`, table)
	if err := p.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
