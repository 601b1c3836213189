package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/store"
)

//go:embed schema.sql
var schema string

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type DB struct{ Pool *pgxpool.Pool }

var _ store.DB = (*DB)(nil)

func (d *DB) Products() store.ProductRepo { return &ProductRepo{q: d.Pool} }
func (d *DB) Orders() store.OrderRepo     { return &OrderRepo{q: d.Pool} }
func (d *DB) Users() store.UserRepo       { return &UserRepo{q: d.Pool} }

type txRepos struct{ tx pgx.Tx }

func (t txRepos) Products() store.ProductRepo { return &ProductRepo{q: t.tx} }
func (t txRepos) Orders() store.OrderRepo     { return &OrderRepo{q: t.tx} }
func (t txRepos) Users() store.UserRepo       { return &UserRepo{q: t.tx} }

// WithTx runs fn in one READ COMMITTED transaction. Stock rows are taken
// with SELECT ... FOR UPDATE, which is what serializes competing orders.
// The deferred rollback covers errors and panics and is a no-op after commit.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Repos) error) error {
	tx, err := d.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, txRepos{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// notFound turns pgx.ErrNoRows into a typed error and leaves others wrapped.
func notFound(err error, kind apperr.Kind, msg, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.New(kind, msg)
	}
	return fmt.Errorf("%s: %w", op, err)
}
