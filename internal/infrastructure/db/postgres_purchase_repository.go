package db

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/damon-houk/wex-purchase-conversion/internal/domain/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for goose
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// OpenPostgres creates a pgx pool and verifies connectivity
func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded goose migrations
func Migrate(ctx context.Context, dsn string) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// PostgresPurchaseRepository implements the purchase repository interface on PostgreSQL
type PostgresPurchaseRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPurchaseRepository creates a repository over an open pool
func NewPostgresPurchaseRepository(pool *pgxpool.Pool) *PostgresPurchaseRepository {
	return &PostgresPurchaseRepository{pool: pool}
}

// Save inserts the record; the id comes from the table's identity column
func (r *PostgresPurchaseRepository) Save(ctx context.Context, record *entity.PurchaseRecord) (*entity.PurchaseRecord, error) {
	const q = `
		insert into purchases (description, transaction_date, amount_usd)
		values ($1, $2, $3::numeric)
		returning id
	`

	stored := *record
	err := r.pool.QueryRow(ctx, q,
		stored.Description,
		stored.TransactionDate,
		stored.AmountUSD.StringFixed(entity.AmountScale),
	).Scan(&stored.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to store purchase: %w", err)
	}
	return &stored, nil
}

// FindByID retrieves a purchase by its identifier
func (r *PostgresPurchaseRepository) FindByID(ctx context.Context, id int64) (*entity.PurchaseRecord, error) {
	const q = `
		select id, description, transaction_date, amount_usd::text
		from purchases
		where id = $1
	`

	var (
		record entity.PurchaseRecord
		amount string
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(&record.ID, &record.Description, &record.TransactionDate, &amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", entity.ErrPurchaseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve purchase: %w", err)
	}

	record.AmountUSD, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored amount %q: %w", amount, err)
	}
	return &record, nil
}
