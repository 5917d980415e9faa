// Package postgresdb provides a PostgreSQL-based implementation of the storage interface
// for users and their favorite cat breeds. Schema migrations are embedded and applied
// on start.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"

	"github.com/patric-chuzhbe/catfinder/internal/db/sqlstore"
	"github.com/patric-chuzhbe/catfinder/internal/models"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresDB is a PostgreSQL-backed users and favorites storage.
type PostgresDB struct {
	*sqlstore.Store
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops every table of the public schema before migrating.
// It is meant for tests and local development.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	db, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		Store: sqlstore.New(db, sqlstore.Dialect{TranslateError: translateError}, connectionTimeout),
	}

	if err := result.Ping(ctx); err != nil {
		_ = db.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w",
				err,
			)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			_ = db.Close()
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `migrate()` calling: %w",
				err,
			)
	}

	return result, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	migrationsFS, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(database.DialectPostgres, db, migrationsFS)
	if err != nil {
		return err
	}

	_, err = provider.Up(ctx)

	return err
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	rows, err := db.DB().QueryContext(ctx, `SELECT tablename FROM pg_tables WHERE schemaname = 'public'`)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.DB().QueryContext()` calling: %w",
			err,
		)
	}

	var tables []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, table)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, table := range tables {
		if _, err := db.DB().ExecContext(ctx, `DROP TABLE IF EXISTS `+pq.QuoteIdentifier(table)+` CASCADE`); err != nil {
			return fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/resetDB(): error while dropping %s: %w",
				table,
				err,
			)
		}
	}

	return nil
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case uniqueViolation:
		return fmt.Errorf("%w: %s", models.ErrConstraintViolation, pgErr.ConstraintName)
	case foreignKeyViolation:
		// The referenced user is gone.
		return fmt.Errorf("%w: %s", models.ErrNotFound, pgErr.ConstraintName)
	}

	return err
}
