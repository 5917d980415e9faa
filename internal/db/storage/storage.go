// Package storage declares the full persistence contract shared by the
// PostgreSQL, SQLite and in-memory backends.
package storage

import (
	"context"
	"database/sql"

	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/user"
)

// Storage is implemented by every backend. Methods taking a *sql.Tx run
// inside it when it is non-nil. Lookups that find nothing return
// models.ErrNotFound; rejected writes return models.ErrConstraintViolation.
type Storage interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int, error)

	GetUserByID(ctx context.Context, userID int, transaction *sql.Tx) (*user.User, error)

	GetUserByUsername(ctx context.Context, username string, transaction *sql.Tx) (*user.User, error)

	UpdateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error

	DeleteUser(ctx context.Context, userID int, transaction *sql.Tx) error

	AddFavorite(
		ctx context.Context,
		userID int,
		breedName string,
		transaction *sql.Tx,
	) (*models.Favorite, error)

	RemoveFavorite(
		ctx context.Context,
		userID int,
		breedName string,
		transaction *sql.Tx,
	) (*models.Favorite, error)

	GetFavorite(
		ctx context.Context,
		userID int,
		breedName string,
		transaction *sql.Tx,
	) (*models.Favorite, error)

	GetUserFavorites(ctx context.Context, userID int, transaction *sql.Tx) ([]string, error)

	BeginTransaction(ctx context.Context) (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error

	Ping(ctx context.Context) error

	Close() error
}
