// Package mockstorage provides a testify-based mock implementation
// of the storage interface. It is used for unit testing the service
// layer and HTTP handlers by simulating storage behavior.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/user"
)

// StorageMock is a testify mock that implements storage.Storage.
type StorageMock struct {
	mock.Mock
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks closing the storage.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User, tx *sql.Tx) (int, error) {
	args := m.Called(ctx, usr, tx)
	return args.Int(0), args.Error(1)
}

func (m *StorageMock) GetUserByID(ctx context.Context, userID int, tx *sql.Tx) (*user.User, error) {
	args := m.Called(ctx, userID, tx)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) GetUserByUsername(ctx context.Context, username string, tx *sql.Tx) (*user.User, error) {
	args := m.Called(ctx, username, tx)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) UpdateUser(ctx context.Context, usr *user.User, tx *sql.Tx) error {
	args := m.Called(ctx, usr, tx)
	return args.Error(0)
}

func (m *StorageMock) DeleteUser(ctx context.Context, userID int, tx *sql.Tx) error {
	args := m.Called(ctx, userID, tx)
	return args.Error(0)
}

func (m *StorageMock) AddFavorite(
	ctx context.Context,
	userID int,
	breedName string,
	tx *sql.Tx,
) (*models.Favorite, error) {
	args := m.Called(ctx, userID, breedName, tx)
	fav, _ := args.Get(0).(*models.Favorite)
	return fav, args.Error(1)
}

func (m *StorageMock) RemoveFavorite(
	ctx context.Context,
	userID int,
	breedName string,
	tx *sql.Tx,
) (*models.Favorite, error) {
	args := m.Called(ctx, userID, breedName, tx)
	fav, _ := args.Get(0).(*models.Favorite)
	return fav, args.Error(1)
}

func (m *StorageMock) GetFavorite(
	ctx context.Context,
	userID int,
	breedName string,
	tx *sql.Tx,
) (*models.Favorite, error) {
	args := m.Called(ctx, userID, breedName, tx)
	fav, _ := args.Get(0).(*models.Favorite)
	return fav, args.Error(1)
}

func (m *StorageMock) GetUserFavorites(ctx context.Context, userID int, tx *sql.Tx) ([]string, error) {
	args := m.Called(ctx, userID, tx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}
