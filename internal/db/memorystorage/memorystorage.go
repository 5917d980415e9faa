// Package memorystorage keeps users and favorites in process memory. Data is lost
// on restart. Transactions are not supported: BeginTransaction returns a nil
// *sql.Tx and every write applies immediately.
package memorystorage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/user"
)

type favoriteKey struct {
	userID    int
	breedName string
}

// CacheStruct is the in-memory state.
type CacheStruct struct {
	Users      map[int]*user.User
	NextUserID int
	Favorites  map[favoriteKey]struct{}
}

type MemoryStorage struct {
	mu    sync.RWMutex
	Cache CacheStruct
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		Cache: CacheStruct{
			Users:      map[int]*user.User{},
			NextUserID: 1,
			Favorites:  map[favoriteKey]struct{}{},
		},
	}, nil
}

func (theStorage *MemoryStorage) uniquenessViolation(usr *user.User) error {
	for id, existing := range theStorage.Cache.Users {
		if id == usr.ID {
			continue
		}
		if existing.Username == usr.Username {
			return fmt.Errorf("%w: username %q is taken", models.ErrConstraintViolation, usr.Username)
		}
		if existing.Email == usr.Email {
			return fmt.Errorf("%w: email %q is taken", models.ErrConstraintViolation, usr.Email)
		}
	}

	return nil
}

func (theStorage *MemoryStorage) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	usr.ID = 0
	if err := theStorage.uniquenessViolation(usr); err != nil {
		return 0, err
	}

	usr.ID = theStorage.Cache.NextUserID
	theStorage.Cache.NextUserID++

	stored := *usr
	stored.ImageURL = user.ImageURLOrDefault(stored.ImageURL)
	theStorage.Cache.Users[stored.ID] = &stored

	return usr.ID, nil
}

func (theStorage *MemoryStorage) GetUserByID(ctx context.Context, userID int, transaction *sql.Tx) (*user.User, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	usr, ok := theStorage.Cache.Users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	result := *usr

	return &result, nil
}

func (theStorage *MemoryStorage) GetUserByUsername(
	ctx context.Context,
	username string,
	transaction *sql.Tx,
) (*user.User, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	for _, usr := range theStorage.Cache.Users {
		if usr.Username == username {
			result := *usr
			return &result, nil
		}
	}

	return nil, models.ErrNotFound
}

func (theStorage *MemoryStorage) UpdateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	existing, ok := theStorage.Cache.Users[usr.ID]
	if !ok {
		return models.ErrNotFound
	}
	if err := theStorage.uniquenessViolation(usr); err != nil {
		return err
	}

	existing.Username = usr.Username
	existing.Email = usr.Email
	existing.ImageURL = user.ImageURLOrDefault(usr.ImageURL)

	return nil
}

func (theStorage *MemoryStorage) DeleteUser(ctx context.Context, userID int, transaction *sql.Tx) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if _, ok := theStorage.Cache.Users[userID]; !ok {
		return models.ErrNotFound
	}
	delete(theStorage.Cache.Users, userID)

	for key := range theStorage.Cache.Favorites {
		if key.userID == userID {
			delete(theStorage.Cache.Favorites, key)
		}
	}

	return nil
}

func (theStorage *MemoryStorage) AddFavorite(
	ctx context.Context,
	userID int,
	breedName string,
	transaction *sql.Tx,
) (*models.Favorite, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if _, ok := theStorage.Cache.Users[userID]; !ok {
		return nil, fmt.Errorf("%w: user %d does not exist", models.ErrNotFound, userID)
	}

	key := favoriteKey{userID: userID, breedName: breedName}
	if _, ok := theStorage.Cache.Favorites[key]; ok {
		return nil, fmt.Errorf("%w: favorite already exists", models.ErrConstraintViolation)
	}
	theStorage.Cache.Favorites[key] = struct{}{}

	return &models.Favorite{UserID: userID, BreedName: breedName}, nil
}

func (theStorage *MemoryStorage) RemoveFavorite(
	ctx context.Context,
	userID int,
	breedName string,
	transaction *sql.Tx,
) (*models.Favorite, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	key := favoriteKey{userID: userID, breedName: breedName}
	if _, ok := theStorage.Cache.Favorites[key]; !ok {
		return nil, models.ErrNotFound
	}
	delete(theStorage.Cache.Favorites, key)

	return &models.Favorite{UserID: userID, BreedName: breedName}, nil
}

func (theStorage *MemoryStorage) GetFavorite(
	ctx context.Context,
	userID int,
	breedName string,
	transaction *sql.Tx,
) (*models.Favorite, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	if _, ok := theStorage.Cache.Favorites[favoriteKey{userID: userID, breedName: breedName}]; !ok {
		return nil, models.ErrNotFound
	}

	return &models.Favorite{UserID: userID, BreedName: breedName}, nil
}

func (theStorage *MemoryStorage) GetUserFavorites(
	ctx context.Context,
	userID int,
	transaction *sql.Tx,
) ([]string, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	result := []string{}
	for key := range theStorage.Cache.Favorites {
		if key.userID == userID {
			result = append(result, key.breedName)
		}
	}
	sort.Strings(result)

	return result, nil
}

func (theStorage *MemoryStorage) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

func (theStorage *MemoryStorage) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

func (theStorage *MemoryStorage) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	return nil, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
