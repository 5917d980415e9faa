// Package sqlstore implements the users and favorites queries on top of
// database/sql. Backends supply the driver-specific pieces: placeholder
// rebinding and translation of constraint errors.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/user"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type database interface {
	queryer
	executor
}

// Dialect holds the backend-specific behavior of a Store.
type Dialect struct {
	// Rebind rewrites a query written with $N placeholders. Nil keeps it as is.
	Rebind func(query string) string

	// TranslateError maps driver errors onto models errors. Nil keeps them as is.
	TranslateError func(err error) error
}

// Store is a SQL-backed users and favorites storage.
type Store struct {
	database          *sql.DB
	dialect           Dialect
	connectionTimeout time.Duration
}

var dollarPlaceholder = regexp.MustCompile(`\$\d+`)

// QuestionMarks rebinds $N placeholders to ?. Arguments must be used once each
// and in order, which holds for every query of this package.
func QuestionMarks(query string) string {
	return dollarPlaceholder.ReplaceAllString(query, "?")
}

// New wraps an opened database.
func New(db *sql.DB, dialect Dialect, connectionTimeout time.Duration) *Store {
	return &Store{
		database:          db,
		dialect:           dialect,
		connectionTimeout: connectionTimeout,
	}
}

// DB exposes the underlying pool to backends.
func (s *Store) DB() *sql.DB {
	return s.database
}

func (s *Store) q(query string) string {
	if s.dialect.Rebind == nil {
		return query
	}

	return s.dialect.Rebind(query)
}

func (s *Store) translate(err error) error {
	if err == nil || s.dialect.TranslateError == nil {
		return err
	}

	return s.dialect.TranslateError(err)
}

func (s *Store) conn(transaction *sql.Tx) database {
	if transaction == nil {
		return s.database
	}

	return transaction
}

// CreateUser inserts usr and returns the generated id. usr.ID is set as well.
func (s *Store) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (int, error) {
	row := s.conn(transaction).QueryRowContext(
		ctx,
		s.q(`
			INSERT INTO users (email, username, password, image_url)
				VALUES ($1, $2, $3, $4)
				RETURNING id
		`),
		usr.Email,
		usr.Username,
		usr.PasswordHash,
		user.ImageURLOrDefault(usr.ImageURL),
	)

	var userID int
	if err := row.Scan(&userID); err != nil {
		return 0, s.translate(err)
	}
	usr.ID = userID

	return userID, nil
}

func (s *Store) getUser(ctx context.Context, transaction *sql.Tx, where string, arg any) (*user.User, error) {
	row := s.conn(transaction).QueryRowContext(
		ctx,
		s.q(`SELECT id, email, username, password, image_url FROM users WHERE `+where+` = $1`),
		arg,
	)

	var usr user.User
	var imageURL sql.NullString
	err := row.Scan(&usr.ID, &usr.Email, &usr.Username, &usr.PasswordHash, &imageURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	usr.ImageURL = user.ImageURLOrDefault(imageURL.String)

	return &usr, nil
}

// GetUserByID fetches a user by its id.
func (s *Store) GetUserByID(ctx context.Context, userID int, transaction *sql.Tx) (*user.User, error) {
	return s.getUser(ctx, transaction, "id", userID)
}

// GetUserByUsername fetches a user by its exact username.
func (s *Store) GetUserByUsername(ctx context.Context, username string, transaction *sql.Tx) (*user.User, error) {
	return s.getUser(ctx, transaction, "username", username)
}

// UpdateUser stores username, email and image URL of usr.
func (s *Store) UpdateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error {
	result, err := s.conn(transaction).ExecContext(
		ctx,
		s.q(`UPDATE users SET username = $1, email = $2, image_url = $3 WHERE id = $4`),
		usr.Username,
		usr.Email,
		user.ImageURLOrDefault(usr.ImageURL),
		usr.ID,
	)
	if err != nil {
		return s.translate(err)
	}

	return expectOneRow(result)
}

// DeleteUser removes the user. Favorites go with it through ON DELETE CASCADE.
func (s *Store) DeleteUser(ctx context.Context, userID int, transaction *sql.Tx) error {
	result, err := s.conn(transaction).ExecContext(
		ctx,
		s.q(`DELETE FROM users WHERE id = $1`),
		userID,
	)
	if err != nil {
		return s.translate(err)
	}

	return expectOneRow(result)
}

// AddFavorite inserts the (userID, breedName) pair.
func (s *Store) AddFavorite(
	ctx context.Context,
	userID int,
	breedName string,
	transaction *sql.Tx,
) (*models.Favorite, error) {
	_, err := s.conn(transaction).ExecContext(
		ctx,
		s.q(`INSERT INTO favorites (user_id, breed_name) VALUES ($1, $2)`),
		userID,
		breedName,
	)
	if err != nil {
		return nil, s.translate(err)
	}

	return &models.Favorite{UserID: userID, BreedName: breedName}, nil
}

// RemoveFavorite deletes the pair and returns it, or models.ErrNotFound.
func (s *Store) RemoveFavorite(
	ctx context.Context,
	userID int,
	breedName string,
	transaction *sql.Tx,
) (*models.Favorite, error) {
	result, err := s.conn(transaction).ExecContext(
		ctx,
		s.q(`DELETE FROM favorites WHERE user_id = $1 AND breed_name = $2`),
		userID,
		breedName,
	)
	if err != nil {
		return nil, s.translate(err)
	}
	if err := expectOneRow(result); err != nil {
		return nil, err
	}

	return &models.Favorite{UserID: userID, BreedName: breedName}, nil
}

// GetFavorite looks the pair up by its composite key.
func (s *Store) GetFavorite(
	ctx context.Context,
	userID int,
	breedName string,
	transaction *sql.Tx,
) (*models.Favorite, error) {
	row := s.conn(transaction).QueryRowContext(
		ctx,
		s.q(`SELECT user_id, breed_name FROM favorites WHERE user_id = $1 AND breed_name = $2`),
		userID,
		breedName,
	)

	var fav models.Favorite
	if err := row.Scan(&fav.UserID, &fav.BreedName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	return &fav, nil
}

// GetUserFavorites returns the breed names favorited by the user.
func (s *Store) GetUserFavorites(ctx context.Context, userID int, transaction *sql.Tx) ([]string, error) {
	rows, err := s.conn(transaction).QueryContext(
		ctx,
		s.q(`SELECT breed_name FROM favorites WHERE user_id = $1 ORDER BY breed_name`),
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var breedName string
		if err := rows.Scan(&breedName); err != nil {
			return nil, err
		}
		result = append(result, breedName)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// BeginTransaction starts a new SQL transaction. The caller commits or rolls it back.
func (s *Store) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	return s.database.BeginTx(ctx, nil)
}

// CommitTransaction commits the given SQL transaction.
func (s *Store) CommitTransaction(transaction *sql.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while committing transaction: %v", r)
		}
	}()

	return s.translate(transaction.Commit())
}

// RollbackTransaction rolls back the given SQL transaction. Rolling back an
// already finished transaction is not an error.
func (s *Store) RollbackTransaction(transaction *sql.Tx) error {
	if transaction == nil {
		return nil
	}
	err := transaction.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}

// Ping verifies connectivity within the configured timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, s.connectionTimeout)
	defer cancel()

	return s.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.database.Close()
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}
