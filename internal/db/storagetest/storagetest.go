// Package storagetest holds the behavior suite every storage backend must pass.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/catfinder/internal/db/storage"
	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/user"
)

// Factory returns an empty storage. It is called once per subtest.
type Factory func(t *testing.T) storage.Storage

type options struct {
	transactional bool
}

// Option tunes the suite for a backend.
type Option func(*options)

// WithTransactions enables the rollback checks for backends that honor *sql.Tx.
func WithTransactions() Option {
	return func(o *options) {
		o.transactional = true
	}
}

func newUser(name string) *user.User {
	return &user.User{
		Email:        name + "@example.com",
		Username:     name,
		PasswordHash: "$2a$10$hash-of-" + name,
	}
}

func mustCreate(t *testing.T, st storage.Storage, name string) *user.User {
	t.Helper()
	usr := newUser(name)
	_, err := st.CreateUser(context.Background(), usr, nil)
	require.NoError(t, err)

	return usr
}

// Run executes the suite against the storages produced by newStorage.
func Run(t *testing.T, newStorage Factory, opts ...Option) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	ctx := context.Background()

	t.Run("create and get user", func(t *testing.T) {
		st := newStorage(t)

		usr := newUser("alice")
		id, err := st.CreateUser(ctx, usr, nil)
		require.NoError(t, err)
		assert.Positive(t, id)
		assert.Equal(t, id, usr.ID)

		byID, err := st.GetUserByID(ctx, id, nil)
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Username)
		assert.Equal(t, "alice@example.com", byID.Email)
		assert.Equal(t, usr.PasswordHash, byID.PasswordHash)
		assert.Equal(t, user.DefaultImageURL, byID.ImageURL)

		byName, err := st.GetUserByUsername(ctx, "alice", nil)
		require.NoError(t, err)
		assert.Equal(t, id, byName.ID)
	})

	t.Run("missing user", func(t *testing.T) {
		st := newStorage(t)

		_, err := st.GetUserByID(ctx, 424242, nil)
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = st.GetUserByUsername(ctx, "nobody", nil)
		assert.ErrorIs(t, err, models.ErrNotFound)

		assert.ErrorIs(t, st.DeleteUser(ctx, 424242, nil), models.ErrNotFound)
	})

	t.Run("duplicate username or email", func(t *testing.T) {
		st := newStorage(t)
		mustCreate(t, st, "bob")

		sameName := newUser("bob")
		sameName.Email = "other@example.com"
		_, err := st.CreateUser(ctx, sameName, nil)
		assert.ErrorIs(t, err, models.ErrConstraintViolation)

		sameEmail := newUser("bobby")
		sameEmail.Email = "bob@example.com"
		_, err = st.CreateUser(ctx, sameEmail, nil)
		assert.ErrorIs(t, err, models.ErrConstraintViolation)
	})

	t.Run("update user", func(t *testing.T) {
		st := newStorage(t)
		carol := mustCreate(t, st, "carol")
		mustCreate(t, st, "dave")

		carol.Username = "caroline"
		carol.ImageURL = "https://example.com/carol.png"
		require.NoError(t, st.UpdateUser(ctx, carol, nil))

		got, err := st.GetUserByUsername(ctx, "caroline", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/carol.png", got.ImageURL)

		_, err = st.GetUserByUsername(ctx, "carol", nil)
		assert.ErrorIs(t, err, models.ErrNotFound)

		carol.Username = "dave"
		assert.ErrorIs(t, st.UpdateUser(ctx, carol, nil), models.ErrConstraintViolation)
	})

	t.Run("favorites", func(t *testing.T) {
		st := newStorage(t)
		erin := mustCreate(t, st, "erin")

		fav, err := st.AddFavorite(ctx, erin.ID, "Siamese", nil)
		require.NoError(t, err)
		assert.Equal(t, models.Favorite{UserID: erin.ID, BreedName: "Siamese"}, *fav)

		_, err = st.AddFavorite(ctx, erin.ID, "Abyssinian", nil)
		require.NoError(t, err)

		_, err = st.AddFavorite(ctx, erin.ID, "Siamese", nil)
		assert.ErrorIs(t, err, models.ErrConstraintViolation)

		got, err := st.GetFavorite(ctx, erin.ID, "Siamese", nil)
		require.NoError(t, err)
		assert.Equal(t, "Siamese", got.BreedName)

		names, err := st.GetUserFavorites(ctx, erin.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Abyssinian", "Siamese"}, names)

		removed, err := st.RemoveFavorite(ctx, erin.ID, "Siamese", nil)
		require.NoError(t, err)
		assert.Equal(t, "Siamese", removed.BreedName)

		_, err = st.RemoveFavorite(ctx, erin.ID, "Siamese", nil)
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = st.GetFavorite(ctx, erin.ID, "Siamese", nil)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("favorite of unknown user", func(t *testing.T) {
		st := newStorage(t)

		_, err := st.AddFavorite(ctx, 424242, "Siamese", nil)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.NotErrorIs(t, err, models.ErrConstraintViolation)
	})

	t.Run("no favorites is empty not nil", func(t *testing.T) {
		st := newStorage(t)
		frank := mustCreate(t, st, "frank")

		names, err := st.GetUserFavorites(ctx, frank.ID, nil)
		require.NoError(t, err)
		assert.NotNil(t, names)
		assert.Empty(t, names)
	})

	t.Run("delete user cascades", func(t *testing.T) {
		st := newStorage(t)
		gina := mustCreate(t, st, "gina")
		hank := mustCreate(t, st, "hank")

		_, err := st.AddFavorite(ctx, gina.ID, "Bengal", nil)
		require.NoError(t, err)
		_, err = st.AddFavorite(ctx, hank.ID, "Bengal", nil)
		require.NoError(t, err)

		require.NoError(t, st.DeleteUser(ctx, gina.ID, nil))

		_, err = st.GetUserByID(ctx, gina.ID, nil)
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = st.GetFavorite(ctx, gina.ID, "Bengal", nil)
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = st.GetFavorite(ctx, hank.ID, "Bengal", nil)
		assert.NoError(t, err)
	})

	t.Run("ping", func(t *testing.T) {
		st := newStorage(t)
		assert.NoError(t, st.Ping(ctx))
	})

	if !o.transactional {
		return
	}

	t.Run("rollback discards writes", func(t *testing.T) {
		st := newStorage(t)
		ivan := mustCreate(t, st, "ivan")

		tx, err := st.BeginTransaction(ctx)
		require.NoError(t, err)
		_, err = st.AddFavorite(ctx, ivan.ID, "Persian", tx)
		require.NoError(t, err)
		_, err = st.GetFavorite(ctx, ivan.ID, "Persian", tx)
		require.NoError(t, err)
		require.NoError(t, st.RollbackTransaction(tx))

		_, err = st.GetFavorite(ctx, ivan.ID, "Persian", nil)
		assert.ErrorIs(t, err, models.ErrNotFound)

		assert.NoError(t, st.RollbackTransaction(tx), "second rollback is a no-op")
	})

	t.Run("commit keeps writes", func(t *testing.T) {
		st := newStorage(t)
		judy := mustCreate(t, st, "judy")

		tx, err := st.BeginTransaction(ctx)
		require.NoError(t, err)
		_, err = st.AddFavorite(ctx, judy.ID, "Sphynx", tx)
		require.NoError(t, err)
		require.NoError(t, st.CommitTransaction(tx))

		_, err = st.GetFavorite(ctx, judy.ID, "Sphynx", nil)
		assert.NoError(t, err)
	})
}
