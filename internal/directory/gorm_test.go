package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/charlesng35/sessiongate/internal/database"
	"github.com/charlesng35/sessiongate/internal/database/testutil"
	"github.com/charlesng35/sessiongate/internal/models"
)

func setupGormDirectory(t *testing.T) (*GormDirectory, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	dir, err := NewGormDirectory(db)
	require.NoError(t, err)
	return dir, db
}

func TestNewGormDirectoryRequiresDB(t *testing.T) {
	_, err := NewGormDirectory(nil)
	require.Error(t, err)
}

func TestGormDirectoryFindByUsername(t *testing.T) {
	dir, db := setupGormDirectory(t)
	_, err := database.SeedDemoData(db,
		database.SeedUser{Username: "alice", ClientID: "200", Password: "a"},
		database.SeedUser{Username: "alice", ClientID: "100", Password: "b"},
		database.SeedUser{Username: "bob", ClientID: "100", Password: "c"},
	)
	require.NoError(t, err)

	users, err := dir.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "100", users[0].ClientID)
	require.Equal(t, "200", users[1].ClientID)

	none, err := dir.FindByUsername(context.Background(), "carol")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestGormDirectoryWriteLockState(t *testing.T) {
	dir, db := setupGormDirectory(t)
	users, err := database.SeedDemoData(db, database.SeedUser{Username: "alice", ClientID: "100", Password: "a"})
	require.NoError(t, err)
	ctx := context.Background()

	lockedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	state := LockState{UserID: users[0].ID, Locked: true, LockedAt: &lockedAt, FailedAttempts: 10}
	require.NoError(t, dir.WriteLockState(ctx, state))
	// identical state again must not fail
	require.NoError(t, dir.WriteLockState(ctx, state))

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", users[0].ID).Error)
	require.True(t, stored.IsLocked)
	require.NotNil(t, stored.LockedAt)
	require.True(t, lockedAt.Equal(*stored.LockedAt))
	require.Equal(t, 10, stored.FailedAttempts)

	require.NoError(t, dir.WriteLockState(ctx, LockState{UserID: users[0].ID}))
	require.NoError(t, db.First(&stored, "id = ?", users[0].ID).Error)
	require.False(t, stored.IsLocked)
	require.Nil(t, stored.LockedAt)
	require.Zero(t, stored.FailedAttempts)

	require.Error(t, dir.WriteLockState(ctx, LockState{}))
}

func TestGormDirectoryRecordLogin(t *testing.T) {
	dir, db := setupGormDirectory(t)
	users, err := database.SeedDemoData(db, database.SeedUser{Username: "alice", ClientID: "100", Password: "a"})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, dir.WriteLockState(ctx, LockState{UserID: users[0].ID, FailedAttempts: 4}))

	at := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, dir.RecordLogin(ctx, users[0].ID, at))

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", users[0].ID).Error)
	require.NotNil(t, stored.LastLoginAt)
	require.True(t, at.Equal(*stored.LastLoginAt))
	require.Zero(t, stored.FailedAttempts)
}

func TestGormDirectoryHasBusinessPartner(t *testing.T) {
	dir, db := setupGormDirectory(t)
	users, err := database.SeedDemoData(db,
		database.SeedUser{Username: "linked", ClientID: "100", Password: "a", BusinessPartners: []string{"BP-1"}},
		database.SeedUser{Username: "nulled", ClientID: "100", Password: "a"},
		database.SeedUser{Username: "bare", ClientID: "100", Password: "a"},
	)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.BusinessPartnerLink{UserID: users[1].ID}).Error)

	ctx := context.Background()
	for _, tc := range []struct {
		user     *models.User
		expected bool
	}{
		{users[0], true},
		{users[1], false},
		{users[2], false},
	} {
		ok, err := dir.HasBusinessPartner(ctx, tc.user.ID)
		require.NoError(t, err)
		require.Equal(t, tc.expected, ok, tc.user.Username)
	}
}

func TestGormDirectoryTransactionRollsBack(t *testing.T) {
	dir, db := setupGormDirectory(t)
	users, err := database.SeedDemoData(db, database.SeedUser{Username: "alice", ClientID: "100", Password: "a"})
	require.NoError(t, err)
	ctx := context.Background()

	boom := errors.New("boom")
	err = dir.Transaction(ctx, func(tx Directory) error {
		require.NoError(t, tx.WriteLockState(ctx, LockState{UserID: users[0].ID, FailedAttempts: 3}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", users[0].ID).Error)
	require.Zero(t, stored.FailedAttempts)

	err = dir.Transaction(ctx, func(tx Directory) error {
		return tx.WriteLockState(ctx, LockState{UserID: users[0].ID, FailedAttempts: 3})
	})
	require.NoError(t, err)
	require.NoError(t, db.First(&stored, "id = ?", users[0].ID).Error)
	require.Equal(t, 3, stored.FailedAttempts)
}

func TestGormDirectoryPing(t *testing.T) {
	dir, _ := setupGormDirectory(t)
	require.NoError(t, dir.Ping(context.Background()))
}

func TestGormDirectoryTransactionLocksCandidateRows(t *testing.T) {
	pg, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=gate dbname=gate sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	render := func(dir *GormDirectory) string {
		return pg.ToSQL(func(tx *gorm.DB) *gorm.DB {
			var users []*models.User
			return dir.usersByName(tx, "alice").Find(&users)
		})
	}

	require.NotContains(t, render(&GormDirectory{db: pg}), "FOR UPDATE")
	require.Contains(t, render(&GormDirectory{db: pg, lockRows: true}), "FOR UPDATE")

	// sqlite drops the clause, so the same path still runs end to end
	dir, db := setupGormDirectory(t)
	_, err = database.SeedDemoData(db, database.SeedUser{Username: "alice", ClientID: "100", Password: "a"})
	require.NoError(t, err)

	require.False(t, dir.lockRows)
	err = dir.Transaction(context.Background(), func(tx Directory) error {
		inner, ok := tx.(*GormDirectory)
		require.True(t, ok)
		require.True(t, inner.lockRows)

		users, err := tx.FindByUsername(context.Background(), "alice")
		require.NoError(t, err)
		require.Len(t, users, 1)
		return nil
	})
	require.NoError(t, err)
}
