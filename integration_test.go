package bookshelf_test

import (
	"context"
	"database/sql"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	bookshelf "github.com/goliatone/go-bookshelf"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// openTestDB runs the embedded sqlite migrations against a throwaway
// database. A single connection keeps concurrent transactions serialized
// the way a locked row does on postgres.
func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, filepath.Join(t.TempDir(), "bookshelf_test.db"))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	dir := "data/sql/migrations/sqlite"
	entries, err := fs.ReadDir(bookshelf.GetMigrationsFS(), dir)
	require.NoError(t, err)

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		buf, err := fs.ReadFile(bookshelf.GetMigrationsFS(), path.Join(dir, entry.Name()))
		require.NoError(t, err)

		_, err = db.Exec(string(buf))
		require.NoError(t, err, "migration %s", entry.Name())
	}

	return db
}

func TestResendActivationConcurrentRequestsKeepOneRecord(t *testing.T) {
	db := openTestDB(t)
	repo := bookshelf.NewRepositoryManager(db)
	ctx := context.Background()

	userID := uuid.New()
	user := &bookshelf.User{
		ID:           userID,
		Username:     "reader",
		Email:        "reader@example.com",
		PasswordHash: "$2a$14$originalhash",
	}

	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	staleCreated := time.Now().Add(-25 * time.Hour)
	stale := &bookshelf.Activation{
		ID:        uuid.New(),
		UserID:    &userID,
		Code:      "stalestalestale01234",
		CreatedAt: &staleCreated,
	}

	_, err = db.NewInsert().Model(stale).Exec(ctx)
	require.NoError(t, err)

	mailer := &MockMailer{}
	mailer.On("Send", mock.Anything, "reader@example.com", bookshelf.SubjectAccountActivation, mock.Anything).
		Return(nil).Once()

	handler := bookshelf.NewResendActivationHandler(repo, bookshelf.NewNotifier(mailer, "https://books.example.com")).
		WithLogger(testLogger{})

	errs := make([]error, 2)
	var wg sync.WaitGroup

	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = handler.Execute(ctx, bookshelf.ResendActivationMessage{Identifier: "reader"})
		}(i)
	}

	wg.Wait()

	// exactly one attempt wins; the loser sees the fresh record and hits
	// the cooldown
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0], bookshelf.ErrActivationCooldown)

	var records []*bookshelf.Activation
	err = db.NewSelect().Model(&records).Where("user_id = ?", userID).Scan(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.NotEqual(t, stale.Code, records[0].Code)
	assert.Len(t, records[0].Code, bookshelf.ActivationCodeLength)

	mailer.AssertExpectations(t)
}

func TestUserEmailUniquenessIsCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := &bookshelf.User{
		ID:           uuid.New(),
		Username:     "reader",
		Email:        "Reader@Example.com",
		PasswordHash: "$2a$14$originalhash",
	}

	_, err := db.NewInsert().Model(first).Exec(ctx)
	require.NoError(t, err)

	dup := &bookshelf.User{
		ID:           uuid.New(),
		Username:     "otherreader",
		Email:        "reader@example.com",
		PasswordHash: "$2a$14$originalhash",
	}

	_, err = db.NewInsert().Model(dup).Exec(ctx)
	require.Error(t, err)
}
