package database

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
)

func TestMigrations_Embedded(t *testing.T) {
	names, err := fs.Glob(Migrations(), "*.sql")
	require.NoError(t, err)
	require.Len(t, names, 6)
	assert.Equal(t, "00001_create_books.sql", names[0])
	assert.Equal(t, "00006_one_open_loan_per_patron.sql", names[5])
}

func TestMigrate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("library"),
		postgres.WithUsername("library"),
		postgres.WithPassword("library"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "Failed to start Postgres container")
	defer func() { _ = container.Terminate(context.Background()) }()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, dsn, DefaultPool)
	require.NoError(t, err)
	defer Close(db) //nolint:errcheck

	require.NoError(t, Migrate(ctx, db, zap.NewNop()))
	// A second run is a no-op.
	require.NoError(t, Migrate(ctx, db, zap.NewNop()))

	provider, err := NewMigrator(db)
	require.NoError(t, err)
	version, err := provider.GetDBVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), version)

	// quantity can never go negative.
	err = db.Exec(`INSERT INTO books (title, author, quantity) VALUES ('T', 'A', -1)`).Error
	assert.Error(t, err)

	// Loans do not reference books, only patrons.
	require.NoError(t, db.Exec(`INSERT INTO patrons (name, category) VALUES ('Ann', 'student')`).Error)
	err = db.Exec(`INSERT INTO loans (book_id, patron_id, borrow_date)
		SELECT gen_random_uuid(), id, CURRENT_DATE FROM patrons`).Error
	assert.NoError(t, err)

	// Only one open loan per book and patron.
	err = db.Exec(`INSERT INTO loans (book_id, patron_id, borrow_date)
		SELECT book_id, patron_id, CURRENT_DATE FROM loans`).Error
	assert.Error(t, err)

	err = db.Exec(`INSERT INTO patrons (name, category) VALUES ('Bob', 'alumni')`).Error
	assert.Error(t, err)
}
