package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/topichub/internal/repository/memory"
	"github.com/and161185/topichub/migrations"
)

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{"00001_init.sql", "00002_seed_topics.sql"}, names)

	for _, n := range names {
		b, err := fs.ReadFile(migrations.FS, n)
		require.NoError(t, err)
		require.Contains(t, string(b), "-- +goose Up", n)
		require.Contains(t, string(b), "-- +goose Down", n)
	}
}

func TestInitDeclaresNamedUniqueConstraints(t *testing.T) {
	t.Parallel()

	b, err := fs.ReadFile(migrations.FS, "00001_init.sql")
	require.NoError(t, err)
	// postgres repositories map these names to ErrEmailTaken / ErrUsernameTaken
	require.Contains(t, string(b), "CONSTRAINT users_username_key UNIQUE (username)")
	require.Contains(t, string(b), "CONSTRAINT users_email_key UNIQUE (email)")
}

func TestSeedMatchesMemoryStore(t *testing.T) {
	t.Parallel()

	b, err := fs.ReadFile(migrations.FS, "00002_seed_topics.sql")
	require.NoError(t, err)
	seed := string(b)
	for _, tp := range memory.SeedTopics {
		row := "'" + tp.Title + "', '" + tp.Description + "'"
		require.True(t, strings.Contains(seed, row), "missing seed row %s", row)
	}
}
