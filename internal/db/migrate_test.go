package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/tour?sslmode=disable", MigrateURL("postgres://u:p@localhost:5432/tour?sslmode=disable"))
	require.Equal(t, "pgx5://localhost/tour", MigrateURL("postgresql://localhost/tour"))
	require.Equal(t, "pgx5://localhost/tour", MigrateURL("pgx5://localhost/tour"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	require.NoError(t, err)
	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	require.NotZero(t, ups)
	require.Equal(t, ups, downs)
}
