package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMigrations(t *testing.T) {
	migrations, err := ListMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 8)

	// Every up migration has a matching down migration
	ups := 0
	for _, m := range migrations {
		if strings.HasSuffix(m, ".up.sql") {
			ups++
			down := strings.TrimSuffix(m, ".up.sql") + ".down.sql"
			assert.Contains(t, migrations, down)
		}
	}
	assert.Equal(t, 4, ups)
}

func TestConfigDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "dbname=authz")
	assert.Contains(t, dsn, "sslmode=disable")
}
