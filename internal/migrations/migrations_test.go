package migrations

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesArePaired(t *testing.T) {
	entries, err := fs.ReadDir(MigrationFiles, ".")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	require.Len(t, ups, 3)
	require.Equal(t, ups, downs)
}

func TestMigrationsAreRerunnable(t *testing.T) {
	entries, err := fs.ReadDir(MigrationFiles, ".")
	require.NoError(t, err)

	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}
		raw, err := fs.ReadFile(MigrationFiles, e.Name())
		require.NoError(t, err)

		for _, line := range strings.Split(string(raw), "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "CREATE TABLE") || strings.HasPrefix(trimmed, "CREATE INDEX") {
				require.Contains(t, trimmed, "IF NOT EXISTS", "%s: %s", e.Name(), trimmed)
			}
		}
	}
}

type fakeMigrator struct {
	version uint
	dirty   bool
	noneYet bool
	upErr   error

	forced []int
	ups    int
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	if f.noneYet {
		return 0, false, migrate.ErrNilVersion
	}
	return f.version, f.dirty, nil
}

func (f *fakeMigrator) Force(version int) error {
	f.forced = append(f.forced, version)
	f.dirty = false
	if version == database.NilVersion {
		f.noneYet = true
		return nil
	}
	f.version = uint(version)
	return nil
}

func (f *fakeMigrator) Up() error {
	f.ups++
	if f.upErr != nil {
		return f.upErr
	}
	f.noneYet = false
	f.version = 3
	return nil
}

func TestRecoveryVersion(t *testing.T) {
	assert.Equal(t, database.NilVersion, recoveryVersion(0))
	assert.Equal(t, database.NilVersion, recoveryVersion(1))
	assert.Equal(t, 1, recoveryVersion(2))
	assert.Equal(t, 2, recoveryVersion(3))
}

func TestRun_DirtyStateIsForcedBackAndReapplied(t *testing.T) {
	tests := []struct {
		name       string
		version    uint
		wantForced int
	}{
		{"first migration interrupted", 1, database.NilVersion},
		{"later migration interrupted", 3, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := &fakeMigrator{version: tc.version, dirty: true}
			require.NoError(t, run(m, true))
			assert.Equal(t, []int{tc.wantForced}, m.forced)
			assert.Equal(t, 1, m.ups)
			assert.False(t, m.dirty)
		})
	}
}

func TestRun_DirtyStateRecoveredEvenWithoutAutoMigrate(t *testing.T) {
	m := &fakeMigrator{version: 2, dirty: true}
	require.NoError(t, run(m, false))
	assert.Equal(t, []int{1}, m.forced)
	assert.Zero(t, m.ups)
}

func TestRun_FreshAndUpToDate(t *testing.T) {
	fresh := &fakeMigrator{noneYet: true}
	require.NoError(t, run(fresh, true))
	assert.Equal(t, 1, fresh.ups)
	assert.Empty(t, fresh.forced)

	current := &fakeMigrator{version: 3, upErr: migrate.ErrNoChange}
	require.NoError(t, run(current, true))

	broken := &fakeMigrator{version: 3, upErr: errors.New("syntax error")}
	require.ErrorContains(t, run(broken, true), "failed to run migrations")
}
