package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const schema = `
create table if not exists item (
    id integer primary key,
    name text not null
);
create table if not exists tag (
    item_id integer not null references item(id),
    name text not null
);
`

func TestOpenAndMigrateDB(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	db, err := OpenAndMigrateDB(ctx, schema, path)
	require.NoError(t, err)

	_, err = db.Exec("insert into item (id, name) values (1, 'a')")
	require.NoError(t, err)

	var mode string
	err = db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	require.Equal(t, "wal", mode)

	_, err = db.Exec("insert into tag (item_id, name) values (2, 'dangling')")
	require.Error(t, err, "foreign keys should be enforced")
	require.NoError(t, db.Close())

	// applying the schema again keeps existing rows
	db, err = OpenAndMigrateDB(ctx, schema, path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	err = db.QueryRow("select count(*) from item").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
