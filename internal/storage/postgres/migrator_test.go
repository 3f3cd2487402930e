package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestEmbeddedMigrationsDescribeOrderSchema(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("load embedded migrations: %v", err)
	}
	if len(migrations) == 0 || migrations[0].label() != "0001_init" {
		t.Fatalf("unexpected embedded migrations: %+v", migrations)
	}

	up := migrations[0].body(migrationUp)
	for _, table := range []string{"customers", "products", "orders", "order_items", "order_number_seq"} {
		if !strings.Contains(up, table) {
			t.Fatalf("init migration must create %s", table)
		}
	}
	if !strings.Contains(migrations[0].body(migrationDown), "DROP TABLE") {
		t.Fatal("down migration must drop tables")
	}
}

func TestLoadMigrationsFromFS_OrdersByVersion(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0002_order_notes.up.sql":   {Data: []byte("ALTER TABLE orders ADD COLUMN notes TEXT;")},
		"sql/migrations/0002_order_notes.down.sql": {Data: []byte("ALTER TABLE orders DROP COLUMN notes;")},
		"sql/migrations/0001_init.up.sql":          {Data: []byte("CREATE TABLE orders (id BIGINT);")},
		"sql/migrations/0001_init.down.sql":        {Data: []byte("DROP TABLE IF EXISTS orders;")},
	}

	migrations, err := loadMigrationsFromFS(fsys)
	if err != nil {
		t.Fatalf("loadMigrationsFromFS failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].label() != "0001_init" || migrations[1].label() != "0002_order_notes" {
		t.Fatalf("unexpected order: %s, %s", migrations[0].label(), migrations[1].label())
	}
	if migrations[1].body(migrationDown) != "ALTER TABLE orders DROP COLUMN notes;" {
		t.Fatalf("unexpected down body: %q", migrations[1].body(migrationDown))
	}
}

func TestLoadMigrationsFromFS_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
	}{
		{
			name:    "no files",
			fsys:    fstest.MapFS{},
			wantErr: "no migration files",
		},
		{
			name: "missing down",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql": {Data: []byte("CREATE TABLE orders (id BIGINT);")},
			},
			wantErr: "both up and down",
		},
		{
			name: "invalid file name",
			fsys: fstest.MapFS{
				"sql/migrations/orders.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: "invalid migration file name",
		},
		{
			name: "empty body",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":   {Data: []byte("   \n")},
				"sql/migrations/0001_init.down.sql": {Data: []byte("DROP TABLE IF EXISTS orders;")},
			},
			wantErr: "migration file is empty",
		},
		{
			name: "name mismatch",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":     {Data: []byte("CREATE TABLE orders (id BIGINT);")},
				"sql/migrations/0001_orders.down.sql": {Data: []byte("DROP TABLE IF EXISTS orders;")},
			},
			wantErr: "name mismatch",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := loadMigrationsFromFS(tc.fsys)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
