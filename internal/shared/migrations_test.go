package shared

import (
	"slices"
	"testing"

	"github.com/jmoiron/sqlx"
)

func migratedDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return db
}

func columns(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()
	var cols []string
	if err := db.Select(&cols, "SELECT name FROM pragma_table_info(?)", table); err != nil {
		t.Fatalf("table_info(%s) error = %v", table, err)
	}
	return cols
}

func appliedVersions(t *testing.T, db *sqlx.DB) []int {
	t.Helper()
	var versions []int
	if err := db.Select(&versions, "SELECT version FROM schema_migrations ORDER BY version"); err != nil {
		t.Fatalf("schema_migrations error = %v", err)
	}
	return versions
}

func TestMigrations(t *testing.T) {
	t.Run("Embedded Scripts Pair Up", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("loadMigrations() error = %v", err)
		}

		names := make([]string, 0, len(migrations))
		for i, m := range migrations {
			if m.Version != i {
				t.Errorf("migration %q has version %d, want %d", m.Name, m.Version, i)
			}
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration %q is missing a script", m.Name)
			}
			names = append(names, m.Name)
		}
		if !slices.Equal(names, []string{"create_sync_jobs", "create_event_cache"}) {
			t.Errorf("unexpected migrations %v", names)
		}
	})

	t.Run("Sync History Schema", func(t *testing.T) {
		db := migratedDB(t)

		cols := columns(t, db, "sync_jobs")
		for _, want := range []string{"id", "sequence", "kind", "channel", "status", "progress", "total", "error", "finished_at"} {
			if !slices.Contains(cols, want) {
				t.Errorf("sync_jobs missing column %s: %v", want, cols)
			}
		}

		var seed int
		if err := db.Get(&seed, "SELECT value FROM sync_jobs_sequence WHERE id = 1"); err != nil || seed != 0 {
			t.Errorf("sequence seed = %d, %v", seed, err)
		}

		var indexes []string
		db.Select(&indexes, "SELECT name FROM pragma_index_list('sync_jobs') WHERE origin = 'c'")
		slices.Sort(indexes)
		if !slices.Equal(indexes, []string{"idx_sync_jobs_kind", "idx_sync_jobs_started_at"}) {
			t.Errorf("unexpected indexes %v", indexes)
		}
	})

	t.Run("Event Cache Schema", func(t *testing.T) {
		db := migratedDB(t)

		cols := columns(t, db, "event_cache")
		for _, want := range []string{"ref_doctype", "ref_docname", "position", "kind", "payload", "cached_at"} {
			if !slices.Contains(cols, want) {
				t.Errorf("event_cache missing column %s: %v", want, cols)
			}
		}

		insert := "INSERT INTO event_cache (ref_doctype, ref_docname, position, kind, name, payload) VALUES ('Lead', 'CRM-LEAD-0001', 0, 'event', 'EV-1', '{}')"
		if _, err := db.Exec(insert); err != nil {
			t.Fatalf("insert error = %v", err)
		}
		if _, err := db.Exec(insert); err == nil {
			t.Error("duplicate position for one record should be rejected")
		}
	})

	t.Run("Rerun Is A No-op", func(t *testing.T) {
		db := migratedDB(t)
		if err := RunMigrations(db); err != nil {
			t.Fatalf("second RunMigrations() error = %v", err)
		}
		if got := appliedVersions(t, db); !slices.Equal(got, []int{0, 1}) {
			t.Errorf("applied versions = %v", got)
		}
	})

	t.Run("Rollback Walks Back One At A Time", func(t *testing.T) {
		db := migratedDB(t)

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("RollbackMigration() error = %v", err)
		}
		if got := appliedVersions(t, db); !slices.Equal(got, []int{0}) {
			t.Errorf("applied versions = %v", got)
		}
		if _, err := db.Exec("SELECT 1 FROM event_cache"); err == nil {
			t.Error("event_cache should be dropped")
		}
		if len(columns(t, db, "sync_jobs")) == 0 {
			t.Error("sync_jobs should survive the first rollback")
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("second RollbackMigration() error = %v", err)
		}
		if got := appliedVersions(t, db); len(got) != 0 {
			t.Errorf("applied versions = %v", got)
		}
		if err := RollbackMigration(db); err == nil {
			t.Error("rolling back an empty schema should fail")
		}
	})
}

func TestRemoveComments(t *testing.T) {
	got := removeComments("-- Sync job history\nCREATE TABLE t (id INTEGER) -- trailing\n\n")
	if got != "CREATE TABLE t (id INTEGER)" {
		t.Errorf("removeComments() = %q", got)
	}
}
