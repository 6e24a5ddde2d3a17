package history

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteTable(t *testing.T) {
	table, err := NewSQLiteTable(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer table.Close()
	ctx := context.Background()

	err = table.AppendRows(ctx, [][]string{
		EncodeRecord(rec("2330", "2025-01-07", 1000)),
		EncodeRecord(rec("2330", "2025-01-08", 1005)),
		{"2409", "友達", "2025-01-08"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := table.UpdateRow(ctx, 1, EncodeRecord(rec("2330", "2025-01-08", 1010))); err != nil {
		t.Fatalf("update: %v", err)
	}

	rows, err := table.ReadRows(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[1][ColPrice] != "1010" {
		t.Errorf("updated price = %q", rows[1][ColPrice])
	}
	if rows[2][ColPrice] != "" || len(rows[2]) != NumColumns {
		t.Errorf("short row not padded: %q", rows[2])
	}

	if err := table.OverwriteRows(ctx, rows[1:2]); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	rows, _ = table.ReadRows(ctx)
	if len(rows) != 1 || rows[0][ColDate] != "2025-01-08" {
		t.Errorf("after overwrite: %v", rows)
	}
}

func TestStoreOverSQLite(t *testing.T) {
	table, err := NewSQLiteTable(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer table.Close()
	s := NewStore(table, fastPolicy, newTestMetrics(), taipei)
	ctx := context.Background()

	for _, d := range []string{"2025-01-06", "2025-01-07", "2025-01-08"} {
		if _, err := s.Append(ctx, rec("2330", d, 1000)); err != nil {
			t.Fatalf("append %s: %v", d, err)
		}
	}
	if removed, err := s.Trim(ctx, "2330", 2); err != nil || removed != 1 {
		t.Fatalf("trim removed=%d err=%v", removed, err)
	}
	h, err := s.Load(ctx, "2330")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(h) != 2 || h[0].Day() != "2025-01-07" {
		t.Errorf("got %+v", h)
	}
}
