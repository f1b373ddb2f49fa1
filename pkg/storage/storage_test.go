package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"costlens/internal/models"
	"costlens/pkg/config"
	"costlens/pkg/dataset"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(&config.StorageConfig{
		Driver:      DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "db", "costlens.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestCreateAndLoadImport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	imp := &models.FileImport{Name: "aws.csv", Provider: "AWS", Shape: "long", Checksum: "abc", RowCount: 3}
	if err := imp.SetMapping(map[string]string{"date": "Start"}); err != nil {
		t.Fatalf("SetMapping: %v", err)
	}
	tuples := []dataset.CostTuple{
		{UsageDate: date(2024, 2, 1), ServiceName: "S3", CostAmount: 5},
		{UsageDate: date(2024, 1, 1), ServiceName: "EC2", CostAmount: 10},
		{UsageDate: nil, ServiceName: "Support", CostAmount: 1},
	}
	if err := s.CreateImport(ctx, imp, tuples); err != nil {
		t.Fatalf("CreateImport returned error: %v", err)
	}
	if imp.ID == 0 || imp.ImportedAt.IsZero() {
		t.Fatalf("import was not populated: %+v", imp)
	}

	got, err := s.LoadTuples(ctx, imp.ID)
	if err != nil {
		t.Fatalf("LoadTuples returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 tuples, got %d", len(got))
	}
	var total float64
	for _, tp := range got {
		if tp.FileID != imp.ID {
			t.Errorf("tuple carries file id %d, want %d", tp.FileID, imp.ID)
		}
		total += tp.CostAmount
	}
	if total != 16 {
		t.Errorf("total = %v, want 16", total)
	}

	loaded, err := s.GetImport(ctx, imp.ID)
	if err != nil {
		t.Fatalf("GetImport returned error: %v", err)
	}
	if loaded.Mapping()["date"] != "Start" {
		t.Errorf("mapping not persisted: %s", loaded.ColumnMapping)
	}
}

func TestChecksumIsUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateImport(ctx, &models.FileImport{Name: "a.csv", Provider: "AWS", Checksum: "same"}, nil); err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	if err := s.CreateImport(ctx, &models.FileImport{Name: "b.csv", Provider: "AWS", Checksum: "same"}, nil); err == nil {
		t.Error("expected a unique constraint violation")
	}

	found, err := s.FindImportByChecksum(ctx, "same")
	if err != nil || found.Name != "a.csv" {
		t.Errorf("FindImportByChecksum = %+v, %v", found, err)
	}
	if _, err := s.FindImportByChecksum(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListImportsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"old.csv", "new.csv", "mid.csv"} {
		offset := []int{0, 2, 1}[i]
		imp := &models.FileImport{Name: name, Provider: "OCI", Checksum: name, ImportedAt: base.AddDate(0, 0, offset)}
		if err := s.CreateImport(ctx, imp, nil); err != nil {
			t.Fatalf("CreateImport(%s): %v", name, err)
		}
	}

	list, err := s.ListImports(ctx)
	if err != nil {
		t.Fatalf("ListImports returned error: %v", err)
	}
	want := []string{"new.csv", "mid.csv", "old.csv"}
	for i, w := range want {
		if list[i].Name != w {
			t.Errorf("list[%d] = %s, want %s", i, list[i].Name, w)
		}
	}
}

func TestDeleteImport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	imp := &models.FileImport{Name: "x.csv", Provider: "GENERIC", Checksum: "x"}
	if err := s.CreateImport(ctx, imp, []dataset.CostTuple{{ServiceName: "a", CostAmount: 1}}); err != nil {
		t.Fatalf("CreateImport: %v", err)
	}

	if err := s.DeleteImport(ctx, imp.ID); err != nil {
		t.Fatalf("DeleteImport returned error: %v", err)
	}
	if rows, _ := s.LoadTuples(ctx, imp.ID); len(rows) != 0 {
		t.Errorf("expected rows to be deleted, got %d", len(rows))
	}

	err := s.DeleteImport(ctx, imp.ID)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
	if _, err := s.GetImport(ctx, imp.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestJobRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Now().UTC()
	for i, name := range []string{"evict", "scan", "evict"} {
		run := &models.JobRun{RunID: name + string(rune('a'+i)), JobName: name, Kind: "cache_evict", StartedAt: start.Add(time.Duration(i) * time.Minute)}
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}
	runs, err := s.ListRuns(ctx, "evict", 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "evictc" {
		t.Errorf("unexpected runs %+v", runs)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(&config.StorageConfig{Driver: "postgres", DSN: "x"}); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
}
