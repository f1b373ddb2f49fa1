package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"costlens/pkg/config"
	"costlens/pkg/dataset"
	"costlens/pkg/normalize"
)

func TestBuildCreateTableQuery(t *testing.T) {
	q := BuildCreateTableQuery("cost_rows", "")
	if !strings.HasPrefix(q, "CREATE TABLE IF NOT EXISTS cost_rows (") {
		t.Errorf("unexpected DDL prefix: %s", q)
	}
	if !strings.Contains(q, "ENGINE = ReplacingMergeTree(inserted_at)") {
		t.Errorf("expected replacing engine: %s", q)
	}

	q = BuildCreateTableQuery("cost_rows", "main")
	if !strings.Contains(q, "ON CLUSTER main") || !strings.Contains(q, "ReplicatedReplacingMergeTree") {
		t.Errorf("expected cluster DDL: %s", q)
	}
}

func TestBuildQueries(t *testing.T) {
	if got := BuildInsertQuery("t", []string{"a", "b"}); got != "INSERT INTO t (a, b)" {
		t.Errorf("BuildInsertQuery = %q", got)
	}
	if got := BuildInsertQuery("t", nil); got != "" {
		t.Errorf("expected empty insert for no columns, got %q", got)
	}
	if got := BuildDeleteFileQuery("t", "c"); got != "ALTER TABLE t ON CLUSTER c DELETE WHERE file_id = ?" {
		t.Errorf("BuildDeleteFileQuery = %q", got)
	}
	if q := BuildMonthlyTotalsQuery("t", true); !strings.Contains(q, "has(?, file_id)") {
		t.Errorf("expected file filter: %s", q)
	}
	if q := BuildMonthlyTotalsQuery("t", false); strings.Contains(q, "has(") {
		t.Errorf("unexpected file filter: %s", q)
	}
}

func TestValidateIdentifier(t *testing.T) {
	for _, name := range []string{"cost_rows", "_x1"} {
		if err := ValidateIdentifier(name); err != nil {
			t.Errorf("ValidateIdentifier(%q) = %v", name, err)
		}
	}
	for _, name := range []string{"", "1abc", "a;DROP TABLE x", "db.table"} {
		if err := ValidateIdentifier(name); !errors.Is(err, ErrInvalidTableName) {
			t.Errorf("ValidateIdentifier(%q) should fail, got %v", name, err)
		}
	}
}

func TestErrorWrapper(t *testing.T) {
	base := errors.New("boom")
	err := WrapError("send batch", "cost_rows", base)
	if !errors.Is(err, base) {
		t.Error("wrapped error should unwrap to its cause")
	}
	if err.Error() != "send batch failed for table 'cost_rows': boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if WrapError("x", "", nil) != nil {
		t.Error("wrapping nil should return nil")
	}
	if !IsConnectionError(WrapConnectionError(base)) {
		t.Error("expected connection error")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{errors.New("code: 60, table does not exist"), false},
		{WrapConnectionError(errors.New("reset")), true},
		{WrapError("send batch", "t", &net.OpError{Op: "write", Err: errors.New("broken pipe")}), true},
	}
	for _, tt := range tests {
		if got := isRetryable(tt.err); got != tt.want {
			t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestGetQueryType(t *testing.T) {
	cases := map[string]string{
		"select 1":                   "SELECT",
		"  INSERT INTO t (a)":        "INSERT",
		"ALTER TABLE t DELETE WHERE": "ALTER",
		"CREATE TABLE x":             "CREATE",
		"OPTIMIZE TABLE x":           "OTHER",
	}
	for q, want := range cases {
		if got := getQueryType(q); got != want {
			t.Errorf("getQueryType(%q) = %s, want %s", q, got, want)
		}
	}
}

func TestNilClientIsDisabled(t *testing.T) {
	var c *Client
	ctx := context.Background()
	if err := c.EnsureTable(ctx); !errors.Is(err, ErrDisabled) {
		t.Errorf("EnsureTable on nil client = %v", err)
	}
	if _, err := c.InsertTuples(ctx, normalize.ProviderAWS, nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("InsertTuples on nil client = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil client = %v", err)
	}
}

func TestMirrorRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ClickHouse integration test in short mode")
	}
	host := os.Getenv("CLICKHOUSE_HOST")
	if host == "" {
		host = "localhost"
	}
	table := fmt.Sprintf("costlens_test_%d", time.Now().UnixNano())
	client, err := NewClient(&config.ClickHouseConfig{
		Hosts:    []string{host},
		Port:     9000,
		Database: "default",
		Username: "default",
		Table:    table,
	})
	if err != nil {
		t.Skipf("ClickHouse not available: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	defer client.exec(ctx, "DROP TABLE IF EXISTS "+table)

	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	tuples := []dataset.CostTuple{
		{FileID: 7, UsageDate: &jan, ServiceName: "EC2", CostAmount: 10},
		{FileID: 7, UsageDate: &jan, ServiceName: "S3", CostAmount: 5},
		{FileID: 7, UsageDate: &feb, ServiceName: "EC2", CostAmount: 20},
	}
	res, err := client.InsertTuples(ctx, normalize.ProviderAWS, tuples)
	if err != nil {
		t.Fatalf("InsertTuples: %v", err)
	}
	if res.InsertedRecords != 3 {
		t.Errorf("inserted %d records, want 3", res.InsertedRecords)
	}

	totals, err := client.MonthlyTotals(ctx, []uint{7})
	if err != nil {
		t.Fatalf("MonthlyTotals: %v", err)
	}
	if len(totals) != 2 || totals[0].Month != "2024-01" || totals[0].Total != 15 {
		t.Errorf("unexpected totals %+v", totals)
	}
}
