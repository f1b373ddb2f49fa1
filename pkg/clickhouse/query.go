package clickhouse

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier accepts plain table and database names only
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return nil
}

// costColumns is the column order of the mirror table
var costColumns = []string{"file_id", "provider", "usage_date", "month", "service_name", "cost_amount", "inserted_at"}

// BuildCreateTableQuery returns the DDL of the cost mirror table. With a
// cluster the table is created ON CLUSTER with a replicated engine.
func BuildCreateTableQuery(table, cluster string) string {
	engine := "ReplacingMergeTree(inserted_at)"
	onCluster := ""
	if cluster != "" {
		onCluster = fmt.Sprintf(" ON CLUSTER %s", cluster)
		engine = "ReplicatedReplacingMergeTree('/clickhouse/tables/{shard}/{database}/" + table + "', '{replica}', inserted_at)"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s%s (
	file_id UInt64,
	provider LowCardinality(String),
	usage_date Nullable(Date),
	month String,
	service_name String,
	cost_amount Float64,
	inserted_at DateTime
) ENGINE = %s
ORDER BY (file_id, month, service_name)`, table, onCluster, engine)
}

// BuildInsertQuery builds the batch insert statement for columns
func BuildInsertQuery(table string, columns []string) string {
	if len(columns) == 0 {
		return ""
	}
	return fmt.Sprintf("INSERT INTO %s (%s)", table, strings.Join(columns, ", "))
}

// BuildDeleteFileQuery removes every row of one import
func BuildDeleteFileQuery(table, cluster string) string {
	onCluster := ""
	if cluster != "" {
		onCluster = fmt.Sprintf(" ON CLUSTER %s", cluster)
	}
	return fmt.Sprintf("ALTER TABLE %s%s DELETE WHERE file_id = ?", table, onCluster)
}

// BuildMonthlyTotalsQuery sums cost per month and provider, optionally
// restricted to a set of imports
func BuildMonthlyTotalsQuery(table string, filterFiles bool) string {
	where := "WHERE usage_date IS NOT NULL"
	if filterFiles {
		where += " AND has(?, file_id)"
	}
	return fmt.Sprintf(`SELECT month, provider, sum(cost_amount) AS total
FROM %s FINAL
%s
GROUP BY month, provider
ORDER BY month, provider`, table, where)
}

// QueryStats records the timing of one statement
type QueryStats struct {
	QueryType    string        `json:"query_type"`
	Duration     time.Duration `json:"duration"`
	RowsAffected int64         `json:"rows_affected"`
}

// getQueryType classifies a statement by its leading keyword
func getQueryType(query string) string {
	query = strings.TrimSpace(strings.ToUpper(query))
	for _, kind := range []string{"SELECT", "INSERT", "ALTER TABLE", "CREATE", "DROP"} {
		if strings.HasPrefix(query, kind) {
			if kind == "ALTER TABLE" {
				return "ALTER"
			}
			return kind
		}
	}
	return "OTHER"
}
