package postgres

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The stores and the embedded schema only meet on a live database, so drift
// between them surfaces as runtime undefined-column errors. These tests pin
// each query's column list against the DDL instead.

var createTableRE = regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\);`)

// schemaColumns parses the embedded migrations into table -> column set.
func schemaColumns(t *testing.T) map[string]map[string]bool {
	t.Helper()

	tables := make(map[string]map[string]bool)
	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return err
		}
		data, err := fs.ReadFile(migrationsFS, path)
		if err != nil {
			return err
		}
		for _, m := range createTableRE.FindAllStringSubmatch(string(data), -1) {
			cols := make(map[string]bool)
			for _, line := range strings.Split(m[2], "\n") {
				fields := strings.Fields(line)
				if len(fields) == 0 {
					continue
				}
				cols[fields[0]] = true
			}
			tables[m[1]] = cols
		}
		return nil
	})
	require.NoError(t, err)
	return tables
}

func TestSchema_CoversStoreQueries(t *testing.T) {
	tables := schemaColumns(t)

	// Column lists as written in each store's SQL.
	queries := map[string][]string{
		"auctions": {"id", "name", "start_at", "nomination_duration", "max_bid", "updated_at"},
		"lots":     {"id", "player_id", "player_name", "position", "start_delay", "nomination_duration"},
		"bids":     {"seq", "id", "lot_id", "bidder_id", "amount", "submitted_at"},
		"bid_log":  {"seq", "bid_id", "lot_id", "bidder_id", "amount", "submitted_at"},
	}

	for table, cols := range queries {
		ddl, ok := tables[table]
		require.True(t, ok, "table %s missing from migrations", table)
		for _, col := range cols {
			assert.True(t, ddl[col], fmt.Sprintf("%s.%s referenced by store but absent from schema", table, col))
		}
	}
}

func TestSchema_BidLogKeepsResetHistory(t *testing.T) {
	tables := schemaColumns(t)

	// The live ledger dedupes on the bid UUID; the audit log must not, so a
	// reset followed by new bids keeps every accepted entry.
	assert.True(t, tables["bids"]["id"])
	assert.True(t, tables["bid_log"]["bid_id"])
	assert.False(t, tables["bid_log"]["id"])
}
