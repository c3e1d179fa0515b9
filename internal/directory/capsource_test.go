package directory

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalder95/auctiond/internal/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// contractRow builds one positional contracts-feed row with the given team,
// status, and current-year amounts in their real column positions.
func contractRow(team, status, active, dead string) string {
	row := make([]string, contractsMinCols)
	row[colContractStatus] = status
	row[colActiveCurYear] = active
	row[colDeadCurYear] = dead
	row[colTeamName] = team
	return strings.Join(row, ",")
}

func feedHeader() string {
	cols := make([]string, contractsMinCols)
	for i := range cols {
		cols[i] = "h"
	}
	return strings.Join(cols, ",")
}

func serveCSV(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCSVCapSource_Headroom(t *testing.T) {
	contracts := strings.Join([]string{
		feedHeader(),
		contractRow("Team A", "Active", "100.5", "0"),
		contractRow("Team A", "Active", "49.5", "0"),
		// Cut contract charges the dead-money column.
		contractRow("Team A", "Cut", "0", "20"),
		// Junk amounts count as zero, not an error.
		contractRow("Team A", "Active", "n/a", "0"),
		// Other teams' rows are ignored.
		contractRow("Team B", "Active", "250", "0"),
		// Short rows are skipped outright.
		"Team A,Active,5",
	}, "\n")

	fines := strings.Join([]string{
		"team,year1,year2,year3,year4",
		"Team A,10,0,0,0",
		"Team B,25,0,0,0",
	}, "\n")

	contractsSrv := serveCSV(t, contracts)
	finesSrv := serveCSV(t, fines)

	cs := NewCSVCapSource(CSVCapConfig{
		ContractsURL: contractsSrv.URL,
		FinesURL:     finesSrv.URL,
		SeasonCap:    decimal.NewFromInt(300),
		Timeout:      5 * time.Second,
	}, []Member{
		{ID: "team-a", DisplayName: "Team A"},
		{ID: "team-b", DisplayName: "Team B"},
	}, discard)

	// 300 - (100.5 + 49.5 active) - (20 dead) - (10 fines) = 120
	headroom, err := cs.Headroom(context.Background(), "team-a")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(120).Equal(headroom), "got %s", headroom)

	// 300 - 250 - 25 = 25
	headroom, err = cs.Headroom(context.Background(), "team-b")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(headroom), "got %s", headroom)
}

func TestCSVCapSource_NoFinesRow(t *testing.T) {
	contractsSrv := serveCSV(t, strings.Join([]string{
		feedHeader(),
		contractRow("Team A", "Active", "40", "0"),
	}, "\n"))
	finesSrv := serveCSV(t, "team,year1,year2,year3,year4\nTeam B,25,0,0,0")

	cs := NewCSVCapSource(CSVCapConfig{
		ContractsURL: contractsSrv.URL,
		FinesURL:     finesSrv.URL,
		SeasonCap:    decimal.NewFromInt(300),
	}, []Member{{ID: "team-a", DisplayName: "Team A"}}, discard)

	headroom, err := cs.Headroom(context.Background(), "team-a")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(260).Equal(headroom), "got %s", headroom)
}

func TestCSVCapSource_UnknownParticipant(t *testing.T) {
	cs := NewCSVCapSource(CSVCapConfig{SeasonCap: decimal.NewFromInt(300)}, nil, discard)

	_, err := cs.Headroom(context.Background(), "team-z")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCSVCapSource_FeedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cs := NewCSVCapSource(CSVCapConfig{
		ContractsURL: srv.URL,
		FinesURL:     srv.URL,
		SeasonCap:    decimal.NewFromInt(300),
	}, []Member{{ID: "team-a", DisplayName: "Team A"}}, discard)

	_, err := cs.Headroom(context.Background(), "team-a")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "contracts feed")
}
