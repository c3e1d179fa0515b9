package directory

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lalder95/auctiond/internal/domain"
)

// Contracts feed column layout. The feed is positional; the header row is
// skipped and short rows are ignored.
const (
	colContractStatus = 14
	colActiveCurYear  = 15
	colDeadCurYear    = 24
	colTeamName       = 33
	contractsMinCols  = 34
)

// CSVCapConfig configures the league accounting feeds.
type CSVCapConfig struct {
	ContractsURL string
	FinesURL     string
	SeasonCap    decimal.Decimal
	Timeout      time.Duration
}

// CSVCapSource computes per-team cap headroom from the league's contracts and
// fines CSV feeds. Headroom is the season cap minus active salaries, dead
// money, and fines for the current year.
type CSVCapSource struct {
	cfg    CSVCapConfig
	names  map[string]string
	client *http.Client
	logger *slog.Logger
}

// NewCSVCapSource builds a cap source. names maps participant IDs to the team
// display names used in the feeds.
func NewCSVCapSource(cfg CSVCapConfig, members []Member, logger *slog.Logger) *CSVCapSource {
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.DisplayName
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CSVCapSource{
		cfg:    cfg,
		names:  names,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(slog.String("component", "capsource")),
	}
}

// Headroom returns the participant's remaining cap for the current year.
func (cs *CSVCapSource) Headroom(ctx context.Context, participantID string) (decimal.Decimal, error) {
	team, ok := cs.names[participantID]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}

	spend, err := cs.contractSpend(ctx, team)
	if err != nil {
		return decimal.Zero, err
	}

	fines, err := cs.teamFines(ctx, team)
	if err != nil {
		return decimal.Zero, err
	}

	return cs.cfg.SeasonCap.Sub(spend).Sub(fines), nil
}

// contractSpend sums current-year charges for one team. Active contracts
// charge the active column, everything else charges the dead-money column.
func (cs *CSVCapSource) contractSpend(ctx context.Context, team string) (decimal.Decimal, error) {
	rows, err := cs.fetch(ctx, cs.cfg.ContractsURL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("directory: contracts feed: %w", err)
	}

	total := decimal.Zero
	for _, row := range rows {
		if len(row) < contractsMinCols || row[colTeamName] != team {
			continue
		}
		col := colDeadCurYear
		if row[colContractStatus] == "Active" {
			col = colActiveCurYear
		}
		total = total.Add(parseAmount(row[col]))
	}
	return total, nil
}

// teamFines reads the current-year fine for one team. The fines feed is
// team,year1..year4. A team absent from the feed has no fines.
func (cs *CSVCapSource) teamFines(ctx context.Context, team string) (decimal.Decimal, error) {
	rows, err := cs.fetch(ctx, cs.cfg.FinesURL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("directory: fines feed: %w", err)
	}

	for _, row := range rows {
		if len(row) >= 2 && row[0] == team {
			return parseAmount(row[1]), nil
		}
	}
	return decimal.Zero, nil
}

func (cs *CSVCapSource) fetch(ctx context.Context, url string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := cs.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	var rows [][]string
	header := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			cs.logger.Warn("skipping malformed feed row",
				slog.String("url", url),
				slog.String("error", err.Error()),
			)
			continue
		}
		if header {
			header = false
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseAmount is lenient the way the feeds demand: blanks and junk count as
// zero rather than failing the whole computation.
func parseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var _ domain.CapSource = (*CSVCapSource)(nil)
