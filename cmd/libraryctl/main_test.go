package main

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/library-server/internal/store"
)

// run executes libraryctl against the database in dir and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	base := []string{
		"--db-path", filepath.Join(dir, "library.db"),
		"--search-path", filepath.Join(dir, "search"),
		"--env-file", filepath.Join(dir, "missing.env"),
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append(base, args...))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestSeedAndStats(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "seed")
	require.NoError(t, err)

	var seeded SeedResult
	require.NoError(t, json.Unmarshal([]byte(out), &seeded))
	assert.Equal(t, SeedResult{Libraries: 3, Books: 9, Users: 3, Loans: 2, Reservations: 1}, seeded)

	_, err = run(t, dir, "seed")
	assert.ErrorContains(t, err, "--force")

	out, err = run(t, dir, "stats")
	require.NoError(t, err)

	var stats []store.LibraryStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, 3)
	assert.Equal(t, "Busan Citizens Library", stats[0].Name, "ordered by name")

	jongno := stats[2]
	assert.Equal(t, "Jongno Public Library", jongno.Name)
	assert.Equal(t, 3, jongno.Books)
	assert.Equal(t, 6, jongno.TotalCopies)
	assert.Equal(t, 5, jongno.AvailableCopies)
	assert.Equal(t, 1, jongno.ActiveLoans)
	assert.Equal(t, 1, jongno.PendingReservations)
}

func TestReindex(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "seed")
	require.NoError(t, err)

	out, err := run(t, dir, "reindex")
	require.NoError(t, err)

	var result ReindexResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 9, result.Indexed)

	_, err = run(t, dir, "--no-search", "reindex")
	assert.ErrorContains(t, err, "disabled")
}

func TestSweepAndOverdueOnFreshData(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "seed")
	require.NoError(t, err)

	out, err := run(t, dir, "sweep")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	out, err = run(t, dir, "overdue")
	require.NoError(t, err)

	var list struct {
		Loans        []map[string]any `json:"loans"`
		OverdueCount int              `json:"overdue_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Empty(t, list.Loans)
	assert.Zero(t, list.OverdueCount)
}

func TestDaysLate(t *testing.T) {
	due := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, daysLate(due, due.Add(-time.Hour)))
	assert.Equal(t, 0, daysLate(due, due.Add(23*time.Hour)))
	assert.Equal(t, 1, daysLate(due, due.Add(25*time.Hour)))
	assert.Equal(t, 10, daysLate(due, due.AddDate(0, 0, 10)))
}

func TestPrinterUsesJSONOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)
	assert.True(t, p.json)

	require.NoError(t, p.emit(map[string]int{"n": 1}, nil))
	assert.JSONEq(t, `{"n":1}`, buf.String())
}

func TestConfigArgs(t *testing.T) {
	a := &app{envFile: ".env", logLevel: "warn", dbPath: "/tmp/x.db", noSearch: true}
	assert.Equal(t, []string{
		"--env-file", ".env",
		"--log-level", "warn",
		"--db-path", "/tmp/x.db",
		"--search-enabled", "false",
	}, a.configArgs())
}
