package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
api_key: ${SLDS_TEST_KEY}
workers: 2
leagues:
  slo:
    reference_file: data/slo/matches.csv
    column_types:
      game_id: int
      week: str
    dataset_csv: data/slo/slo.csv
    dataset_xlsx: data/slo/slo.xlsx
    games_dir: data/slo/games
    participant_name_columns: [p1, p2, p3, p4, p5, p6, p7, p8, p9, p10]
    team_columns: [blue, red]
    week_column: week
    custom: true
    date_timezone: Europe/Ljubljana
  lck:
    reference_file: data/lck/matches.csv
    dataset_csv: data/lck/lck.csv
    games_dir: data/lck/games
    official: true
    region: kr
  soloq:
    reference_file: data/soloq/accounts.csv
    dataset_csv: data/soloq/soloq.csv
    games_dir: data/soloq/games
    id_source: accounts
    account_column: puuid
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("SLDS_TEST_KEY", "RGAPI-test")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "RGAPI-test", cfg.APIKey)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, DefaultFetchRate, cfg.FetchRate)
	assert.Equal(t, DefaultStaticDataDir, cfg.StaticDataDir)
	assert.Equal(t, []string{"LCK", "SLO", "SOLOQ"}, cfg.LeagueKeys())

	slo, err := cfg.League("slo")
	require.NoError(t, err)
	assert.Equal(t, "SLO", slo.Key)
	assert.Equal(t, DefaultRegion, slo.Region)
	assert.Equal(t, SourceReference, slo.IDSource)
	assert.Equal(t, []string{"gameId", "participantId"}, slo.IdentityColumns)
	assert.Equal(t, []string{"gameId"}, slo.DatasetIDColumns())
	assert.Equal(t, StandardPositions, slo.Positions())
	assert.Equal(t, "participants_slo", slo.Table)
	assert.Equal(t, TypeInt, slo.ColumnTypes["game_id"])
	loc, err := slo.DateLocation()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Ljubljana", loc.String())

	lck, err := cfg.League("LCK")
	require.NoError(t, err)
	assert.True(t, lck.Official)
	loc, err = lck.DateLocation()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
	assert.Equal(t, "KR", lck.Region)
	assert.Equal(t, []string{"gameId", "realm", "participantId"}, lck.IdentityColumns)
	assert.Equal(t, []string{"gameId", "realm"}, lck.DatasetIDColumns())

	soloq, err := cfg.League("soloq")
	require.NoError(t, err)
	assert.Equal(t, SourceAccounts, soloq.IDSource)
	assert.Equal(t, DefaultMatchesPerAccount, soloq.MatchesPerAccount)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no leagues", "workers: 1\n"},
		{"missing reference file", `
leagues:
  x:
    dataset_csv: a.csv
    games_dir: g
`},
		{"bad column type", `
leagues:
  x:
    reference_file: r.csv
    dataset_csv: a.csv
    games_dir: g
    column_types: {game_id: integer}
`},
		{"accounts without column", `
leagues:
  x:
    reference_file: r.csv
    dataset_csv: a.csv
    games_dir: g
    id_source: accounts
`},
		{"unknown timezone", `
leagues:
  x:
    reference_file: r.csv
    dataset_csv: a.csv
    games_dir: g
    date_timezone: Mars/Olympus
`},
		{"team columns not a pair", `
leagues:
  x:
    reference_file: r.csv
    dataset_csv: a.csv
    games_dir: g
    team_columns: [blue]
`},
		{"short position columns", `
leagues:
  x:
    reference_file: r.csv
    dataset_csv: a.csv
    games_dir: g
    position_columns: [a, b]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLeague_Unknown(t *testing.T) {
	t.Setenv("SLDS_TEST_KEY", "k")
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	_, err = cfg.League("LEC")
	assert.ErrorIs(t, err, ErrUnknownLeague)
}

func TestSuggest(t *testing.T) {
	t.Setenv("SLDS_TEST_KEY", "k")
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Contains(t, cfg.Suggest("sl"), "SLO")
	assert.Contains(t, cfg.Suggest("LKC"), "LCK")
	assert.Empty(t, cfg.Suggest(""))
}

func TestWithRegion_DoesNotMutate(t *testing.T) {
	l := &League{Key: "SLO", Region: "EUW1"}
	cp := l.WithRegion("na1")
	assert.Equal(t, "NA1", cp.Region)
	assert.Equal(t, "EUW1", l.Region)
	assert.Equal(t, "EUW1", l.WithRegion("").Region)
}
