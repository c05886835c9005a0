package reference

import (
	"os"
	"path/filepath"
	"testing"

	"slds/internal/config"
	"slds/internal/ids"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matches.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_NonOfficial(t *testing.T) {
	path := writeFile(t, "game_id,week,blue,red\n101.0,W1,AAA,BBB\n102,W1,CCC,DDD\n101,W2,AAA,CCC\n")
	league := &config.League{ColumnTypes: map[string]config.ColumnType{"game_id": config.TypeInt, "week": config.TypeString}}

	ref, err := Load(path, league)
	require.NoError(t, err)
	assert.Equal(t, []ids.GameID{ids.NewSimple(101), ids.NewSimple(102)}, ref.IDs())
	assert.Equal(t, "101", ref.Matches[0].Row["game_id"])
	assert.Equal(t, "W1", ref.Matches[0].Row["week"], "first occurrence wins")
}

func TestLoad_Official(t *testing.T) {
	path := writeFile(t, "game_id,tournament,hash\n1002,ESPORTSTMNT01,abc\n1003,ESPORTSTMNT01,def\n")
	ref, err := Load(path, &config.League{Official: true})
	require.NoError(t, err)
	assert.Equal(t, []ids.GameID{
		ids.NewComposite("1002", "ESPORTSTMNT01", "abc"),
		ids.NewComposite("1003", "ESPORTSTMNT01", "def"),
	}, ref.IDs())
}

func TestLoad_OfficialRequiresTournamentAndHash(t *testing.T) {
	path := writeFile(t, "game_id\n1002\n")
	_, err := Load(path, &config.League{Official: true})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), &config.League{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_BadTypedValue(t *testing.T) {
	path := writeFile(t, "game_id,flag\n1,maybe\n")
	league := &config.League{ColumnTypes: map[string]config.ColumnType{"flag": config.TypeBool}}
	_, err := Load(path, league)
	assert.ErrorIs(t, err, ErrBadValue)

	path = writeFile(t, "game_id\nabc\n")
	_, err = Load(path, &config.League{})
	assert.ErrorIs(t, err, ids.ErrInvalidID)
}

func TestLoad_Accounts(t *testing.T) {
	path := writeFile(t, "name,puuid\nA,p-1\nB,p-2\nA2,p-1\nC,\n")
	league := &config.League{IDSource: config.SourceAccounts, AccountColumn: "puuid"}

	ref, err := Load(path, league)
	require.NoError(t, err)
	assert.Empty(t, ref.Matches)
	assert.Equal(t, []string{"p-1", "p-2"}, ref.Accounts("puuid"))

	league.AccountColumn = "account_id"
	_, err = Load(path, league)
	assert.ErrorIs(t, err, ErrMissingColumn)
}
