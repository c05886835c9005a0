package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWorkers           = 4
	DefaultFetchRate         = 10.0
	DefaultRegion            = "EUW1"
	DefaultMatchesPerAccount = 20
	DefaultStaticDataDir     = "data/static"
)

// IDSource tells where a league's match ids come from
type IDSource string

const (
	// SourceReference reads game ids from the league's reference file
	SourceReference IDSource = "reference"
	// SourceAccounts crawls recent Solo Queue matches of the accounts listed in the reference file
	SourceAccounts IDSource = "accounts"
)

// ColumnType is the declared type of a reference file column
type ColumnType string

const (
	TypeInt    ColumnType = "int"
	TypeFloat  ColumnType = "float"
	TypeString ColumnType = "str"
	TypeBool   ColumnType = "bool"
)

// StandardPositions is used when a league does not override positions per match
var StandardPositions = []string{"TOP", "JUNGLE", "MID", "BOT", "SUPPORT"}

var ErrUnknownLeague = errors.New("unknown league")

var validate = validator.New()

// Config is the process configuration, built once at startup and passed
// explicitly to every component
type Config struct {
	APIKey        string             `yaml:"api_key"`
	StaticDataDir string             `yaml:"static_data_dir"`
	Workers       int                `yaml:"workers" validate:"gte=0,lte=64"`
	FetchRate     float64            `yaml:"fetch_rate" validate:"gte=0"`
	DatabaseURL   string             `yaml:"database_url"`
	MongoURI      string             `yaml:"mongo_uri"`
	MongoDatabase string             `yaml:"mongo_database"`
	WebhookURL    string             `yaml:"webhook_url" validate:"omitempty,url"`
	Leagues       map[string]*League `yaml:"leagues" validate:"required,min=1,dive,required"`
}

// League holds the static parameters of one league. Behavior differences
// between leagues are expressed here, never as branches on the league name.
type League struct {
	Key string `yaml:"-"`

	ReferenceFile string                `yaml:"reference_file" validate:"required"`
	ColumnTypes   map[string]ColumnType `yaml:"column_types" validate:"dive,oneof=int float str bool"`
	DatasetCSV    string                `yaml:"dataset_csv" validate:"required"`
	DatasetXLSX   string                `yaml:"dataset_xlsx"`
	GamesDir      string                `yaml:"games_dir" validate:"required"`
	Table         string                `yaml:"table"`

	Official bool   `yaml:"official"`
	Region   string `yaml:"region"`
	// DateTimezone names the zone of raw file dates, UTC when empty
	DateTimezone string `yaml:"date_timezone" validate:"omitempty,timezone"`

	IDSource          IDSource `yaml:"id_source" validate:"omitempty,oneof=reference accounts"`
	AccountColumn     string   `yaml:"account_column" validate:"required_if=IDSource accounts"`
	MatchesPerAccount int      `yaml:"matches_per_account" validate:"gte=0,lte=100"`

	// Conversion capabilities
	PositionColumns        []string `yaml:"position_columns"`
	ParticipantNameColumns []string `yaml:"participant_name_columns"`
	TeamColumns            []string `yaml:"team_columns" validate:"omitempty,len=2"`
	WeekColumn             string   `yaml:"week_column"`
	Custom                 bool     `yaml:"custom"`

	// IdentityColumns is the row identity inside the dataset
	IdentityColumns []string `yaml:"identity_columns"`
}

// Load reads the YAML configuration, expanding ${VAR} references from the
// environment, applies defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes an already expanded YAML document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	normalized := make(map[string]*League, len(cfg.Leagues))
	for key, league := range cfg.Leagues {
		if league == nil {
			continue
		}
		k := strings.ToUpper(strings.TrimSpace(key))
		league.Key = k
		league.applyDefaults()
		normalized[k] = league
	}
	cfg.Leagues = normalized
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnv loads the first .env file found among paths
func LoadEnv(paths ...string) string {
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	log.Println("[Config] No .env file found, using environment variables")
	return ""
}

func (c *Config) applyDefaults() {
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.FetchRate == 0 {
		c.FetchRate = DefaultFetchRate
	}
	if c.StaticDataDir == "" {
		c.StaticDataDir = DefaultStaticDataDir
	}
	if c.MongoDatabase == "" {
		c.MongoDatabase = "slds"
	}
	c.APIKey = strings.Trim(strings.TrimSpace(c.APIKey), "\"")
}

func (l *League) applyDefaults() {
	if l.Region == "" {
		l.Region = DefaultRegion
	}
	l.Region = strings.ToUpper(l.Region)
	if l.IDSource == "" {
		l.IDSource = SourceReference
	}
	if l.MatchesPerAccount == 0 {
		l.MatchesPerAccount = DefaultMatchesPerAccount
	}
	if len(l.IdentityColumns) == 0 {
		l.IdentityColumns = []string{"gameId", "participantId"}
		if l.Official {
			l.IdentityColumns = []string{"gameId", "realm", "participantId"}
		}
	}
	if l.Table == "" {
		l.Table = "participants_" + strings.ToLower(l.Key)
	}
}

// Validate checks struct constraints and cross-field rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, league := range c.Leagues {
		if len(league.PositionColumns) != 0 && len(league.PositionColumns) != 10 {
			return fmt.Errorf("invalid config: league %s: position_columns needs 10 entries, got %d",
				league.Key, len(league.PositionColumns))
		}
		if len(league.ParticipantNameColumns) != 0 && len(league.ParticipantNameColumns) != 10 {
			return fmt.Errorf("invalid config: league %s: participant_name_columns needs 10 entries, got %d",
				league.Key, len(league.ParticipantNameColumns))
		}
	}
	return nil
}

// League looks a league up by key, case-insensitively
func (c *Config) League(key string) (*League, error) {
	league, ok := c.Leagues[strings.ToUpper(strings.TrimSpace(key))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLeague, key)
	}
	return league, nil
}

// LeagueKeys returns the configured league keys in sorted order
func (c *Config) LeagueKeys() []string {
	keys := make([]string, 0, len(c.Leagues))
	for k := range c.Leagues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Suggest returns configured league keys resembling name, closest first
func (c *Config) Suggest(name string) []string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return nil
	}
	keys := c.LeagueKeys()
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))

	matches := fuzzy.RankFindNormalizedFold(name, keys)
	sort.Sort(matches)
	for _, m := range matches {
		seen[m.Target] = true
		out = append(out, m.Target)
	}
	// typos that reorder letters never match as a subsequence
	for _, k := range keys {
		if !seen[k] && fuzzy.LevenshteinDistance(name, k) <= 2 {
			out = append(out, k)
		}
	}
	return out
}

// WithRegion returns a copy of the league bound to another platform
func (l *League) WithRegion(region string) *League {
	cp := *l
	if region != "" {
		cp.Region = strings.ToUpper(region)
	}
	return &cp
}

// Positions returns the fixed position labels, nil when positions come from
// reference columns
func (l *League) Positions() []string {
	if len(l.PositionColumns) > 0 {
		return nil
	}
	return StandardPositions
}

// DateLocation returns the zone raw file dates are rendered in
func (l *League) DateLocation() (*time.Location, error) {
	if l.DateTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(l.DateTimezone)
	if err != nil {
		return nil, fmt.Errorf("league %s: %w", l.Key, err)
	}
	return loc, nil
}

// DatasetIDColumns are the dataset columns that identify a match
func (l *League) DatasetIDColumns() []string {
	if l.Official {
		return []string{"gameId", "realm"}
	}
	return []string{"gameId"}
}
