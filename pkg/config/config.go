package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	EnvPrefix = "COURTBILL"
	APIKeyEnv = "EASYVEREIN_API_KEY"

	completionLayout = "2006-01-02"
)

type API struct {
	BaseURL  string        `mapstructure:"base_url"`
	Version  string        `mapstructure:"version"`
	Key      string        `mapstructure:"key"`
	PageSize int           `mapstructure:"page_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Files struct {
	Dir      string `mapstructure:"dir"`
	Bookings string `mapstructure:"bookings"`
	Roster   string `mapstructure:"roster"`
	Ledger   string `mapstructure:"ledger"`
	Encoding string `mapstructure:"encoding"`
}

// Groups are contact-details-group ids of the directory.
type Groups struct {
	Member  string `mapstructure:"member"`
	Guest   string `mapstructure:"guest"`
	Company string `mapstructure:"company"`
}

type Billing struct {
	SelectionAccount int64  `mapstructure:"selection_account"`
	BillingAccount   string `mapstructure:"billing_account"`
	ContactURL       string `mapstructure:"contact_url"`
}

type Config struct {
	API            API           `mapstructure:"api"`
	Files          Files         `mapstructure:"files"`
	Groups         Groups        `mapstructure:"groups"`
	Billing        Billing       `mapstructure:"billing"`
	CompletionDate time.Time     `mapstructure:"-"`
	DryRun         bool          `mapstructure:"dry_run"`
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay"`
	MetricsFile    string        `mapstructure:"metrics_file"`
	LogLevel       string        `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://hexa.easyverein.com/api/")
	v.SetDefault("api.version", "v2.0")
	v.SetDefault("api.page_size", 1000)
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("files.dir", ".")
	v.SetDefault("files.bookings", "getraenkeliste.csv")
	v.SetDefault("files.roster", "mitgliederliste.csv")
	v.SetDefault("files.ledger", "Gesamtuebersicht_getraenke.csv")
	v.SetDefault("files.encoding", "latin1")
	v.SetDefault("groups.member", "193181080")
	v.SetDefault("groups.guest", "187854580")
	v.SetDefault("groups.company", "193181175")
	v.SetDefault("billing.selection_account", 187408412)
	v.SetDefault("billing.billing_account", "https://easyverein.com/api/v2.0/billing-account/44134")
	v.SetDefault("billing.contact_url", "https://easyverein.com/api/v1.7/contact-details/")
	v.SetDefault("completion_date", "")
	v.SetDefault("dry_run", false)
	v.SetDefault("rate_limit_delay", "10s")
	v.SetDefault("metrics_file", "")
	v.SetDefault("log_level", "info")
}

// Build layers defaults, the optional config file, a .env file, COURTBILL_* variables
// and finally the flags that were set on the command line.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api.key", EnvPrefix+"_API_KEY", APIKeyEnv); err != nil {
		return nil, err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if s := strings.TrimSpace(v.GetString("completion_date")); s != "" {
		d, err := time.Parse(completionLayout, s)
		if err != nil {
			return nil, fmt.Errorf("invalid completion_date %q, want YYYY-MM-DD: %w", s, err)
		}
		cfg.CompletionDate = d
	}

	cfg.Files.Dir = ExpandHome(cfg.Files.Dir)
	cfg.MetricsFile = ExpandHome(cfg.MetricsFile)
	return &cfg, nil
}

// flagKeys maps config keys to the CLI flags that may override them.
var flagKeys = map[string]string{
	"files.dir":        "dir",
	"completion_date":  "completion-date",
	"dry_run":          "dry-run",
	"rate_limit_delay": "rate-limit-delay",
	"metrics_file":     "metrics-file",
	"log_level":        "log-level",
}

// Validate checks what a run against the API needs.
func (c *Config) Validate() error {
	if c.API.Key == "" {
		return fmt.Errorf("missing API key: set %s or api.key", APIKeyEnv)
	}
	if c.Groups.Member == "" || c.Groups.Guest == "" {
		return fmt.Errorf("groups.member and groups.guest are required")
	}
	if c.Billing.ContactURL == "" {
		return fmt.Errorf("billing.contact_url is required")
	}
	return nil
}

func (c *Config) BookingsPath() string {
	return c.path(c.Files.Bookings)
}

func (c *Config) RosterPath() string {
	return c.path(c.Files.Roster)
}

func (c *Config) LedgerPath() string {
	return c.path(c.Files.Ledger)
}

func (c *Config) path(name string) string {
	name = ExpandHome(name)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Files.Dir, name)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
