package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CategoryRule maps a category name to the keyword set that claims a record
// for it. The tables are market heuristics, so they live in config rather
// than code.
type CategoryRule struct {
	Name string   `yaml:"name" json:"name"`
	Any  []string `yaml:"any" json:"any"`
}

// AreaRule maps an area name to its constituent categories.
type AreaRule struct {
	Name       string   `yaml:"name" json:"name"`
	Categories []string `yaml:"categories" json:"categories"`
}

type SourceToggle struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	Cache struct {
		Backend      string `yaml:"backend" json:"backend"` // sqlite | memory
		PurgeSeconds int    `yaml:"purge_seconds" json:"purge_seconds"`
	} `yaml:"cache" json:"cache"`

	Provider struct {
		Endpoint             string   `yaml:"endpoint" json:"endpoint"`
		APIKeyEnv            string   `yaml:"api_key_env" json:"api_key_env"`
		KeyringAccount       string   `yaml:"keyring_account" json:"keyring_account"`
		MaxRequestsPerSecond float64  `yaml:"max_requests_per_second" json:"max_requests_per_second"`
		MonthlyQuota         int      `yaml:"monthly_quota" json:"monthly_quota"`
		TimeoutSeconds       int      `yaml:"timeout_seconds" json:"timeout_seconds"`
		Domains              []string `yaml:"domains" json:"domains"`
		Keywords             []string `yaml:"keywords" json:"keywords"`
	} `yaml:"provider" json:"provider"`

	Fallback struct {
		Endpoint       string `yaml:"endpoint" json:"endpoint"`
		TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	} `yaml:"fallback" json:"fallback"`

	Sources struct {
		GobMX    SourceToggle `yaml:"gob_mx" json:"gob_mx"`
		CruzRoja SourceToggle `yaml:"cruz_roja" json:"cruz_roja"`
		Techo    SourceToggle `yaml:"techo" json:"techo"`
		UNOnline SourceToggle `yaml:"un_online" json:"un_online"`
		Provider SourceToggle `yaml:"provider" json:"provider"`
		Email    struct {
			Enabled          bool     `yaml:"enabled" json:"enabled"`
			IMAPHost         string   `yaml:"imap_host" json:"imap_host"`
			IMAPPort         int      `yaml:"imap_port" json:"imap_port"`
			Username         string   `yaml:"username" json:"username"`
			Mailbox          string   `yaml:"mailbox" json:"mailbox"`
			SearchSubjectAny []string `yaml:"search_subject_any" json:"search_subject_any"`
			MaxMessages      int      `yaml:"max_messages" json:"max_messages"`
		} `yaml:"email" json:"email"`
	} `yaml:"sources" json:"sources"`

	Collect struct {
		IntervalSeconds int      `yaml:"interval_seconds" json:"interval_seconds"`
		Areas           []string `yaml:"areas" json:"areas"`
		Location        string   `yaml:"location" json:"location"`
		MinPer          int      `yaml:"min_per" json:"min_per"`
		SafeOnly        bool     `yaml:"safe_only" json:"safe_only"`
	} `yaml:"collect" json:"collect"`

	Region struct {
		Tokens []string `yaml:"tokens" json:"tokens"`
	} `yaml:"region" json:"region"`

	TrustedOrigins []string `yaml:"trusted_origins" json:"trusted_origins"`

	Categories []CategoryRule `yaml:"categories" json:"categories"`
	Areas      []AreaRule     `yaml:"areas" json:"areas"`

	Prompt struct {
		Locations    []string `yaml:"locations" json:"locations"`
		Fields       []string `yaml:"fields" json:"fields"`
		Needs        []string `yaml:"needs" json:"needs"`
		Availability []string `yaml:"availability" json:"availability"`
	} `yaml:"prompt" json:"prompt"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) ProviderTimeout() time.Duration {
	if c.Provider.TimeoutSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

func (c Config) FallbackTimeout() time.Duration {
	if c.Fallback.TimeoutSeconds <= 0 {
		return 12 * time.Second
	}
	return time.Duration(c.Fallback.TimeoutSeconds) * time.Second
}

// CategoryTable flattens the rules into the lookup shape normalization wants.
func (c Config) CategoryTable() map[string][]string {
	out := make(map[string][]string, len(c.Categories))
	for _, r := range c.Categories {
		out[r.Name] = r.Any
	}
	return out
}

// AreaTable maps area name to constituent categories.
func (c Config) AreaTable() map[string][]string {
	out := make(map[string][]string, len(c.Areas))
	for _, r := range c.Areas {
		out[r.Name] = r.Categories
	}
	return out
}
