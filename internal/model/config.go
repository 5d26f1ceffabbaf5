package model

import "time"

// Config is the full runtime configuration tree. Values come from defaults,
// the config file, EVENTSCOUT_* environment variables, and CLI flags, in
// ascending priority.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Providers ProvidersConfig `yaml:"providers"`
	AI        AIConfig        `yaml:"ai"`
	Scan      ScanConfig      `yaml:"scan"`
	Cache     CacheConfig     `yaml:"cache"`
	Output    OutputConfig    `yaml:"output"`
}

// HTTPConfig controls the shared HTTP client used by all connectors.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy"`
}

// ProvidersConfig holds structured provider credentials. An empty credential
// silently disables that connector; it is never a startup failure.
type ProvidersConfig struct {
	TicketmasterAPIKey string `yaml:"ticketmaster_api_key"`
	EventbriteAPIKey   string `yaml:"eventbrite_api_key"`
	SeatgeekClientID   string `yaml:"seatgeek_client_id"`
}

// AIConfig configures the generative discovery connector.
type AIConfig struct {
	// Provider name: "gemini", "openai", "" (disabled).
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	// BaseURL overrides the provider endpoint (used by tests).
	BaseURL string `yaml:"base_url"`
	// MinConfidence is the acceptance threshold for discovered events.
	MinConfidence float64 `yaml:"min_confidence"`
	// HorizonDays bounds how far into the future discovered events may lie.
	HorizonDays int `yaml:"horizon_days"`
	// Strict requires every discovered event to cite a source URL.
	Strict bool `yaml:"strict"`
	// VerifySources additionally probes each cited URL for reachability.
	VerifySources bool `yaml:"verify_sources"`
	Timeout       int  `yaml:"timeout"` // seconds
}

// ScanConfig tunes the recurring batch job.
type ScanConfig struct {
	StorePath string `yaml:"store_path"`
	// MaxPages bounds the nationwide structured refresh.
	MaxPages int `yaml:"max_pages"`
	PageSize int `yaml:"page_size"`
	// CityDelay is the pause between AI city scans.
	CityDelay time.Duration `yaml:"city_delay"`
	// LeaseTTL bounds how long a crashed run can block the next one.
	LeaseTTL time.Duration `yaml:"lease_ttl"`
}

// CacheConfig controls the in-process result cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// OutputConfig controls CLI output.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "eventscout/0.1 (+https://github.com/lnup/eventscout)",
			MaxBodyBytes: 4_000_000,
		},
		AI: AIConfig{
			Provider:      "",
			Model:         "",
			MinConfidence: 0.5,
			HorizonDays:   14,
			Strict:        false,
			VerifySources: false,
			Timeout:       60,
		},
		Scan: ScanConfig{
			StorePath: "eventscout.db",
			MaxPages:  5,
			PageSize:  200,
			CityDelay: time.Second,
			LeaseTTL:  30 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
	}
}
