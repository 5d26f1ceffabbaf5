package cli

import (
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/lnup/eventscout/internal/aggregate"
	"github.com/lnup/eventscout/internal/discovery"
	"github.com/lnup/eventscout/internal/model"
	"github.com/lnup/eventscout/internal/source"
	"github.com/lnup/eventscout/internal/verify"
)

// loadConfig merges defaults, the config file and environment variables.
// Provider credentials also fall back to their conventional env var names
// so existing shells keep working.
func loadConfig() *model.Config {
	cfg := model.DefaultConfig()

	if v := viper.GetDuration("http.timeout"); v > 0 {
		cfg.HTTP.Timeout = v
	}
	if v := viper.GetString("http.user_agent"); v != "" {
		cfg.HTTP.UserAgent = v
	}
	if v := viper.GetInt64("http.max_body_bytes"); v > 0 {
		cfg.HTTP.MaxBodyBytes = v
	}
	cfg.HTTP.HTTPProxy = viper.GetString("http.http_proxy")
	cfg.HTTP.HTTPSProxy = viper.GetString("http.https_proxy")

	cfg.Providers.TicketmasterAPIKey = firstNonEmpty(
		viper.GetString("providers.ticketmaster_api_key"),
		os.Getenv("TICKETMASTER_API_KEY"))
	cfg.Providers.EventbriteAPIKey = firstNonEmpty(
		viper.GetString("providers.eventbrite_api_key"),
		os.Getenv("EVENTBRITE_API_KEY"))
	cfg.Providers.SeatgeekClientID = firstNonEmpty(
		viper.GetString("providers.seatgeek_client_id"),
		os.Getenv("SEATGEEK_CLIENT_ID"))

	cfg.AI.Provider = viper.GetString("ai.provider")
	cfg.AI.Model = viper.GetString("ai.model")
	cfg.AI.BaseURL = viper.GetString("ai.base_url")
	switch cfg.AI.Provider {
	case "gemini":
		cfg.AI.APIKey = firstNonEmpty(
			viper.GetString("ai.api_key"), os.Getenv("GEMINI_API_KEY"))
	case "openai":
		cfg.AI.APIKey = firstNonEmpty(
			viper.GetString("ai.api_key"), os.Getenv("OPENAI_API_KEY"))
	}
	if v := viper.GetFloat64("ai.min_confidence"); v > 0 {
		cfg.AI.MinConfidence = v
	}
	if v := viper.GetInt("ai.horizon_days"); v > 0 {
		cfg.AI.HorizonDays = v
	}
	if viper.IsSet("ai.strict") {
		cfg.AI.Strict = viper.GetBool("ai.strict")
	}
	if viper.IsSet("ai.verify_sources") {
		cfg.AI.VerifySources = viper.GetBool("ai.verify_sources")
	}
	if v := viper.GetInt("ai.timeout"); v > 0 {
		cfg.AI.Timeout = v
	}

	if v := viper.GetString("scan.store_path"); v != "" {
		cfg.Scan.StorePath = v
	}
	if v := viper.GetInt("scan.max_pages"); v > 0 {
		cfg.Scan.MaxPages = v
	}
	if v := viper.GetInt("scan.page_size"); v > 0 {
		cfg.Scan.PageSize = v
	}
	if v := viper.GetDuration("scan.city_delay"); v > 0 {
		cfg.Scan.CityDelay = v
	}
	if v := viper.GetDuration("scan.lease_ttl"); v > 0 {
		cfg.Scan.LeaseTTL = v
	}

	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if v := viper.GetDuration("cache.ttl"); v > 0 {
		cfg.Cache.TTL = v
	}

	cfg.Output.Verbose = verbose
	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// buildConnectors creates one connector per configured structured provider.
// Connectors without credentials are still created; they no-op on fetch.
func buildConnectors(cfg *model.Config) []aggregate.Connector {
	client := source.NewHTTPClient(cfg.HTTP)
	return []aggregate.Connector{
		source.NewTicketmaster(cfg.Providers.TicketmasterAPIKey, client, cfg.HTTP,
			source.WithTicketmasterPaging(cfg.Scan.PageSize, cfg.Scan.MaxPages)),
		source.NewEventbrite(cfg.Providers.EventbriteAPIKey, client, cfg.HTTP),
		source.NewSeatgeek(cfg.Providers.SeatgeekClientID, client, cfg.HTTP),
	}
}

// buildDiscoverer wires the generative connector, or returns nil when no AI
// provider is configured.
func buildDiscoverer(cfg *model.Config) (*discovery.Discoverer, error) {
	dcfg := discovery.Config{
		Provider:      cfg.AI.Provider,
		Model:         cfg.AI.Model,
		APIKey:        cfg.AI.APIKey,
		BaseURL:       cfg.AI.BaseURL,
		Timeout:       cfg.AI.Timeout,
		MinConfidence: cfg.AI.MinConfidence,
		HorizonDays:   cfg.AI.HorizonDays,
		Strict:        cfg.AI.Strict,
	}
	provider, err := discovery.NewProvider(dcfg)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}

	var checker discovery.SourceChecker
	if cfg.AI.VerifySources {
		checker = verify.NewChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	}
	return discovery.NewDiscoverer(provider, dcfg, checker, cfg.Output.Verbose), nil
}

// leaseTTLOrDefault guards against a zero TTL locking the store forever.
func leaseTTLOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 30 * time.Minute
	}
	return ttl
}
