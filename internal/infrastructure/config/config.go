package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/skeo/stocksync/internal/domain/stock"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Store    StoreConfig
	Sync     SyncConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Channels ChannelsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// StoreConfig holds the local snapshot store settings
type StoreConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// SyncConfig holds reconciliation engine settings
type SyncConfig struct {
	// DefaultChannel is the canonical source of truth
	DefaultChannel string
	// ReadOnly makes every pass a dry run
	ReadOnly bool
	// FetchConcurrency bounds parallel channel fetches
	FetchConcurrency int
	// CallTimeout applies to each remote call
	CallTimeout time.Duration
	// MaxFetchRetries bounds in-pass retries of transient failures
	MaxFetchRetries int
	// Edges enables explicit marketplace-to-marketplace propagation,
	// e.g. "LAZADA->SHOPEE"
	Edges []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds the diagnostics server configuration
type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ChannelsConfig holds per-channel adapter settings
type ChannelsConfig struct {
	Opencart    OpencartConfig
	Lazada      LazadaConfig
	Shopee      ShopeeConfig
	Woocommerce WoocommerceConfig
}

// OpencartConfig holds Opencart storefront settings
type OpencartConfig struct {
	Enabled      bool
	Domain       string
	Username     string
	Password     string
	RateLimit    float64
	RateBurst    int
	SkipUnlisted bool
}

// LazadaConfig holds Lazada Open API settings
type LazadaConfig struct {
	Enabled      bool
	Domain       string
	AuthDomain   string
	AppKey       string
	AppSecret    string
	RedirectURL  string
	RateLimit    float64
	RateBurst    int
	SkipUnlisted bool
}

// ShopeeConfig holds Shopee partner API settings
type ShopeeConfig struct {
	Enabled      bool
	Domain       string
	PartnerID    int64
	PartnerKey   string
	ShopID       int64
	RedirectURL  string
	RateLimit    float64
	RateBurst    int
	SkipUnlisted bool
}

// WoocommerceConfig holds WooCommerce REST API settings
type WoocommerceConfig struct {
	Enabled        bool
	Domain         string
	ConsumerKey    string
	ConsumerSecret string
	RateLimit      float64
	RateBurst      int
	SkipUnlisted   bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOCKSYNC_ prefix (e.g. STOCKSYNC_CHANNELS_LAZADA_APPSECRET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/stocksync")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("STOCKSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Store: StoreConfig{
			Path:        v.GetString("store.path"),
			BusyTimeout: v.GetDuration("store.busy_timeout"),
		},
		Sync: SyncConfig{
			DefaultChannel:   v.GetString("sync.default_channel"),
			ReadOnly:         v.GetBool("sync.read_only"),
			FetchConcurrency: v.GetInt("sync.fetch_concurrency"),
			CallTimeout:      v.GetDuration("sync.call_timeout"),
			MaxFetchRetries:  v.GetInt("sync.max_fetch_retries"),
			Edges:            v.GetStringSlice("sync.edges"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			Port:         v.GetString("http.port"),
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
		},
		Channels: ChannelsConfig{
			Opencart: OpencartConfig{
				Enabled:      v.GetBool("channels.opencart.enabled"),
				Domain:       v.GetString("channels.opencart.domain"),
				Username:     v.GetString("channels.opencart.username"),
				Password:     v.GetString("channels.opencart.password"),
				RateLimit:    v.GetFloat64("channels.opencart.rate_limit"),
				RateBurst:    v.GetInt("channels.opencart.rate_burst"),
				SkipUnlisted: v.GetBool("channels.opencart.skip_unlisted"),
			},
			Lazada: LazadaConfig{
				Enabled:      v.GetBool("channels.lazada.enabled"),
				Domain:       v.GetString("channels.lazada.domain"),
				AuthDomain:   v.GetString("channels.lazada.auth_domain"),
				AppKey:       v.GetString("channels.lazada.app_key"),
				AppSecret:    v.GetString("channels.lazada.app_secret"),
				RedirectURL:  v.GetString("channels.lazada.redirect_url"),
				RateLimit:    v.GetFloat64("channels.lazada.rate_limit"),
				RateBurst:    v.GetInt("channels.lazada.rate_burst"),
				SkipUnlisted: v.GetBool("channels.lazada.skip_unlisted"),
			},
			Shopee: ShopeeConfig{
				Enabled:      v.GetBool("channels.shopee.enabled"),
				Domain:       v.GetString("channels.shopee.domain"),
				PartnerID:    v.GetInt64("channels.shopee.partner_id"),
				PartnerKey:   v.GetString("channels.shopee.partner_key"),
				ShopID:       v.GetInt64("channels.shopee.shop_id"),
				RedirectURL:  v.GetString("channels.shopee.redirect_url"),
				RateLimit:    v.GetFloat64("channels.shopee.rate_limit"),
				RateBurst:    v.GetInt("channels.shopee.rate_burst"),
				SkipUnlisted: v.GetBool("channels.shopee.skip_unlisted"),
			},
			Woocommerce: WoocommerceConfig{
				Enabled:        v.GetBool("channels.woocommerce.enabled"),
				Domain:         v.GetString("channels.woocommerce.domain"),
				ConsumerKey:    v.GetString("channels.woocommerce.consumer_key"),
				ConsumerSecret: v.GetString("channels.woocommerce.consumer_secret"),
				RateLimit:      v.GetFloat64("channels.woocommerce.rate_limit"),
				RateBurst:      v.GetInt("channels.woocommerce.rate_burst"),
				SkipUnlisted:   v.GetBool("channels.woocommerce.skip_unlisted"),
			},
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "stocksync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "stocksync.db"
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = 5 * time.Second
	}
	if cfg.Sync.DefaultChannel == "" {
		cfg.Sync.DefaultChannel = stock.ChannelCodeOpencart.String()
	}
	if cfg.Sync.FetchConcurrency == 0 {
		cfg.Sync.FetchConcurrency = 4
	}
	if cfg.Sync.CallTimeout == 0 {
		cfg.Sync.CallTimeout = 30 * time.Second
	}
	if cfg.Sync.MaxFetchRetries == 0 {
		cfg.Sync.MaxFetchRetries = 3
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	// Logs go to stderr so command output on stdout stays clean
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = "8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.Channels.Lazada.Domain == "" {
		cfg.Channels.Lazada.Domain = "https://api.lazada.com/rest"
	}
	if cfg.Channels.Lazada.AuthDomain == "" {
		cfg.Channels.Lazada.AuthDomain = "https://auth.lazada.com/rest"
	}
	if cfg.Channels.Shopee.Domain == "" {
		cfg.Channels.Shopee.Domain = "https://partner.shopeemobile.com"
	}
	for _, rl := range []*float64{
		&cfg.Channels.Opencart.RateLimit,
		&cfg.Channels.Lazada.RateLimit,
		&cfg.Channels.Shopee.RateLimit,
		&cfg.Channels.Woocommerce.RateLimit,
	} {
		if *rl == 0 {
			*rl = 5
		}
	}
	for _, rb := range []*int{
		&cfg.Channels.Opencart.RateBurst,
		&cfg.Channels.Lazada.RateBurst,
		&cfg.Channels.Shopee.RateBurst,
		&cfg.Channels.Woocommerce.RateBurst,
	} {
		if *rb == 0 {
			*rb = 5
		}
	}
}

// validate performs validation on the configuration, including the policy
// cycle check, so a bad propagation graph is rejected before anything runs
func (c *Config) validate() error {
	if c.Sync.FetchConcurrency < 1 {
		return fmt.Errorf("sync.fetch_concurrency must be positive")
	}
	canonical := stock.ChannelCode(strings.ToUpper(c.Sync.DefaultChannel))
	if !canonical.IsValid() {
		return fmt.Errorf("sync.default_channel %q is not a known channel", c.Sync.DefaultChannel)
	}

	enabled := c.EnabledChannels()
	if len(enabled) == 0 {
		return fmt.Errorf("no channels enabled")
	}
	found := false
	for _, ch := range enabled {
		if ch == canonical {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("sync.default_channel %s is not enabled", canonical)
	}

	if c.Channels.Opencart.Enabled {
		if c.Channels.Opencart.Domain == "" || c.Channels.Opencart.Username == "" || c.Channels.Opencart.Password == "" {
			return fmt.Errorf("channels.opencart requires domain, username and password")
		}
	}
	if c.Channels.Lazada.Enabled {
		if c.Channels.Lazada.AppKey == "" || c.Channels.Lazada.AppSecret == "" {
			return fmt.Errorf("channels.lazada requires app_key and app_secret")
		}
	}
	if c.Channels.Shopee.Enabled {
		if c.Channels.Shopee.PartnerID == 0 || c.Channels.Shopee.PartnerKey == "" || c.Channels.Shopee.ShopID == 0 {
			return fmt.Errorf("channels.shopee requires partner_id, partner_key and shop_id")
		}
	}
	if c.Channels.Woocommerce.Enabled {
		if c.Channels.Woocommerce.Domain == "" || c.Channels.Woocommerce.ConsumerKey == "" || c.Channels.Woocommerce.ConsumerSecret == "" {
			return fmt.Errorf("channels.woocommerce requires domain, consumer_key and consumer_secret")
		}
	}

	// Building the policy validates edge syntax and rejects cycles.
	if _, err := c.BuildPolicy(); err != nil {
		return err
	}
	return nil
}

// EnabledChannels returns the codes of all enabled channels
func (c *Config) EnabledChannels() []stock.ChannelCode {
	var out []stock.ChannelCode
	if c.Channels.Opencart.Enabled {
		out = append(out, stock.ChannelCodeOpencart)
	}
	if c.Channels.Lazada.Enabled {
		out = append(out, stock.ChannelCodeLazada)
	}
	if c.Channels.Shopee.Enabled {
		out = append(out, stock.ChannelCodeShopee)
	}
	if c.Channels.Woocommerce.Enabled {
		out = append(out, stock.ChannelCodeWoocommerce)
	}
	return out
}

// DefaultChannel returns the canonical channel code
func (c *Config) DefaultChannel() stock.ChannelCode {
	return stock.ChannelCode(strings.ToUpper(c.Sync.DefaultChannel))
}

// ParseEdges parses the configured "FROM->TO" edge strings
func (c *Config) ParseEdges() ([]stock.Edge, error) {
	edges := make([]stock.Edge, 0, len(c.Sync.Edges))
	for _, raw := range c.Sync.Edges {
		parts := strings.Split(raw, "->")
		if len(parts) != 2 {
			return nil, fmt.Errorf("sync.edges entry %q is not of the form FROM->TO", raw)
		}
		from := stock.ChannelCode(strings.ToUpper(strings.TrimSpace(parts[0])))
		to := stock.ChannelCode(strings.ToUpper(strings.TrimSpace(parts[1])))
		if !from.IsValid() || !to.IsValid() {
			return nil, fmt.Errorf("sync.edges entry %q references an unknown channel", raw)
		}
		edges = append(edges, stock.Edge{From: from, To: to})
	}
	return edges, nil
}

// BuildPolicy assembles the propagation policy from the configured default
// channel, enabled channels, explicit edges and skip_unlisted flags
func (c *Config) BuildPolicy() (*stock.PropagationPolicy, error) {
	edges, err := c.ParseEdges()
	if err != nil {
		return nil, err
	}
	var opts []stock.PolicyOption
	for _, e := range edges {
		opts = append(opts, stock.WithEdge(e.From, e.To))
	}
	skip := map[stock.ChannelCode]bool{
		stock.ChannelCodeOpencart:    c.Channels.Opencart.SkipUnlisted,
		stock.ChannelCodeLazada:      c.Channels.Lazada.SkipUnlisted,
		stock.ChannelCodeShopee:      c.Channels.Shopee.SkipUnlisted,
		stock.ChannelCodeWoocommerce: c.Channels.Woocommerce.SkipUnlisted,
	}
	for ch, s := range skip {
		if s {
			opts = append(opts, stock.WithSkipUnlisted(ch))
		}
	}
	return stock.NewPropagationPolicy(c.DefaultChannel(), c.EnabledChannels(), opts...)
}

// DSN returns the SQLite connection string for the snapshot store
func (s *StoreConfig) DSN() string {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprintf("%d", s.BusyTimeout.Milliseconds()))
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "on")
	return fmt.Sprintf("file:%s?%s", s.Path, q.Encode())
}
