package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig                `mapstructure:"app"`
	Server  ServerConfig             `mapstructure:"server"`
	Log     LogConfig                `mapstructure:"log"`
	DB      DBConfig                 `mapstructure:"db"`
	Cache   CacheConfig              `mapstructure:"cache"`
	Auth    AuthConfig               `mapstructure:"auth"`
	Proxy   ProxyConfig              `mapstructure:"proxy"`
	Media   MediaConfig              `mapstructure:"media"`
	Ingest  IngestConfig             `mapstructure:"ingest"`
	Cron    CronConfig               `mapstructure:"cron"`
	Notify  NotifyConfig             `mapstructure:"notify"`
	Network map[string]NetworkConfig `mapstructure:"networks"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string   `mapstructure:"level"`
	Encoding          string   `mapstructure:"encoding"`
	Development       bool     `mapstructure:"development"`
	Sampling          bool     `mapstructure:"sampling"`
	DisableCaller     bool     `mapstructure:"disable_caller"`
	DisableStacktrace bool     `mapstructure:"disable_stacktrace"`
	OutputPaths       []string `mapstructure:"output_paths"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// CacheConfig selects the backing store for proxy resolution outcomes. A TTL
// of 0 keeps resolutions until evicted.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	DefaultUser string        `mapstructure:"default_user"`
}

// ProxyConfig tunes the media proxy chain. AllowPrivateNetworks lets it reach
// loopback and private hosts.
type ProxyConfig struct {
	AuthBaseURL          string        `mapstructure:"auth_base_url"`
	AuthAPIKey           string        `mapstructure:"auth_api_key"`
	AuthHeader           string        `mapstructure:"auth_header"`
	Timeout              time.Duration `mapstructure:"timeout"`
	FallbackTemplates    []string      `mapstructure:"fallback_templates"`
	CORSRestrictedHosts  []string      `mapstructure:"cors_restricted_hosts"`
	IPFSGateway          string        `mapstructure:"ipfs_gateway"`
	ArweaveGateway       string        `mapstructure:"arweave_gateway"`
	UserAgent            string        `mapstructure:"user_agent"`
	AllowPrivateNetworks bool          `mapstructure:"allow_private_networks"`
}

type MediaConfig struct {
	Probe        bool `mapstructure:"probe"`
	CacheEntries int  `mapstructure:"cache_entries"`
}

type IngestConfig struct {
	PageSize  int           `mapstructure:"page_size"`
	MaxPages  int           `mapstructure:"max_pages"`
	Timeout   time.Duration `mapstructure:"timeout"`
	BatchSize int           `mapstructure:"batch_size"`
	Networks  []string      `mapstructure:"networks"`
}

type CronConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Refresh string `mapstructure:"refresh"`
}

// NotifyConfig wires the event sinks. OriginPatterns are the extra browser
// origins allowed to open the events websocket.
type NotifyConfig struct {
	Buffer          int      `mapstructure:"buffer"`
	WebhookURL      string   `mapstructure:"webhook_url"`
	PlatformBaseURL string   `mapstructure:"platform_base_url"`
	PlatformAPIKey  string   `mapstructure:"platform_api_key"`
	PlatformAgent   string   `mapstructure:"platform_agent"`
	OriginPatterns  []string `mapstructure:"origin_patterns"`
}

// NetworkConfig describes the listing API used for one network id.
type NetworkConfig struct {
	Provider string        `mapstructure:"provider"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

var defaultFallbackTemplates = []string{
	"https://corsproxy.io/?{url}",
	"https://api.allorigins.win/raw?url={url}",
	"https://api.codetabs.com/v1/proxy?quest={url}",
}

var defaultCORSRestrictedHosts = []string{
	"ipfs.io",
	"gateway.pinata.cloud",
	"cloudflare-ipfs.com",
	"arweave.net",
	"nftstorage.link",
	"dweb.link",
	"storage.googleapis.com",
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Network == nil {
		cfg.Network = DefaultNetworks()
	}
	applyNetworkEnv(cfg.Network)
	return cfg, nil
}

// applyNetworkEnv lets NV_NETWORKS_<ID>_API_KEY and NV_NETWORKS_<ID>_BASE_URL
// override entries of the networks map, which viper cannot bind by itself.
func applyNetworkEnv(networks map[string]NetworkConfig) {
	for id, nc := range networks {
		prefix := "NV_NETWORKS_" + strings.ToUpper(strings.ReplaceAll(id, "-", "_")) + "_"
		if key := strings.TrimSpace(os.Getenv(prefix + "API_KEY")); key != "" {
			nc.APIKey = key
		}
		if base := strings.TrimSpace(os.Getenv(prefix + "BASE_URL")); base != "" {
			nc.BaseURL = base
		}
		networks[id] = nc
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.key_prefix", "nftvault:proxy:")
	v.SetDefault("cache.ttl", "0s")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.default_user", "local")
	v.SetDefault("proxy.auth_base_url", "")
	v.SetDefault("proxy.auth_api_key", "")
	v.SetDefault("proxy.auth_header", "x-api-key")
	v.SetDefault("proxy.timeout", "10s")
	v.SetDefault("proxy.fallback_templates", defaultFallbackTemplates)
	v.SetDefault("proxy.cors_restricted_hosts", defaultCORSRestrictedHosts)
	v.SetDefault("proxy.ipfs_gateway", "https://ipfs.io/ipfs/")
	v.SetDefault("proxy.arweave_gateway", "https://arweave.net/")
	v.SetDefault("proxy.user_agent", "nftvault/0.1")
	v.SetDefault("proxy.allow_private_networks", false)
	v.SetDefault("media.probe", false)
	v.SetDefault("media.cache_entries", 5000)
	v.SetDefault("ingest.page_size", 100)
	v.SetDefault("ingest.max_pages", 20)
	v.SetDefault("ingest.timeout", "30s")
	v.SetDefault("ingest.batch_size", 100)
	v.SetDefault("ingest.networks", []string{"eth", "polygon", "base", "arbitrum", "optimism", "solana"})
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.refresh", "@every 6h")
	v.SetDefault("notify.buffer", 256)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.platform_base_url", "")
	v.SetDefault("notify.platform_api_key", "")
	v.SetDefault("notify.platform_agent", "nftvault-service")
}

// DefaultNetworks is used when no networks block is configured.
func DefaultNetworks() map[string]NetworkConfig {
	return map[string]NetworkConfig{
		"eth":      {Provider: "alchemy", BaseURL: "https://eth-mainnet.g.alchemy.com", Timeout: 20 * time.Second},
		"polygon":  {Provider: "alchemy", BaseURL: "https://polygon-mainnet.g.alchemy.com", Timeout: 20 * time.Second},
		"base":     {Provider: "alchemy", BaseURL: "https://base-mainnet.g.alchemy.com", Timeout: 20 * time.Second},
		"arbitrum": {Provider: "alchemy", BaseURL: "https://arb-mainnet.g.alchemy.com", Timeout: 20 * time.Second},
		"optimism": {Provider: "alchemy", BaseURL: "https://opt-mainnet.g.alchemy.com", Timeout: 20 * time.Second},
		"solana":   {Provider: "helius", BaseURL: "https://mainnet.helius-rpc.com", Timeout: 20 * time.Second},
	}
}
