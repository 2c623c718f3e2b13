package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Database struct {
	WriteDSN          string        `mapstructure:"write_dsn"`
	ReadDSN           string        `mapstructure:"read_dsn"`
	Host              string        `mapstructure:"host"`
	ReadHost          string        `mapstructure:"read_host"`
	Port              int           `mapstructure:"port"`
	Name              string        `mapstructure:"name"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	SSLMode           string        `mapstructure:"sslmode"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

type Config struct {
	Database  Database  `mapstructure:"database"`
	Server    Server    `mapstructure:"server"`
	Log       Log       `mapstructure:"log"`
	Broker    Broker    `mapstructure:"broker"`
	Outbox    Outbox    `mapstructure:"outbox"`
	Providers Providers `mapstructure:"providers"`
	Env       string    `mapstructure:"environment"`
}

type Server struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Broker selects the durable broker the gateway publishes to. Driver is
// either "amqp" (topic exchange + routing keys) or "nats" (JetStream,
// routing keys become subjects).
type Broker struct {
	Driver           string        `mapstructure:"driver"`
	URL              string        `mapstructure:"url"`
	OutboundExchange string        `mapstructure:"outbound_exchange"`
	InboundExchange  string        `mapstructure:"inbound_exchange"`
	PublishTimeout   time.Duration `mapstructure:"publish_timeout"`
	Stream           string        `mapstructure:"stream"`
	// ReportsQueue names the queue (AMQP) or durable consumer (NATS) the
	// gateway reads provider worker delivery reports from.
	ReportsQueue string `mapstructure:"reports_queue"`
}

type Outbox struct {
	BatchSize     int             `mapstructure:"batch_size"`
	PollInterval  time.Duration   `mapstructure:"poll_interval"`
	Workers       int             `mapstructure:"workers"`
	MaxAttempts   int             `mapstructure:"max_attempts"`
	BackoffLadder []time.Duration `mapstructure:"backoff_ladder"`
	// LockTimeout is how long a claimed record stays owned by a dispatcher
	// before other dispatchers may reclaim it.
	LockTimeout   time.Duration `mapstructure:"lock_timeout"`
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Providers carries base URLs and API keys for the upstream bridge and graph
// APIs. Webhook secrets live per instance, not here.
type Providers struct {
	WPPConnect ProviderEndpoint `mapstructure:"wppconnect"`
	WAHA       ProviderEndpoint `mapstructure:"waha"`
	Meta       ProviderEndpoint `mapstructure:"meta"`
	// SyncInterval is how often the reconciler polls provider APIs for the
	// true session state. Zero disables the reconciler.
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

type ProviderEndpoint struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func Load(cfgFile string) (Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.grows-gateway")
		v.AddConfigPath("/etc/grows-gateway")
	}

	v.SetEnvPrefix("GROWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASS")
	_ = v.BindEnv("broker.url", "BROKER_URL")

	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.connect_timeout", "5s")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("database.max_conn_idle_time", "5m")
	v.SetDefault("database.health_check_period", "1m")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("broker.driver", "amqp")
	v.SetDefault("broker.outbound_exchange", "gateway.outbound")
	v.SetDefault("broker.inbound_exchange", "gateway.inbound")
	v.SetDefault("broker.publish_timeout", "5s")
	v.SetDefault("broker.stream", "gateway")
	v.SetDefault("broker.reports_queue", "gateway-reports")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", "2s")
	v.SetDefault("outbox.workers", 1)
	v.SetDefault("outbox.max_attempts", 3)
	v.SetDefault("outbox.backoff_ladder", []string{"5s", "30s", "2m", "10m", "1h"})
	v.SetDefault("outbox.lock_timeout", "1m")
	v.SetDefault("outbox.retention", "168h")
	v.SetDefault("outbox.sweep_interval", "1h")
	v.SetDefault("providers.wppconnect.timeout", "15s")
	v.SetDefault("providers.waha.timeout", "15s")
	v.SetDefault("providers.meta.base_url", "https://graph.facebook.com/v19.0")
	v.SetDefault("providers.meta.timeout", "15s")
	v.SetDefault("providers.sync_interval", "5m")
	v.SetDefault("environment", "dev")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	cfg = applyDSNDefaults(cfg)
	return cfg, nil
}

func applyDSNDefaults(cfg Config) Config {
	if cfg.Database.WriteDSN == "" && cfg.Database.Host != "" && cfg.Database.Name != "" {
		cfg.Database.WriteDSN = buildDSN(cfg.Database.Host, cfg.Database.Port, cfg.Database.Name, cfg.Database.User, cfg.Database.Password, cfg.Database.SSLMode)
	}
	if cfg.Database.ReadDSN == "" {
		readHost := cfg.Database.ReadHost
		if readHost == "" {
			readHost = cfg.Database.Host
		}
		if readHost != "" && cfg.Database.Name != "" {
			cfg.Database.ReadDSN = buildDSN(readHost, cfg.Database.Port, cfg.Database.Name, cfg.Database.User, cfg.Database.Password, cfg.Database.SSLMode)
		}
	}
	return cfg
}

func buildDSN(host string, port int, name, user, password, sslmode string) string {
	if sslmode == "" {
		sslmode = "disable"
	}
	creds := ""
	if user != "" {
		creds = user
		if password != "" {
			creds += ":" + password
		}
		creds += "@"
	}
	return "postgres://" + creds + host + ":" + fmt.Sprintf("%d", port) + "/" + name + "?sslmode=" + sslmode
}
