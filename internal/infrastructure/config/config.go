package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
)

// Config holds all configuration for the application
type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Security    SecurityConfig `mapstructure:"security"`
	Fees        FeeConfig      `mapstructure:"fees"`
	AntiBot     AntiBotConfig  `mapstructure:"antibot"`
	Referral    ReferralConfig `mapstructure:"referral"`
	Staking     StakingConfig  `mapstructure:"staking"`
	Treasury    TreasuryConfig `mapstructure:"treasury"`
	Bridge      BridgeConfig   `mapstructure:"bridge"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	// ShutdownTimeout bounds graceful shutdown, in seconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string `mapstructure:"migrations_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
	AdminRole string `mapstructure:"admin_role"`
}

// FeeConfig drives the dynamic fee engine. All rates and surcharges are
// percentages of the gross transfer amount.
type FeeConfig struct {
	BaseRate              float64 `mapstructure:"base_rate"`
	MaxRate               float64 `mapstructure:"max_rate"`
	VolumeThreshold       float64 `mapstructure:"volume_threshold"`
	VolumeSurcharge       float64 `mapstructure:"volume_surcharge"`
	ImpactThresholdPct    float64 `mapstructure:"impact_threshold_pct"`
	ImpactSurcharge       float64 `mapstructure:"impact_surcharge"`
	RapidTradeWindowSecs  int     `mapstructure:"rapid_trade_window_secs"`
	RapidTradeSurcharge   float64 `mapstructure:"rapid_trade_surcharge"`
	MaxPriorityFee        float64 `mapstructure:"max_priority_fee"`
	PoolAddress           string  `mapstructure:"pool_address"`
	DefaultPoolDepth      float64 `mapstructure:"default_pool_depth"`
}

type AntiBotConfig struct {
	MaxBuyAmount       float64  `mapstructure:"max_buy_amount"`
	MaxSellAmount      float64  `mapstructure:"max_sell_amount"`
	CooldownSecs       int      `mapstructure:"cooldown_secs"`
	BurstTradeCount    int64    `mapstructure:"burst_trade_count"`
	VarianceMultiple   float64  `mapstructure:"variance_multiple"`
	ContractAllowList  []string `mapstructure:"contract_allow_list"`
	ContractAccounts   []string `mapstructure:"contract_accounts"`
}

type ReferralConfig struct {
	Active           bool    `mapstructure:"active"`
	MaxReferrals     int64   `mapstructure:"max_referrals"`
	MinimumPurchase  float64 `mapstructure:"minimum_purchase"`
	ReferralBonusPct float64 `mapstructure:"referral_bonus_pct"`
	ReferredBonusPct float64 `mapstructure:"referred_bonus_pct"`
}

type StakingConfig struct {
	LockPeriodSecs int         `mapstructure:"lock_period_secs"`
	Tiers          []TierEntry `mapstructure:"tiers"`
}

type TierEntry struct {
	Threshold  float64 `mapstructure:"threshold"`
	APRPercent float64 `mapstructure:"apr_percent"`
}

type TreasuryConfig struct {
	RebalanceIntervalSecs int    `mapstructure:"rebalance_interval_secs"`
	RebalanceCron         string `mapstructure:"rebalance_cron"`
	Token                 string `mapstructure:"token"`
}

type BridgeConfig struct {
	ChainName       string   `mapstructure:"chain_name"`
	MinAmount       float64  `mapstructure:"min_amount"`
	CooldownSecs    int      `mapstructure:"cooldown_secs"`
	SupportedChains []string `mapstructure:"supported_chains"`
}

// TierTable converts the configured tier entries to a domain tier table
func (s StakingConfig) TierTable() entities.TierTable {
	table := make(entities.TierTable, 0, len(s.Tiers))
	for _, t := range s.Tiers {
		table = append(table, entities.TierLevel{
			Threshold:  decimal.NewFromFloat(t.Threshold),
			APRPercent: decimal.NewFromFloat(t.APRPercent),
		})
	}
	return table
}

// LockPeriod returns the configured lock period as a duration
func (s StakingConfig) LockPeriod() time.Duration {
	return time.Duration(s.LockPeriodSecs) * time.Second
}

// RebalanceInterval returns the minimum spacing between rebalances
func (t TreasuryConfig) RebalanceInterval() time.Duration {
	return time.Duration(t.RebalanceIntervalSecs) * time.Second
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.shutdown_timeout", 30)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "aurum_ledger")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)
	viper.SetDefault("database.migrations_path", "file://internal/infrastructure/database/migrations")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	viper.SetDefault("security.jwt_issuer", "aurum_service")
	viper.SetDefault("security.admin_role", "admin")

	// Fee engine defaults: 1% base, capped at 10%
	viper.SetDefault("fees.base_rate", 1.0)
	viper.SetDefault("fees.max_rate", 10.0)
	viper.SetDefault("fees.volume_threshold", 1_000_000.0)
	viper.SetDefault("fees.volume_surcharge", 2.0)
	viper.SetDefault("fees.impact_threshold_pct", 2.0)
	viper.SetDefault("fees.impact_surcharge", 2.0)
	viper.SetDefault("fees.rapid_trade_window_secs", 60)
	viper.SetDefault("fees.rapid_trade_surcharge", 1.0)
	viper.SetDefault("fees.max_priority_fee", 0.0) // 0 disables the admission guard
	viper.SetDefault("fees.default_pool_depth", 10_000_000.0)

	viper.SetDefault("antibot.max_buy_amount", 500_000.0)
	viper.SetDefault("antibot.max_sell_amount", 500_000.0)
	viper.SetDefault("antibot.cooldown_secs", 30)
	viper.SetDefault("antibot.burst_trade_count", 10)
	viper.SetDefault("antibot.variance_multiple", 20.0)

	viper.SetDefault("referral.active", true)
	viper.SetDefault("referral.max_referrals", 100)
	viper.SetDefault("referral.minimum_purchase", 100.0)
	viper.SetDefault("referral.referral_bonus_pct", 5.0)
	viper.SetDefault("referral.referred_bonus_pct", 2.0)

	viper.SetDefault("staking.lock_period_secs", 30*24*3600)
	viper.SetDefault("staking.tiers", []map[string]any{
		{"threshold": 1_000.0, "apr_percent": 5.0},
		{"threshold": 5_000.0, "apr_percent": 10.0},
		{"threshold": 25_000.0, "apr_percent": 15.0},
	})

	viper.SetDefault("treasury.rebalance_interval_secs", 24*3600)
	viper.SetDefault("treasury.rebalance_cron", "0 * * * *")
	viper.SetDefault("treasury.token", "AUR")

	viper.SetDefault("bridge.chain_name", "aurum-main")
	viper.SetDefault("bridge.min_amount", 10.0)
	viper.SetDefault("bridge.cooldown_secs", 300)
	viper.SetDefault("bridge.supported_chains", []string{})
}

// overrideFromEnv maps well-known environment variables onto config keys
func overrideFromEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		viper.Set("database.url", v)
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		viper.Set("redis.host", v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		viper.Set("redis.password", v)
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		viper.Set("security.jwt_secret", v)
	}
	if v := os.Getenv("PORT"); v != "" {
		viper.Set("server.port", v)
	}
}

func validate(cfg *Config) error {
	if cfg.Environment == "production" && cfg.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required in production")
	}
	if cfg.Fees.MaxRate < cfg.Fees.BaseRate {
		return fmt.Errorf("fees.max_rate must be at least fees.base_rate")
	}
	if cfg.Fees.PoolAddress != "" {
		if err := entities.Address(cfg.Fees.PoolAddress).Validate(); err != nil {
			return fmt.Errorf("fees.pool_address: %w", err)
		}
	}
	if len(cfg.Staking.Tiers) > 0 {
		if err := cfg.Staking.TierTable().Validate(); err != nil {
			return fmt.Errorf("staking.tiers: %w", err)
		}
	}
	return nil
}
