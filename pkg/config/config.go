package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	Services   ServicesConfig
	CORS       CORSConfig
	Log        LogConfig
	Pricing    PricingConfig
	Validation ValidationConfig
	Escrow     EscrowConfig
	Reputation ReputationConfig
	Penalties  PenaltiesConfig
	Recalc     RecalcConfig
	Exports    ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ServicesConfig points at the external collaborator services.
type ServicesConfig struct {
	EconomyBaseURL string
	RosterBaseURL  string
	HTTPTimeout    time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PricingConfig holds the business-tunable estimator constants. The estimator
// fixes their shape (monotonic, bounded); the values are product knobs and
// must stay in configuration.
type PricingConfig struct {
	RiskLow        float64
	RiskMedium     float64
	RiskHigh       float64
	RiskExtreme    float64
	CommissionRate float64

	InsuranceBasic    float64
	InsuranceStandard float64
	InsurancePremium  float64

	TimeModifierCap   float64
	ReferenceDuration time.Duration
	DeviationWarnPct  float64
	BudgetRangeLow    float64
	BudgetRangeHigh   float64
	MinEscrow         float64
	MaxEscrow         float64
}

// ValidationConfig gates publication on validation freshness.
type ValidationConfig struct {
	TTL            time.Duration
	MaxObjectives  int
	MaxCheckpoints int
	MaxTeamSize    int
}

// EscrowConfig tunes retry behaviour for economy service calls.
type EscrowConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	CallTimeout     time.Duration
}

// ReputationConfig parameterises the rating engine.
type ReputationConfig struct {
	ReviewBaseWeight float64
	WeightHalfOrders float64
	PenaltyWeight    float64
	DecayGrace       time.Duration
	DecayPerWeek     float64
	DecayWarnPerEval float64
	MinScore         float64
	TrendWindow      int
	BronzeUpper      float64
	SilverUpper      float64
	GoldUpper        float64
}

// PenaltiesConfig bounds penalty submissions.
type PenaltiesConfig struct {
	MinReasonLength int
	MaxReasonLength int
	SweepInterval   time.Duration
}

// RecalcConfig drives the background recalculation workers.
type RecalcConfig struct {
	WorkerConcurrency int
	WorkerRetries     int
	BatchSize         int
	QueueBuffer       int
}

// ExportsConfig controls drift report storage and signed downloads.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
	ResultTTL       time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Services = ServicesConfig{
		EconomyBaseURL: v.GetString("ECONOMY_BASE_URL"),
		RosterBaseURL:  v.GetString("ROSTER_BASE_URL"),
		HTTPTimeout:    parseDuration(v.GetString("SERVICES_HTTP_TIMEOUT"), 5*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Pricing = PricingConfig{
		RiskLow:           v.GetFloat64("PRICING_RISK_LOW"),
		RiskMedium:        v.GetFloat64("PRICING_RISK_MEDIUM"),
		RiskHigh:          v.GetFloat64("PRICING_RISK_HIGH"),
		RiskExtreme:       v.GetFloat64("PRICING_RISK_EXTREME"),
		CommissionRate:    v.GetFloat64("PRICING_COMMISSION_RATE"),
		InsuranceBasic:    v.GetFloat64("PRICING_INSURANCE_BASIC"),
		InsuranceStandard: v.GetFloat64("PRICING_INSURANCE_STANDARD"),
		InsurancePremium:  v.GetFloat64("PRICING_INSURANCE_PREMIUM"),
		TimeModifierCap:   v.GetFloat64("PRICING_TIME_MODIFIER_CAP"),
		ReferenceDuration: parseDuration(v.GetString("PRICING_REFERENCE_DURATION"), 72*time.Hour),
		DeviationWarnPct:  v.GetFloat64("PRICING_DEVIATION_WARN_PCT"),
		BudgetRangeLow:    v.GetFloat64("PRICING_BUDGET_RANGE_LOW"),
		BudgetRangeHigh:   v.GetFloat64("PRICING_BUDGET_RANGE_HIGH"),
		MinEscrow:         v.GetFloat64("PRICING_MIN_ESCROW"),
		MaxEscrow:         v.GetFloat64("PRICING_MAX_ESCROW"),
	}

	cfg.Validation = ValidationConfig{
		TTL:            parseDuration(v.GetString("VALIDATION_TTL"), 24*time.Hour),
		MaxObjectives:  v.GetInt("VALIDATION_MAX_OBJECTIVES"),
		MaxCheckpoints: v.GetInt("VALIDATION_MAX_CHECKPOINTS"),
		MaxTeamSize:    v.GetInt("VALIDATION_MAX_TEAM_SIZE"),
	}

	cfg.Escrow = EscrowConfig{
		MaxRetries:      v.GetInt("ESCROW_MAX_RETRIES"),
		InitialInterval: parseDuration(v.GetString("ESCROW_INITIAL_INTERVAL"), 500*time.Millisecond),
		MaxInterval:     parseDuration(v.GetString("ESCROW_MAX_INTERVAL"), 15*time.Second),
		CallTimeout:     parseDuration(v.GetString("ESCROW_CALL_TIMEOUT"), 10*time.Second),
	}

	cfg.Reputation = ReputationConfig{
		ReviewBaseWeight: v.GetFloat64("REPUTATION_REVIEW_BASE_WEIGHT"),
		WeightHalfOrders: v.GetFloat64("REPUTATION_WEIGHT_HALF_ORDERS"),
		PenaltyWeight:    v.GetFloat64("REPUTATION_PENALTY_WEIGHT"),
		DecayGrace:       parseDuration(v.GetString("REPUTATION_DECAY_GRACE"), 30*24*time.Hour),
		DecayPerWeek:     v.GetFloat64("REPUTATION_DECAY_PER_WEEK"),
		DecayWarnPerEval: v.GetFloat64("REPUTATION_DECAY_WARN_PER_EVAL"),
		MinScore:         v.GetFloat64("REPUTATION_MIN_SCORE"),
		TrendWindow:      v.GetInt("REPUTATION_TREND_WINDOW"),
		BronzeUpper:      v.GetFloat64("REPUTATION_BRONZE_UPPER"),
		SilverUpper:      v.GetFloat64("REPUTATION_SILVER_UPPER"),
		GoldUpper:        v.GetFloat64("REPUTATION_GOLD_UPPER"),
	}

	cfg.Penalties = PenaltiesConfig{
		MinReasonLength: v.GetInt("PENALTY_MIN_REASON_LENGTH"),
		MaxReasonLength: v.GetInt("PENALTY_MAX_REASON_LENGTH"),
		SweepInterval:   parseDuration(v.GetString("PENALTY_SWEEP_INTERVAL"), time.Hour),
	}

	cfg.Recalc = RecalcConfig{
		WorkerConcurrency: v.GetInt("RECALC_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("RECALC_WORKER_RETRIES"),
		BatchSize:         v.GetInt("RECALC_BATCH_SIZE"),
		QueueBuffer:       v.GetInt("RECALC_QUEUE_BUFFER"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
		ResultTTL:       parseDuration(v.GetString("EXPORTS_RESULT_TTL"), 24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "player_orders")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ECONOMY_BASE_URL", "http://localhost:8091")
	v.SetDefault("ROSTER_BASE_URL", "http://localhost:8092")
	v.SetDefault("SERVICES_HTTP_TIMEOUT", "5s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PRICING_RISK_LOW", 1.0)
	v.SetDefault("PRICING_RISK_MEDIUM", 1.25)
	v.SetDefault("PRICING_RISK_HIGH", 1.6)
	v.SetDefault("PRICING_RISK_EXTREME", 1.8)
	v.SetDefault("PRICING_COMMISSION_RATE", 0.05)
	v.SetDefault("PRICING_INSURANCE_BASIC", 0.03)
	v.SetDefault("PRICING_INSURANCE_STANDARD", 0.06)
	v.SetDefault("PRICING_INSURANCE_PREMIUM", 0.1)
	v.SetDefault("PRICING_TIME_MODIFIER_CAP", 1.5)
	v.SetDefault("PRICING_REFERENCE_DURATION", "72h")
	v.SetDefault("PRICING_DEVIATION_WARN_PCT", 40.0)
	v.SetDefault("PRICING_BUDGET_RANGE_LOW", 0.85)
	v.SetDefault("PRICING_BUDGET_RANGE_HIGH", 1.15)
	v.SetDefault("PRICING_MIN_ESCROW", 50.0)
	v.SetDefault("PRICING_MAX_ESCROW", 1000000.0)

	v.SetDefault("VALIDATION_TTL", "24h")
	v.SetDefault("VALIDATION_MAX_OBJECTIVES", 20)
	v.SetDefault("VALIDATION_MAX_CHECKPOINTS", 30)
	v.SetDefault("VALIDATION_MAX_TEAM_SIZE", 12)

	v.SetDefault("ESCROW_MAX_RETRIES", 5)
	v.SetDefault("ESCROW_INITIAL_INTERVAL", "500ms")
	v.SetDefault("ESCROW_MAX_INTERVAL", "15s")
	v.SetDefault("ESCROW_CALL_TIMEOUT", "10s")

	v.SetDefault("REPUTATION_REVIEW_BASE_WEIGHT", 0.3)
	v.SetDefault("REPUTATION_WEIGHT_HALF_ORDERS", 20.0)
	v.SetDefault("REPUTATION_PENALTY_WEIGHT", 0.4)
	v.SetDefault("REPUTATION_DECAY_GRACE", "720h")
	v.SetDefault("REPUTATION_DECAY_PER_WEEK", 0.5)
	v.SetDefault("REPUTATION_DECAY_WARN_PER_EVAL", 5.0)
	v.SetDefault("REPUTATION_MIN_SCORE", 10.0)
	v.SetDefault("REPUTATION_TREND_WINDOW", 5)
	v.SetDefault("REPUTATION_BRONZE_UPPER", 40.0)
	v.SetDefault("REPUTATION_SILVER_UPPER", 65.0)
	v.SetDefault("REPUTATION_GOLD_UPPER", 85.0)

	v.SetDefault("PENALTY_MIN_REASON_LENGTH", 10)
	v.SetDefault("PENALTY_MAX_REASON_LENGTH", 500)
	v.SetDefault("PENALTY_SWEEP_INTERVAL", "1h")

	v.SetDefault("RECALC_WORKER_CONCURRENCY", 2)
	v.SetDefault("RECALC_WORKER_RETRIES", 1)
	v.SetDefault("RECALC_BATCH_SIZE", 50)
	v.SetDefault("RECALC_QUEUE_BUFFER", 16)

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("EXPORTS_RESULT_TTL", "24h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
