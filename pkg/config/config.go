package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	NATS          NATSConfig
	Gateway       GatewayConfig
	Risk          RiskConfig
	Payout        PayoutConfig
	Scheduler     SchedulerConfig
	RateLimit     RateLimitConfig
	Notifications NotificationsConfig
	Sentry        SentryConfig
	Tracing       TracingConfig
	Secrets       SecretsConfig
	Storage       StorageConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	// RequestTimeout bounds handler time in seconds; 0 disables the timeout middleware.
	RequestTimeout int
	CORSOrigins    string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string
	Expiration int // in hours
}

// NATSConfig holds event bus configuration
type NATSConfig struct {
	URL     string
	Enabled bool
}

// GatewayConfig holds the payout rail (PayOS) configuration
type GatewayConfig struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	ChecksumKey string
	Currency    string
	Timeout     int // in seconds

	BreakerInterval         int
	BreakerTimeout          int
	BreakerFailureThreshold int
	BreakerSuccessThreshold int

	// Settlement balance levels surfaced on the admin dashboard.
	BalanceWarningLevel  float64
	BalanceCriticalLevel float64

	IdempotencyTTL time.Duration
	InFlightTTL    time.Duration
}

// RiskConfig holds fraud rule parameters, factor weights and decision thresholds.
// None of these values are invariants; they are tuned per deployment.
type RiskConfig struct {
	BaseScore int

	WithdrawCooldown        time.Duration
	NameSimilarityThreshold float64

	// Per-rule weights, keyed by rule wire name.
	PassWeights map[string]int
	FailWeights map[string]int

	NewAccountDays          int
	NewAccountPenalty       int
	EstablishedAccountDays  int
	EstablishedAccountBonus int
	TrustedWithdrawalCount  int
	WithdrawalHistoryBonus  int

	RejectBelow int
	ManualBelow int
	DelayBelow  int

	DelayHold time.Duration
}

// PayoutConfig holds workflow knobs for the withdrawal processor
type PayoutConfig struct {
	ClaimLease     time.Duration
	SweepBatchSize int
	MinAmount      float64
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	DelayedSweepSpec string
	Enabled          bool
}

// RateLimitConfig holds the Redis token-bucket limits
type RateLimitConfig struct {
	Enabled        bool
	WindowSeconds  int
	DefaultLimit   int
	DefaultBurst   int
	AnonymousLimit int
	AnonymousBurst int
	RedisPrefix    string

	// Keyed by route path, e.g. /api/v1/payout/withdrawals.
	EndpointOverrides map[string]EndpointRateLimitConfig
}

// EndpointRateLimitConfig overrides the defaults for one route
type EndpointRateLimitConfig struct {
	AuthenticatedLimit int
	AuthenticatedBurst int
	AnonymousLimit     int
	AnonymousBurst     int
	WindowSeconds      int
}

// Window returns the default window, one minute when unset.
func (c RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// SentryConfig holds error reporting settings. An empty DSN disables reporting.
type SentryConfig struct {
	DSN        string
	SampleRate float64
}

// TracingConfig holds OpenTelemetry export settings
type TracingConfig struct {
	Enabled     bool
	Endpoint    string // OTLP/gRPC collector, host:port
	SampleRatio float64
}

// SecretsConfig selects the store credentials are read from. An empty
// Backend keeps the environment values.
type SecretsConfig struct {
	Backend  string // vault, aws, gcp or file
	CacheTTL time.Duration
	Vault    VaultConfig
	AWS      AWSSecretsConfig
	GCP      GCPSecretsConfig
	FileDir  string
	Refs     CredentialRefs
}

// VaultConfig holds HashiCorp Vault KV v2 access settings
type VaultConfig struct {
	Address       string
	Token         string
	Namespace     string
	Mount         string
	CACert        string
	TLSSkipVerify bool
}

// AWSSecretsConfig holds AWS Secrets Manager access settings
type AWSSecretsConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// GCPSecretsConfig holds Google Secret Manager access settings
type GCPSecretsConfig struct {
	ProjectID       string
	CredentialsFile string
}

// CredentialRefs are path[@version]#key references into the secret store
type CredentialRefs struct {
	GatewayClientID    string
	GatewayAPIKey      string
	GatewayChecksumKey string
	JWTSecret          string
	DatabasePassword   string
}

// StorageConfig holds the S3 bucket payout receipts are archived to
type StorageConfig struct {
	Enabled    bool
	Bucket     string
	Region     string
	Endpoint   string // S3-compatible endpoint, e.g. MinIO
	AccessKey  string
	SecretKey  string
	Prefix     string
	PresignTTL time.Duration
}

// NotificationsConfig holds tutor notification settings
type NotificationsConfig struct {
	Language string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ServiceName:    serviceName,
			ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 10),
			RequestTimeout: getEnvAsInt("REQUEST_TIMEOUT", 8),
			CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "tutorpayouts"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Expiration: getEnvAsInt("JWT_EXPIRATION", 24),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
		},
		Gateway: GatewayConfig{
			BaseURL:                 getEnv("PAYOS_BASE_URL", "https://api-merchant.payos.vn"),
			ClientID:                getEnv("PAYOS_CLIENT_ID", ""),
			APIKey:                  getEnv("PAYOS_API_KEY", ""),
			ChecksumKey:             getEnv("PAYOS_CHECKSUM_KEY", ""),
			Currency:                getEnv("PAYOS_CURRENCY", "VND"),
			Timeout:                 getEnvAsInt("PAYOS_TIMEOUT_SECONDS", 15),
			BreakerInterval:         getEnvAsInt("PAYOS_BREAKER_INTERVAL_SECONDS", 60),
			BreakerTimeout:          getEnvAsInt("PAYOS_BREAKER_TIMEOUT_SECONDS", 30),
			BreakerFailureThreshold: getEnvAsInt("PAYOS_BREAKER_FAILURE_THRESHOLD", 5),
			BreakerSuccessThreshold: getEnvAsInt("PAYOS_BREAKER_SUCCESS_THRESHOLD", 1),
			BalanceWarningLevel:     getEnvAsFloat("PAYOS_BALANCE_WARNING", 50_000_000),
			BalanceCriticalLevel:    getEnvAsFloat("PAYOS_BALANCE_CRITICAL", 10_000_000),
			IdempotencyTTL:          getEnvAsDuration("PAYOS_IDEMPOTENCY_TTL", 30*24*time.Hour),
			InFlightTTL:             getEnvAsDuration("PAYOS_INFLIGHT_TTL", 2*time.Minute),
		},
		Risk: DefaultRiskConfig(),
		Payout: PayoutConfig{
			ClaimLease:     getEnvAsDuration("PAYOUT_CLAIM_LEASE", 2*time.Minute),
			SweepBatchSize: getEnvAsInt("PAYOUT_SWEEP_BATCH_SIZE", 50),
			MinAmount:      getEnvAsFloat("PAYOUT_MIN_AMOUNT", 10_000),
		},
		Scheduler: SchedulerConfig{
			DelayedSweepSpec: getEnv("SCHEDULER_DELAYED_SWEEP_SPEC", "@every 1m"),
			Enabled:          getEnvAsBool("SCHEDULER_ENABLED", true),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvAsBool("RATE_LIMIT_ENABLED", true),
			WindowSeconds:  getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			DefaultLimit:   getEnvAsInt("RATE_LIMIT_DEFAULT_LIMIT", 120),
			DefaultBurst:   getEnvAsInt("RATE_LIMIT_DEFAULT_BURST", 20),
			AnonymousLimit: getEnvAsInt("RATE_LIMIT_ANONYMOUS_LIMIT", 30),
			AnonymousBurst: getEnvAsInt("RATE_LIMIT_ANONYMOUS_BURST", 5),
			RedisPrefix:    getEnv("RATE_LIMIT_REDIS_PREFIX", "payouts:rl"),
			EndpointOverrides: map[string]EndpointRateLimitConfig{
				"/api/v1/payout/withdrawals": {
					AuthenticatedLimit: getEnvAsInt("RATE_LIMIT_WITHDRAWALS_PER_HOUR", 5),
					AuthenticatedBurst: 0,
					WindowSeconds:      3600,
				},
			},
		},
		Notifications: NotificationsConfig{
			Language: getEnv("NOTIFICATIONS_LANGUAGE", "vi"),
		},
		Sentry: SentryConfig{
			DSN:        getEnv("SENTRY_DSN", ""),
			SampleRate: getEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio: getEnvAsFloat("TRACING_SAMPLE_RATIO", 0.1),
		},
		Storage: StorageConfig{
			Enabled:    getEnvAsBool("RECEIPTS_ENABLED", false),
			Bucket:     getEnv("RECEIPTS_BUCKET", ""),
			Region:     getEnv("RECEIPTS_REGION", "ap-southeast-1"),
			Endpoint:   getEnv("RECEIPTS_ENDPOINT", ""),
			AccessKey:  getEnv("RECEIPTS_ACCESS_KEY", ""),
			SecretKey:  getEnv("RECEIPTS_SECRET_KEY", ""),
			Prefix:     getEnv("RECEIPTS_PREFIX", "payout-receipts"),
			PresignTTL: getEnvAsDuration("RECEIPTS_PRESIGN_TTL", 15*time.Minute),
		},
		Secrets: SecretsConfig{
			Backend:  getEnv("SECRETS_BACKEND", ""),
			CacheTTL: getEnvAsDuration("SECRETS_CACHE_TTL", 5*time.Minute),
			Vault: VaultConfig{
				Address:       getEnv("VAULT_ADDR", ""),
				Token:         getEnv("VAULT_TOKEN", ""),
				Namespace:     getEnv("VAULT_NAMESPACE", ""),
				Mount:         getEnv("VAULT_KV_MOUNT", "secret"),
				CACert:        getEnv("VAULT_CACERT", ""),
				TLSSkipVerify: getEnvAsBool("VAULT_SKIP_VERIFY", false),
			},
			AWS: AWSSecretsConfig{
				Region:          getEnv("AWS_REGION", ""),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				Endpoint:        getEnv("AWS_SECRETS_ENDPOINT", ""),
			},
			GCP: GCPSecretsConfig{
				ProjectID:       getEnv("GCP_PROJECT_ID", ""),
				CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			},
			FileDir: getEnv("SECRETS_DIR", "/var/run/secrets/payouts"),
			Refs: CredentialRefs{
				GatewayClientID:    getEnv("PAYOS_CLIENT_ID_REF", ""),
				GatewayAPIKey:      getEnv("PAYOS_API_KEY_REF", ""),
				GatewayChecksumKey: getEnv("PAYOS_CHECKSUM_KEY_REF", ""),
				JWTSecret:          getEnv("JWT_SECRET_REF", ""),
				DatabasePassword:   getEnv("DB_PASSWORD_REF", ""),
			},
		},
	}

	applyRiskOverrides(&cfg.Risk)

	if cfg.Risk.RejectBelow > cfg.Risk.ManualBelow || cfg.Risk.ManualBelow > cfg.Risk.DelayBelow {
		return nil, fmt.Errorf("risk thresholds must be ascending: reject=%d manual=%d delay=%d",
			cfg.Risk.RejectBelow, cfg.Risk.ManualBelow, cfg.Risk.DelayBelow)
	}

	return cfg, nil
}

// DefaultRiskConfig returns the built-in scoring parameters.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		BaseScore:               50,
		WithdrawCooldown:        24 * time.Hour,
		NameSimilarityThreshold: 0.80,
		PassWeights: map[string]int{
			"WITHDRAW_SPEED":     10,
			"BANK_ACCOUNT_MATCH": 15,
			"IP_CONSISTENCY":     10,
			"EMAIL_VERIFIED":     5,
		},
		FailWeights: map[string]int{
			"WITHDRAW_SPEED":     15,
			"BANK_ACCOUNT_MATCH": 30,
			"IP_CONSISTENCY":     20,
			"EMAIL_VERIFIED":     10,
		},
		NewAccountDays:          7,
		NewAccountPenalty:       15,
		EstablishedAccountDays:  90,
		EstablishedAccountBonus: 10,
		TrustedWithdrawalCount:  3,
		WithdrawalHistoryBonus:  5,
		RejectBelow:             20,
		ManualBelow:             50,
		DelayBelow:              80,
		DelayHold:               24 * time.Hour,
	}
}

func applyRiskOverrides(r *RiskConfig) {
	r.BaseScore = getEnvAsInt("RISK_BASE_SCORE", r.BaseScore)
	r.WithdrawCooldown = getEnvAsDuration("RISK_WITHDRAW_COOLDOWN", r.WithdrawCooldown)
	r.NameSimilarityThreshold = getEnvAsFloat("RISK_NAME_SIMILARITY_THRESHOLD", r.NameSimilarityThreshold)
	for rule := range r.PassWeights {
		r.PassWeights[rule] = getEnvAsInt("RISK_PASS_WEIGHT_"+rule, r.PassWeights[rule])
	}
	for rule := range r.FailWeights {
		r.FailWeights[rule] = getEnvAsInt("RISK_FAIL_WEIGHT_"+rule, r.FailWeights[rule])
	}
	r.NewAccountDays = getEnvAsInt("RISK_NEW_ACCOUNT_DAYS", r.NewAccountDays)
	r.NewAccountPenalty = getEnvAsInt("RISK_NEW_ACCOUNT_PENALTY", r.NewAccountPenalty)
	r.EstablishedAccountDays = getEnvAsInt("RISK_ESTABLISHED_ACCOUNT_DAYS", r.EstablishedAccountDays)
	r.EstablishedAccountBonus = getEnvAsInt("RISK_ESTABLISHED_ACCOUNT_BONUS", r.EstablishedAccountBonus)
	r.TrustedWithdrawalCount = getEnvAsInt("RISK_TRUSTED_WITHDRAWAL_COUNT", r.TrustedWithdrawalCount)
	r.WithdrawalHistoryBonus = getEnvAsInt("RISK_WITHDRAWAL_HISTORY_BONUS", r.WithdrawalHistoryBonus)
	r.RejectBelow = getEnvAsInt("RISK_REJECT_BELOW", r.RejectBelow)
	r.ManualBelow = getEnvAsInt("RISK_MANUAL_BELOW", r.ManualBelow)
	r.DelayBelow = getEnvAsInt("RISK_DELAY_BELOW", r.DelayBelow)
	r.DelayHold = getEnvAsDuration("RISK_DELAY_HOLD", r.DelayHold)
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the database connection string in URL form, as expected by migrate.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
