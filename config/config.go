package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"mailwarm/models"

	"github.com/badoux/checkmail"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type PostalConfig struct {
	APIKey  string `json:"-"`
	BaseURL string `json:"base_url"`
}

type IMAPConfig struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	UseSSL bool   `json:"use_ssl"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"-"`
}

type Config struct {
	Environment   string `json:"environment"`
	ServerPort    string `json:"server_port"`
	MasterAPIKey  string `json:"-"`
	EncryptionKey string `json:"-"`
	SentryDSN     string `json:"-"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	// Dispatcher selection: "postal" (HTTP API) or "smtp" (gomail)
	Dispatcher string       `json:"dispatcher"`
	Postal     PostalConfig `json:"postal"`
	SMTP       SMTPConfig   `json:"smtp"`
	IMAP       IMAPConfig   `json:"imap"`
	Redis      RedisConfig  `json:"redis"`

	OpenAIAPIKey string `json:"-"`

	SenderAddresses    []string          `json:"sender_addresses"`
	RecipientAddresses []string          `json:"recipient_addresses"`
	RecipientPasswords map[string]string `json:"-"`

	// Warmup pacing and verification timing
	DailySendTime     string `json:"daily_send_time"` // "HH:MM", local time
	MinSendDelaySec   int    `json:"min_send_delay_sec"`
	MaxSendDelaySec   int    `json:"max_send_delay_sec"`
	CheckDelayMinutes int    `json:"check_delay_minutes"`
	CheckInterval     int    `json:"check_interval_sec"`
	CheckBatchLimit   int    `json:"check_batch_limit"`

	// On restart after a crashed batch: resume the remainder of the day's
	// target when true, otherwise the day is forfeited as-is.
	ResumeIncomplete bool `json:"resume_incomplete"`

	RateLimitManualSend int `json:"rate_limit_manual_send"`
}

func init() {
	// A .env file is optional; remember whether one supplied values so
	// missing-variable warnings only fire when nothing could have set them
	envLoaded = godotenv.Load() == nil
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:   getEnv("ENVIRONMENT", "development"),
		ServerPort:    getEnv("SERVER_PORT", "5000"),
		MasterAPIKey:  getEnv("MASTER_API_KEY", ""),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		SentryDSN:     getEnv("SENTRY_DSN", ""),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "mailwarm"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		Dispatcher: getEnv("DISPATCHER", "postal"),
		Postal: PostalConfig{
			APIKey:  getEnv("POSTAL_API_KEY", ""),
			BaseURL: getEnv("POSTAL_BASE_URL", "https://postal.example.com"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		IMAP: IMAPConfig{
			Host:   getEnv("IMAP_HOST", ""),
			Port:   getEnvAsInt("IMAP_PORT", 993),
			UseSSL: getEnvAsBool("IMAP_USE_SSL", true),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),

		SenderAddresses:    splitAddresses(getEnv("SENDER_ADDRESSES", "")),
		RecipientAddresses: splitAddresses(getEnv("RECIPIENT_ADDRESSES", "")),
		RecipientPasswords: parsePasswordMap(getEnv("RECIPIENT_IMAP_PASSWORDS", "")),

		DailySendTime:     getEnv("DAILY_SEND_TIME", "09:00"),
		MinSendDelaySec:   getEnvAsInt("MIN_DELAY_BETWEEN_SENDS_SEC", 2),
		MaxSendDelaySec:   getEnvAsInt("MAX_DELAY_BETWEEN_SENDS_SEC", 5),
		CheckDelayMinutes: getEnvAsInt("CHECK_DELAY_MINUTES", 15),
		CheckInterval:     getEnvAsInt("CHECK_INTERVAL_SEC", 60),
		CheckBatchLimit:   getEnvAsInt("CHECK_BATCH_LIMIT", 50),

		ResumeIncomplete: getEnvAsBool("WARMUP_RESUME_INCOMPLETE", true),

		RateLimitManualSend: getEnvAsInt("RATE_LIMIT_MANUAL_SEND", 3),
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if AppConfig.Dispatcher != "postal" && AppConfig.Dispatcher != "smtp" {
		return fmt.Errorf("DISPATCHER must be \"postal\" or \"smtp\", got %q", AppConfig.Dispatcher)
	}
	if AppConfig.Dispatcher == "postal" && AppConfig.Postal.APIKey == "" {
		return fmt.Errorf("POSTAL_API_KEY is required when DISPATCHER=postal")
	}
	if len(AppConfig.SenderAddresses) == 0 {
		return fmt.Errorf("at least one SENDER_ADDRESSES entry is required")
	}
	if len(AppConfig.RecipientAddresses) == 0 {
		return fmt.Errorf("at least one RECIPIENT_ADDRESSES entry is required")
	}
	if AppConfig.MinSendDelaySec > AppConfig.MaxSendDelaySec {
		return fmt.Errorf("MIN_DELAY_BETWEEN_SENDS_SEC must not exceed MAX_DELAY_BETWEEN_SENDS_SEC")
	}
	for _, addr := range append(AppConfig.SenderAddresses, AppConfig.RecipientAddresses...) {
		if err := checkmail.ValidateFormat(addr); err != nil {
			return fmt.Errorf("invalid email address %q: %w", addr, err)
		}
	}
	if AppConfig.Environment == "production" && AppConfig.MasterAPIKey == "" {
		return fmt.Errorf("MASTER_API_KEY is required in production")
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("✅ Successfully connected to the database")
	log.Println("🔄 Starting database migration...")
	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("✅ Database migration completed")

	if err := models.SeedDefaultSchedule(DB); err != nil {
		return fmt.Errorf("failed to seed warmup schedule: %w", err)
	}
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	switch strings.ToLower(valueStr) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

// splitAddresses parses a comma-separated address list, dropping empties.
func splitAddresses(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// parsePasswordMap parses "email1:pass1,email2:pass2" into a lookup map.
func parsePasswordMap(raw string) map[string]string {
	out := make(map[string]string)
	for _, item := range strings.Split(raw, ",") {
		if email, password, ok := strings.Cut(item, ":"); ok {
			out[strings.TrimSpace(email)] = strings.TrimSpace(password)
		}
	}
	return out
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Dispatcher: %s", AppConfig.Dispatcher)
	log.Printf("IMAP: %s:%d (SSL: %t)", AppConfig.IMAP.Host, AppConfig.IMAP.Port, AppConfig.IMAP.UseSSL)
	log.Printf("Senders: %d, Recipients: %d",
		len(AppConfig.SenderAddresses),
		len(AppConfig.RecipientAddresses))
	log.Printf("Daily send time: %s, pacing %d-%ds, check delay %dm",
		AppConfig.DailySendTime,
		AppConfig.MinSendDelaySec,
		AppConfig.MaxSendDelaySec,
		AppConfig.CheckDelayMinutes)
}

func migrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Email{},
		&models.WarmupSchedule{},
		&models.WarmupExecution{},
		&models.EmailAddress{},
		&models.Statistic{},
	)
}
