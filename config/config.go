package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// DefaultSources is the fixed set of site identifiers, in the order used to
// break ties between sources.
var DefaultSources = []string{"laptopclinic", "jumia", "masoko", "phoneplacekenya"}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SQLitePath string

	NATSURL     string
	NATSSubject string

	InputPaths    []string
	OutputDir     string
	CSVOutputPath string

	MaxConcurrency int
	MaxRetries     int
	LogLevel       string
	TopN           int

	VocabularyPath   string
	FuzzyThreshold   float64
	SourceOrder      []string
	DefaultCurrency  string
	PriceCorrections map[string]decimal.Decimal
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	outputDir := getEnv("OUTPUT_DIR", "./output")

	return &Config{
		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "ecommerce_user"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "ecommerce_password"),
		PostgresDB:       getEnv("POSTGRES_DB", "ecommerce_price_comparison"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SQLitePath: getEnv("SQLITE_PATH", ""),

		NATSURL:     getEnv("NATS_URL", ""),
		NATSSubject: getEnv("NATS_SUBJECT", "pricing.comparisons"),

		InputPaths:    getEnvList("INPUT_PATHS", []string{"./data/listings.jsonl"}),
		OutputDir:     outputDir,
		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", outputDir+"/standardized_listings.csv"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		TopN:           getEnvInt("REPORT_TOP_N", 10),

		VocabularyPath:   getEnv("VOCABULARY_PATH", ""),
		FuzzyThreshold:   getEnvFloat("FUZZY_THRESHOLD", 0.85),
		SourceOrder:      getEnvList("SOURCES", DefaultSources),
		DefaultCurrency:  getEnv("DEFAULT_CURRENCY", "KES"),
		PriceCorrections: parseCorrections(getEnv("PRICE_CORRECTIONS", "jumia:1000")),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// parseCorrections reads "source:factor" pairs separated by commas. Entries
// that do not parse, or whose factor is not positive, are skipped.
func parseCorrections(raw string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		source, factor, ok := strings.Cut(pair, ":")
		if !ok {
			log.Printf("[config] Ignoring price correction %q: want source:factor", pair)
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(factor))
		if err != nil || !d.IsPositive() {
			log.Printf("[config] Ignoring price correction %q: bad factor", pair)
			continue
		}
		out[strings.ToLower(strings.TrimSpace(source))] = d
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
