package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
	DriverMySQL     = "mysql"
	DriverDuckDB    = "duckdb"
)

const (
	APITypeAzure  = "azure"
	APITypeOpenAI = "openai"
)

const (
	AuthLevelAnonymous = "anonymous"
	AuthLevelFunction  = "function"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	LLM           LLMConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds the connection parameters of the database that
// questions are answered against.
type DatabaseConfig struct {
	Driver          string
	Host            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// LLMConfig holds the completion endpoint settings. Model is the deployment
// name for the azure API type and the model name for the openai API type.
type LLMConfig struct {
	APIType    string
	BaseURL    string
	APIKey     string
	Model      string
	APIVersion string
	MaxTokens  int
	Timeout    time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Level        string
	FunctionKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	lookup, err := WithDotEnv(os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	return Load(serviceName, lookup)
}

// WithDotEnv returns a lookup that falls back to the dotenv file named by
// ASKDB_DOTENV (default ".env"). Values already present in lookup win. A
// missing file is not an error.
func WithDotEnv(lookup LookupFunc) (LookupFunc, error) {
	path := ".env"
	if raw, ok := lookup("ASKDB_DOTENV"); ok && strings.TrimSpace(raw) != "" {
		path = strings.TrimSpace(raw)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return lookup, nil
		}
		return nil, fmt.Errorf("read dotenv file %q: %w", path, err)
	}
	return func(key string) (string, bool) {
		if value, ok := lookup(key); ok {
			return value, true
		}
		value, ok := values[key]
		return value, ok
	}, nil
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("ASKDB_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid ASKDB_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	steps := []error{
		applyString(lookup, "ASKDB_SERVICE_NAME", &cfg.Service.Name),
		applyString(lookup, "ASKDB_HTTP_ADDR", &cfg.HTTP.Address),
		applyDuration(lookup, "ASKDB_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout),
		applyDuration(lookup, "ASKDB_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout),
		applyDuration(lookup, "ASKDB_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout),
		applyLower(lookup, "SQL_DRIVER", &cfg.Database.Driver),
		applyString(lookup, "SQL_URL", &cfg.Database.Host),
		applyString(lookup, "SQL_DB", &cfg.Database.Name),
		applyString(lookup, "SQL_USER", &cfg.Database.User),
		applyRaw(lookup, "SQL_PASS", &cfg.Database.Password),
		applyInt(lookup, "ASKDB_SQL_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns),
		applyInt(lookup, "ASKDB_SQL_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns),
		applyDuration(lookup, "ASKDB_SQL_CONN_MAX_IDLE_TIME", &cfg.Database.ConnMaxIdleTime),
		applyDuration(lookup, "ASKDB_SQL_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime),
		applyLower(lookup, "OPENAI_API_TYPE", &cfg.LLM.APIType),
		applyString(lookup, "OPENAI_URL", &cfg.LLM.BaseURL),
		applyString(lookup, "OPENAI_API_KEY", &cfg.LLM.APIKey),
		applyString(lookup, "OPENAI_MODEL", &cfg.LLM.Model),
		applyString(lookup, "OPENAI_API_VERSION", &cfg.LLM.APIVersion),
		applyInt(lookup, "ASKDB_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens),
		applyDuration(lookup, "ASKDB_LLM_TIMEOUT", &cfg.LLM.Timeout),
		applyBool(lookup, "ASKDB_LOG_JSON", &cfg.Observability.LogJSON),
		applyLogLevel(lookup, "ASKDB_LOG_LEVEL", &cfg.Observability.LogLevel),
		applyLower(lookup, "ASKDB_AUTH_LEVEL", &cfg.Auth.Level),
		applyString(lookup, "ASKDB_AUTH_FUNCTION_KEYS", &cfg.Auth.FunctionKeys),
	}
	for _, err := range steps {
		if err != nil {
			return Config{}, err
		}
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if !isValidDriver(cfg.Database.Driver) {
		return Config{}, fmt.Errorf("invalid SQL_DRIVER: %q", cfg.Database.Driver)
	}
	if cfg.LLM.APIType != APITypeAzure && cfg.LLM.APIType != APITypeOpenAI {
		return Config{}, fmt.Errorf("invalid OPENAI_API_TYPE: %q", cfg.LLM.APIType)
	}
	if cfg.LLM.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("invalid ASKDB_LLM_MAX_TOKENS: must be > 0")
	}
	if cfg.Auth.Level != AuthLevelAnonymous && cfg.Auth.Level != AuthLevelFunction {
		return Config{}, fmt.Errorf("invalid ASKDB_AUTH_LEVEL: %q", cfg.Auth.Level)
	}
	if cfg.Auth.Level == AuthLevelFunction && cfg.Auth.FunctionKeys == "" {
		return Config{}, fmt.Errorf("ASKDB_AUTH_FUNCTION_KEYS is required when ASKDB_AUTH_LEVEL=function")
	}
	if missing := missingRequired(cfg); len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// missingRequired lists the unset connection variables. An embedded duckdb
// database needs no server credentials and runs in memory when SQL_DB is
// empty.
func missingRequired(cfg Config) []string {
	var missing []string
	if cfg.Database.Driver != DriverDuckDB {
		if cfg.Database.Host == "" {
			missing = append(missing, "SQL_URL")
		}
		if cfg.Database.Name == "" {
			missing = append(missing, "SQL_DB")
		}
		if cfg.Database.User == "" {
			missing = append(missing, "SQL_USER")
		}
		if cfg.Database.Password == "" {
			missing = append(missing, "SQL_PASS")
		}
	}
	if cfg.LLM.BaseURL == "" {
		missing = append(missing, "OPENAI_URL")
	}
	if cfg.LLM.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if cfg.LLM.Model == "" {
		missing = append(missing, "OPENAI_MODEL")
	}
	return missing
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "askdb-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLServer,
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		LLM: LLMConfig{
			APIType:    APITypeAzure,
			APIVersion: "2022-12-01",
			MaxTokens:  200,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Level: AuthLevelAnonymous,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Database.MaxOpenConns = 50
		cfg.Database.MaxIdleConns = 10
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func isValidDriver(driver string) bool {
	switch driver {
	case DriverSQLServer, DriverPostgres, DriverMySQL, DriverDuckDB:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

// applyRaw keeps surrounding whitespace; passwords may legitimately carry it.
func applyRaw(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = raw
	return nil
}

func applyLower(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.ToLower(strings.TrimSpace(raw))
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
