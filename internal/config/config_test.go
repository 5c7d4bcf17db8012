package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func requiredEnv() map[string]string {
	return map[string]string{
		"SQL_URL":        "sql.example.com",
		"SQL_DB":         "sales",
		"SQL_USER":       "reader",
		"SQL_PASS":       "secret",
		"OPENAI_URL":     "https://example.openai.azure.com",
		"OPENAI_API_KEY": "key-1",
		"OPENAI_MODEL":   "text-davinci-003",
	}
}

func withEnv(overrides map[string]string) map[string]string {
	env := requiredEnv()
	for key, value := range overrides {
		env[key] = value
	}
	return env
}

func TestLoadDefaultsForDevProfile(t *testing.T) {
	cfg, err := Load("askdb-api", mapLookup(requiredEnv()))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.Driver != DriverSQLServer {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.Host != "sql.example.com" || cfg.Database.Name != "sales" {
		t.Fatalf("Database = %#v", cfg.Database)
	}
	if cfg.LLM.APIType != APITypeAzure {
		t.Fatalf("LLM.APIType = %q", cfg.LLM.APIType)
	}
	if cfg.LLM.APIVersion != "2022-12-01" {
		t.Fatalf("LLM.APIVersion = %q", cfg.LLM.APIVersion)
	}
	if cfg.LLM.MaxTokens != 200 {
		t.Fatalf("LLM.MaxTokens = %d", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.Timeout != 0 {
		t.Fatalf("LLM.Timeout = %s, want no client timeout", cfg.LLM.Timeout)
	}
	if cfg.Auth.Level != AuthLevelAnonymous {
		t.Fatalf("Auth.Level = %q", cfg.Auth.Level)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	cfg, err := Load("askdb-api", mapLookup(withEnv(map[string]string{"ASKDB_PROFILE": "prod"})))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.MaxOpenConns != 50 {
		t.Fatalf("Database.MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Auth.Level != AuthLevelAnonymous {
		t.Fatalf("Auth.Level = %q", cfg.Auth.Level)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	cfg, err := Load("askdb-api", mapLookup(withEnv(map[string]string{
		"ASKDB_PROFILE":                "test",
		"ASKDB_SERVICE_NAME":           "askdb-custom",
		"ASKDB_HTTP_ADDR":              ":9999",
		"ASKDB_HTTP_READ_TIMEOUT":      "2s",
		"ASKDB_HTTP_WRITE_TIMEOUT":     "3s",
		"ASKDB_LOG_LEVEL":              "error",
		"ASKDB_LOG_JSON":               "false",
		"SQL_DRIVER":                   " Postgres ",
		"SQL_PASS":                     " spaced ",
		"ASKDB_SQL_MAX_OPEN_CONNS":     "42",
		"ASKDB_SQL_MAX_IDLE_CONNS":     "17",
		"ASKDB_SQL_CONN_MAX_LIFETIME":  "1h",
		"OPENAI_API_TYPE":              "openai",
		"OPENAI_API_VERSION":           "2023-05-15",
		"ASKDB_LLM_MAX_TOKENS":         "512",
		"ASKDB_LLM_TIMEOUT":            "21s",
		"ASKDB_AUTH_LEVEL":             "function",
		"ASKDB_AUTH_FUNCTION_KEYS":     "k1,k2",
		"ASKDB_SQL_CONN_MAX_IDLE_TIME": "90s",
	})))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "askdb-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second || cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP timeouts = %s/%s", cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Observability.LogJSON {
		t.Fatal("LogJSON = true, want false")
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.Password != " spaced " {
		t.Fatalf("Database.Password = %q", cfg.Database.Password)
	}
	if cfg.Database.MaxOpenConns != 42 || cfg.Database.MaxIdleConns != 17 {
		t.Fatalf("Database pool = %d/%d", cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime != time.Hour || cfg.Database.ConnMaxIdleTime != 90*time.Second {
		t.Fatalf("Database lifetimes = %s/%s", cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime)
	}
	if cfg.LLM.APIType != APITypeOpenAI {
		t.Fatalf("LLM.APIType = %q", cfg.LLM.APIType)
	}
	if cfg.LLM.APIVersion != "2023-05-15" {
		t.Fatalf("LLM.APIVersion = %q", cfg.LLM.APIVersion)
	}
	if cfg.LLM.MaxTokens != 512 {
		t.Fatalf("LLM.MaxTokens = %d", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.Timeout != 21*time.Second {
		t.Fatalf("LLM.Timeout = %s", cfg.LLM.Timeout)
	}
	if cfg.Auth.Level != AuthLevelFunction || cfg.Auth.FunctionKeys != "k1,k2" {
		t.Fatalf("Auth = %#v", cfg.Auth)
	}
}

func TestLoadReportsAllMissingVariables(t *testing.T) {
	_, err := Load("askdb-api", mapLookup(map[string]string{}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"SQL_URL", "SQL_DB", "SQL_USER", "SQL_PASS", "OPENAI_URL", "OPENAI_API_KEY", "OPENAI_MODEL"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not mention %s", err, key)
		}
	}
}

func TestLoadDuckDBNeedsNoServerCredentials(t *testing.T) {
	cfg, err := Load("askdb-api", mapLookup(map[string]string{
		"SQL_DRIVER":     "duckdb",
		"OPENAI_URL":     "https://example.openai.azure.com",
		"OPENAI_API_KEY": "key-1",
		"OPENAI_MODEL":   "davinci",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Driver != DriverDuckDB {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"ASKDB_PROFILE": "oops"},
		{"ASKDB_HTTP_READ_TIMEOUT": "NaN"},
		{"ASKDB_SQL_MAX_OPEN_CONNS": "oops"},
		{"SQL_DRIVER": "oracle"},
		{"OPENAI_API_TYPE": "bedrock"},
		{"ASKDB_LLM_MAX_TOKENS": "0"},
		{"ASKDB_AUTH_LEVEL": "admin"},
		{"ASKDB_AUTH_LEVEL": "function"},
		{"ASKDB_LOG_JSON": "not-bool"},
		{"ASKDB_LOG_LEVEL": "verbose"},
	}
	for _, env := range tests {
		_, err := Load("askdb-api", mapLookup(withEnv(env)))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func TestWithDotEnvFallsBackToFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "askdb.env")
	if err := os.WriteFile(path, []byte("SQL_DB=from_file\nSQL_USER=file_user\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	lookup, err := WithDotEnv(mapLookup(map[string]string{
		"ASKDB_DOTENV": path,
		"SQL_USER":     "env_user",
	}))
	if err != nil {
		t.Fatalf("WithDotEnv() error = %v", err)
	}
	if value, _ := lookup("SQL_DB"); value != "from_file" {
		t.Fatalf("SQL_DB = %q", value)
	}
	if value, _ := lookup("SQL_USER"); value != "env_user" {
		t.Fatalf("SQL_USER = %q, environment should win", value)
	}
	if _, ok := lookup("SQL_PASS"); ok {
		t.Fatal("SQL_PASS should be unset")
	}
}

func TestWithDotEnvIgnoresMissingFile(t *testing.T) {
	lookup, err := WithDotEnv(mapLookup(map[string]string{
		"ASKDB_DOTENV": filepath.Join(t.TempDir(), "missing.env"),
	}))
	if err != nil {
		t.Fatalf("WithDotEnv() error = %v", err)
	}
	if _, ok := lookup("SQL_DB"); ok {
		t.Fatal("SQL_DB should be unset")
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
