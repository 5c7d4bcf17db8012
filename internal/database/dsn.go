package database

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// BuildDSN maps the connection parameters onto the database/sql driver name
// and data source name of cfg.Driver.
func BuildDSN(cfg Config) (driverName string, dsn string, err error) {
	host := normalizeHost(cfg.Host)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "sqlserver", "mssql":
		if host == "" {
			return "", "", fmt.Errorf("sql server host is required")
		}
		query := url.Values{}
		if cfg.Name != "" {
			query.Set("database", cfg.Name)
		}
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     host,
			RawQuery: query.Encode(),
		}
		return "sqlserver", u.String(), nil
	case "postgres", "postgresql":
		if host == "" {
			return "", "", fmt.Errorf("postgres host is required")
		}
		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   host,
			Path:   "/" + cfg.Name,
		}
		return "pgx", u.String(), nil
	case "mysql":
		if host == "" {
			return "", "", fmt.Errorf("mysql host is required")
		}
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = host
		mc.DBName = cfg.Name
		mc.ParseTime = true
		return "mysql", mc.FormatDSN(), nil
	case "duckdb":
		// An empty name opens an in-memory database.
		return "duckdb", cfg.Name, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// normalizeHost accepts the ODBC "host,port" spelling used by SQL Server
// connection strings as well as "host:port", and drops a tcp: prefix.
func normalizeHost(raw string) string {
	host := strings.TrimSpace(raw)
	host = strings.TrimPrefix(host, "tcp:")
	if index := strings.LastIndex(host, ","); index > 0 {
		host = host[:index] + ":" + strings.TrimSpace(host[index+1:])
	}
	return host
}
