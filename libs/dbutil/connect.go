package dbutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/lib/pq" // postgres driver
)

// DBConfig represents the data needed to connect to a database
type DBConfig struct {
	Host               string
	Port               int
	Name               string
	User               string
	Password           string
	SSLMode            string
	MaxOpenConnections int
	MaxIdleConnections int
}

// ConnectPostgres uses the provided information to initialize a postgres connection
func ConnectPostgres(dbconfig *DBConfig) (*sql.DB, error) {
	if dbconfig.User == "" || dbconfig.Host == "" || dbconfig.Name == "" {
		return nil, errors.New("missing one or more of user, host, or name for db config")
	}
	if dbconfig.Port == 0 {
		dbconfig.Port = 5432
	}
	sslMode := dbconfig.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		dbconfig.Host, dbconfig.Port, dbconfig.Name, dbconfig.User, dbconfig.Password, sslMode)
	return open(dsn, dbconfig.MaxOpenConnections, dbconfig.MaxIdleConnections)
}

// ParsePostgresURL converts a postgres:// URL (the DATABASE_URL
// convention) into a DBConfig.
func ParsePostgresURL(databaseURL string) (*DBConfig, error) {
	if databaseURL == "" {
		return nil, errors.New("empty database URL")
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %s", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, fmt.Errorf("unsupported database URL scheme %q", u.Scheme)
	}
	cfg := &DBConfig{
		Host:    u.Hostname(),
		Name:    strings.TrimPrefix(u.Path, "/"),
		SSLMode: u.Query().Get("sslmode"),
	}
	if p := u.Port(); p != "" {
		cfg.Port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid database URL port %q", p)
		}
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}
	return cfg, nil
}

// ConnectPostgresURL connects using a postgres:// URL.
func ConnectPostgresURL(databaseURL string, maxOpen, maxIdle int) (*sql.DB, error) {
	cfg, err := ParsePostgresURL(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxOpenConnections = maxOpen
	cfg.MaxIdleConnections = maxIdle
	return ConnectPostgres(cfg)
}

func open(dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// test the connection to the database by running a ping against it
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if maxOpen != 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle != 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	return db, nil
}
