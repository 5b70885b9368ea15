package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/eugenenazirov/logrouter/internal/logging"
)

// SourceFileName is the INI file holding database and cache settings.
const SourceFileName = "source.ini"

// ErrSourceNotFound is returned when the INI file does not exist.
var ErrSourceNotFound = errors.New("source config not found")

// Postgres holds the [POSTGRES] section.
type Postgres struct {
	DBName   string
	User     string
	Password string
	Host     string
}

// DSN renders a libpq keyword/value connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("dbname=%s user=%s password=%s host=%s", p.DBName, p.User, p.Password, p.Host)
}

// Redis holds the [REDIS] section.
type Redis struct {
	Host string
	Port string
	DB   string
}

// URL renders a redis:// connection URL.
func (r Redis) URL() string {
	return fmt.Sprintf("redis://%s:%s/%s", r.Host, r.Port, r.DB)
}

// Options parses URL into go-redis client options without connecting.
func (r Redis) Options() (*redis.Options, error) {
	opts, err := redis.ParseURL(r.URL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

// Source is the parsed INI file.
type Source struct {
	Postgres Postgres
	Redis    Redis
}

// DefaultSourceFile is source.ini next to the install root.
func DefaultSourceFile() string {
	return filepath.Join(logging.DefaultInstallRoot(), SourceFileName)
}

// LoadSource reads the INI file at path. Every key of both sections is
// required.
func LoadSource(path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Source{}, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return Source{}, fmt.Errorf("stat source config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return Source{}, fmt.Errorf("read source config: %w", err)
	}

	var missing []string
	get := func(key string) string {
		value := strings.TrimSpace(v.GetString(key))
		if value == "" {
			missing = append(missing, key)
		}
		return value
	}

	src := Source{
		Postgres: Postgres{
			DBName:   get("postgres.dbname"),
			User:     get("postgres.user"),
			Password: get("postgres.password"),
			Host:     get("postgres.host"),
		},
		Redis: Redis{
			Host: get("redis.host"),
			Port: get("redis.port"),
			DB:   get("redis.db"),
		},
	}
	if len(missing) > 0 {
		return Source{}, fmt.Errorf("source config %s: missing keys %s", path, strings.Join(missing, ", "))
	}
	return src, nil
}
