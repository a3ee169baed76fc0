package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Log    LogConfig
	Proxy  ProxyConfig
}

type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type DBConfig struct {
	Driver  string
	Host    string
	Port    int
	User    string
	Pass    string
	Name    string
	SSLMode string
	Path    string
	DSN     string
}

type LogConfig struct {
	Level  string
	Format string
}

// ProxyConfig controls the outbound "send" client.
type ProxyConfig struct {
	DefaultTimeout      time.Duration
	MaxTimeout          time.Duration
	MaxRedirects        int
	MaxBodyBytes        int64
	AllowPrivateTargets bool
	RateLimit           float64
	RateBurst           int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "data/suar.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("PROXY_DEFAULT_TIMEOUT", "30s")
	v.SetDefault("PROXY_MAX_TIMEOUT", "90s")
	v.SetDefault("PROXY_MAX_REDIRECTS", 5)
	v.SetDefault("PROXY_MAX_BODY_BYTES", 10*1024*1024)
	v.SetDefault("PROXY_ALLOW_PRIVATE_TARGETS", false)
	v.SetDefault("PROXY_RATE_LIMIT", 10.0)
	v.SetDefault("PROXY_RATE_BURST", 20)
}

// LoadConfig reads the configuration from the process environment. Call
// godotenv.Load beforehand to pick up a .env file.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	dbConfig := DBConfig{
		Driver:  strings.ToLower(v.GetString("DB_DRIVER")),
		Host:    v.GetString("DB_HOST"),
		User:    v.GetString("DB_USER"),
		Pass:    v.GetString("DB_PASS"),
		Name:    v.GetString("DB_NAME"),
		SSLMode: v.GetString("DB_SSLMODE"),
		Path:    v.GetString("DB_PATH"),
	}

	switch dbConfig.Driver {
	case DriverPostgres:
		dbPort, err := strconv.Atoi(v.GetString("DB_PORT"))
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %v", err)
		}
		dbConfig.Port = dbPort
		dbConfig.DSN = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			dbConfig.Host, dbConfig.Port, dbConfig.User, dbConfig.Pass, dbConfig.Name, dbConfig.SSLMode,
		)
	case DriverSQLite:
		if dbConfig.Path == "" {
			return nil, fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
		dbConfig.DSN = dbConfig.Path
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %q", dbConfig.Driver)
	}

	serverConfig := ServerConfig{
		Port:           v.GetString("SERVER_PORT"),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   100 * time.Second,
		IdleTimeout:    60 * time.Second,
		AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	proxyConfig := ProxyConfig{
		DefaultTimeout:      v.GetDuration("PROXY_DEFAULT_TIMEOUT"),
		MaxTimeout:          v.GetDuration("PROXY_MAX_TIMEOUT"),
		MaxRedirects:        v.GetInt("PROXY_MAX_REDIRECTS"),
		MaxBodyBytes:        v.GetInt64("PROXY_MAX_BODY_BYTES"),
		AllowPrivateTargets: v.GetBool("PROXY_ALLOW_PRIVATE_TARGETS"),
		RateLimit:           v.GetFloat64("PROXY_RATE_LIMIT"),
		RateBurst:           v.GetInt("PROXY_RATE_BURST"),
	}
	if proxyConfig.DefaultTimeout <= 0 || proxyConfig.MaxTimeout < proxyConfig.DefaultTimeout {
		return nil, fmt.Errorf("invalid proxy timeouts: default=%v max=%v", proxyConfig.DefaultTimeout, proxyConfig.MaxTimeout)
	}
	if proxyConfig.MaxRedirects < 0 {
		return nil, fmt.Errorf("invalid PROXY_MAX_REDIRECTS: %d", proxyConfig.MaxRedirects)
	}

	return &Config{
		Server: serverConfig,
		DB:     dbConfig,
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Proxy: proxyConfig,
	}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
