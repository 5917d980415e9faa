// Package config loads the application configuration from defaults, an
// optional JSON file, environment variables (with .env support) and
// command-line flags, in that order of increasing priority.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every externally configurable value of the service.
type Config struct {
	ConfigFile string `env:"CONFIG" json:"-"`

	RunAddr  string `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	LogLevel string `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`

	DatabaseDSN         string        `env:"DATABASE_URL" json:"database_url"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"storagepath"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"-" validate:"gt=0"`

	SecretKey         string        `env:"SECRET_KEY" json:"secret_key" validate:"required,min=8"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" json:"session_cookie_name" validate:"required"`
	SessionTTL        time.Duration `env:"SESSION_TTL" json:"-" validate:"gt=0"`
	SecureCookies     bool          `env:"SECURE_COOKIES" json:"secure_cookies"`
	RedisURL          string        `env:"REDIS_URL" json:"redis_url" validate:"omitempty,url"`

	CatAPIBaseURL  string        `env:"CAT_API_BASE_URL" json:"cat_api_base_url" validate:"url"`
	CatAPIKey      string        `env:"CAT_API_KEY" json:"cat_api_key"`
	CatAPITimeout  time.Duration `env:"CAT_API_TIMEOUT" json:"-" validate:"gt=0"`
	BreedsCacheTTL time.Duration `env:"BREEDS_CACHE_TTL" json:"-" validate:"gte=0"`
	ImagesPerBreed int           `env:"IMAGES_PER_BREED" json:"images_per_breed" validate:"min=1,max=25"`

	TrustedSubnet string `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`

	GRPCAddr string `env:"GRPC_ADDRESS" json:"grpc_address" validate:"omitempty,hostname_port"`
}

// fileConfig mirrors Config for the JSON file, where durations are written
// as strings like "10s".
type fileConfig struct {
	Config
	DBConnectionTimeout string `json:"db_connection_timeout"`
	SessionTTL          string `json:"session_ttl"`
	CatAPITimeout       string `json:"cat_api_timeout"`
	BreedsCacheTTL      string `json:"breeds_cache_ttl"`
}

// DefaultSecretKey signs session cookies when SECRET_KEY is not set. It is
// fine for development only.
const DefaultSecretKey = "it's a secret"

var defaultConfig = Config{
	RunAddr:             ":8080",
	LogLevel:            "info",
	DatabaseDSN:         "",
	DBFileName:          "",
	DBConnectionTimeout: 10 * time.Second,
	SecretKey:           DefaultSecretKey,
	SessionCookieName:   "catfinder_session",
	SessionTTL:          24 * time.Hour,
	SecureCookies:       false,
	RedisURL:            "",
	CatAPIBaseURL:       "https://api.thecatapi.com/v1",
	CatAPIKey:           "",
	CatAPITimeout:       10 * time.Second,
	BreedsCacheTTL:      0,
	ImagesPerBreed:      5,
	TrustedSubnet:       "",
	GRPCAddr:            "",
}

// InitOption configures New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips command-line flags, which is what tests want.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs replaces os.Args[1:] as the source of command-line flags.
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New builds a validated Config: defaults < JSON file < env < flags.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	var valuesFromEnv Config
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, err
	}

	configFile := valuesFromEnv.ConfigFile
	if !options.disableFlagsParsing {
		if fromFlag := lookupConfigFlag(options.args); fromFlag != "" {
			configFile = fromFlag
		}
	}

	if configFile != "" {
		if err := values.loadJSON(configFile); err != nil {
			return nil, err
		}
		values.ConfigFile = configFile
	}

	applyNonZero(values, &valuesFromEnv)

	if !options.disableFlagsParsing {
		if err := values.parseFlags(options.args); err != nil {
			return nil, err
		}
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

// applyNonZero copies every non-zero field of src over dst.
func applyNonZero(dst, src *Config) {
	if src.RunAddr != "" {
		dst.RunAddr = src.RunAddr
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.DatabaseDSN != "" {
		dst.DatabaseDSN = src.DatabaseDSN
	}
	if src.DBFileName != "" {
		dst.DBFileName = src.DBFileName
	}
	if src.DBConnectionTimeout != 0 {
		dst.DBConnectionTimeout = src.DBConnectionTimeout
	}
	if src.SecretKey != "" {
		dst.SecretKey = src.SecretKey
	}
	if src.SessionCookieName != "" {
		dst.SessionCookieName = src.SessionCookieName
	}
	if src.SessionTTL != 0 {
		dst.SessionTTL = src.SessionTTL
	}
	if src.SecureCookies {
		dst.SecureCookies = true
	}
	if src.RedisURL != "" {
		dst.RedisURL = src.RedisURL
	}
	if src.CatAPIBaseURL != "" {
		dst.CatAPIBaseURL = src.CatAPIBaseURL
	}
	if src.CatAPIKey != "" {
		dst.CatAPIKey = src.CatAPIKey
	}
	if src.CatAPITimeout != 0 {
		dst.CatAPITimeout = src.CatAPITimeout
	}
	if src.BreedsCacheTTL != 0 {
		dst.BreedsCacheTTL = src.BreedsCacheTTL
	}
	if src.ImagesPerBreed != 0 {
		dst.ImagesPerBreed = src.ImagesPerBreed
	}
	if src.TrustedSubnet != "" {
		dst.TrustedSubnet = src.TrustedSubnet
	}
	if src.GRPCAddr != "" {
		dst.GRPCAddr = src.GRPCAddr
	}
}

func (c *Config) loadJSON(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	var fromFile fileConfig
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{fromFile.DBConnectionTimeout, &fromFile.Config.DBConnectionTimeout},
		{fromFile.SessionTTL, &fromFile.Config.SessionTTL},
		{fromFile.CatAPITimeout, &fromFile.Config.CatAPITimeout},
		{fromFile.BreedsCacheTTL, &fromFile.Config.BreedsCacheTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("in internal/config/config.go/loadJSON(): bad duration %q: %w", d.raw, err)
		}
		*d.dst = parsed
	}

	applyNonZero(c, &fromFile.Config)

	return nil
}

func lookupConfigFlag(args []string) string {
	for i, arg := range args {
		switch {
		case (arg == "-c" || arg == "--c") && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(arg, "-c="):
			return strings.TrimPrefix(arg, "-c=")
		case strings.HasPrefix(arg, "--c="):
			return strings.TrimPrefix(arg, "--c=")
		}
	}

	return ""
}

func (c *Config) parseFlags(args []string) error {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.StringVar(&c.RunAddr, "a", c.RunAddr, "address and port to run server")
	fs.StringVar(&c.LogLevel, "l", c.LogLevel, "logger level")
	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "a string with the database connection details")
	fs.StringVar(&c.DBFileName, "f", c.DBFileName, "SQLite file used when no database DSN is given")
	fs.StringVar(&c.RedisURL, "r", c.RedisURL, "redis URL for the session store")
	fs.StringVar(&c.CatAPIBaseURL, "u", c.CatAPIBaseURL, "base URL of the breed catalog API")
	fs.StringVar(&c.TrustedSubnet, "t", c.TrustedSubnet, "CIDR allowed to read /metrics")
	fs.StringVar(&c.GRPCAddr, "g", c.GRPCAddr, "address of the gRPC health endpoint, disabled when empty")
	fs.StringVar(&c.ConfigFile, "c", c.ConfigFile, "JSON configuration file")

	return fs.Parse(args)
}

func validateStoragePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || errors.Is(err, os.ErrNotExist)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("storagepath", validateStoragePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// UsesDefaultSecretKey reports whether session cookies are signed with the
// built-in development key.
func (c *Config) UsesDefaultSecretKey() bool {
	return c.SecretKey == DefaultSecretKey
}
