// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON file and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Storage backends accepted by the -storage option.
const (
	StorageFS = "fs"
	StorageS3 = "s3"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string

	// Config is the path to the Config file.
	Config string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string
	TLSKey  string

	// Storage selects the image blob backend: "fs" or "s3".
	Storage string
	// StorageDir is the root directory of the "fs" backend.
	StorageDir string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	// TokenTTL bounds the lifetime of issued tokens. Zero means tokens never expire.
	TokenTTL time.Duration
	// TokenCleanupInterval is how often expired tokens are purged.
	TokenCleanupInterval time.Duration

	// MaxImageSize is the upper bound of an uploaded recipe image in bytes.
	MaxImageSize int64
}

// fileOptions mirrors Options for the JSON config file. Durations are
// written as Go duration strings ("1h30m").
type fileOptions struct {
	Port                 *string `json:"address"`
	DatabaseDSN          *string `json:"database_dsn"`
	LogLevel             *string `json:"log_level"`
	TLSCert              *string `json:"tls_cert"`
	TLSKey               *string `json:"tls_key"`
	Storage              *string `json:"storage"`
	StorageDir           *string `json:"storage_dir"`
	S3Bucket             *string `json:"s3_bucket"`
	S3Region             *string `json:"s3_region"`
	S3Endpoint           *string `json:"s3_endpoint"`
	S3AccessKey          *string `json:"s3_access_key"`
	S3SecretKey          *string `json:"s3_secret_key"`
	TokenTTL             *string `json:"token_ttl"`
	TokenCleanupInterval *string `json:"token_cleanup_interval"`
	MaxImageSize         *int64  `json:"max_image_size"`
}

// Parse parses the command-line flags, the config file and environment variables
// to set configuration values. It exits the process on malformed input.
func Parse() *Options {
	opts, err := parse(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return opts
}

func parse(args []string, getenv func(string) string) (*Options, error) {
	options := &Options{}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&options.LogLevel, "l", "info", "log level")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "path to TLS certificate")
	fs.StringVar(&options.TLSKey, "tls-key", "", "path to TLS private key")
	fs.StringVar(&options.Storage, "storage", StorageFS, "image storage backend (fs|s3)")
	fs.StringVar(&options.StorageDir, "storage-dir", "storage", "root directory of the fs storage backend")
	fs.StringVar(&options.S3Bucket, "s3-bucket", "recipes", "S3 bucket")
	fs.StringVar(&options.S3Region, "s3-region", "us-east-1", "S3 region")
	fs.StringVar(&options.S3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
	fs.DurationVar(&options.TokenTTL, "token-ttl", 0, "token lifetime, 0 for no expiry")
	fs.DurationVar(&options.TokenCleanupInterval, "token-cleanup-interval", time.Hour, "expired token purge interval")
	fs.Int64Var(&options.MaxImageSize, "max-image-size", 2<<20, "max image size in bytes")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := applyFile(options, data); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if err := applyEnv(options, getenv); err != nil {
		return nil, err
	}

	if options.Storage != StorageFS && options.Storage != StorageS3 {
		return nil, fmt.Errorf("unknown storage backend %q", options.Storage)
	}
	if options.MaxImageSize <= 0 {
		return nil, fmt.Errorf("max image size must be positive")
	}
	if options.TokenTTL > 0 && options.TokenCleanupInterval <= 0 {
		return nil, fmt.Errorf("token cleanup interval must be positive when tokens expire")
	}

	return options, nil
}

func applyFile(options *Options, data []byte) error {
	var f fileOptions
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	setString(&options.Port, f.Port)
	setString(&options.DatabaseDSN, f.DatabaseDSN)
	setString(&options.LogLevel, f.LogLevel)
	setString(&options.TLSCert, f.TLSCert)
	setString(&options.TLSKey, f.TLSKey)
	setString(&options.Storage, f.Storage)
	setString(&options.StorageDir, f.StorageDir)
	setString(&options.S3Bucket, f.S3Bucket)
	setString(&options.S3Region, f.S3Region)
	setString(&options.S3Endpoint, f.S3Endpoint)
	setString(&options.S3AccessKey, f.S3AccessKey)
	setString(&options.S3SecretKey, f.S3SecretKey)
	if f.MaxImageSize != nil {
		options.MaxImageSize = *f.MaxImageSize
	}
	if err := setDuration(&options.TokenTTL, f.TokenTTL); err != nil {
		return fmt.Errorf("token_ttl: %w", err)
	}
	if err := setDuration(&options.TokenCleanupInterval, f.TokenCleanupInterval); err != nil {
		return fmt.Errorf("token_cleanup_interval: %w", err)
	}
	return nil
}

func applyEnv(options *Options, getenv func(string) string) error {
	if serverAddress := getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}
	if v := getenv("STORAGE"); v != "" {
		options.Storage = v
	}
	if v := getenv("STORAGE_DIR"); v != "" {
		options.StorageDir = v
	}
	if v := getenv("S3_BUCKET"); v != "" {
		options.S3Bucket = v
	}
	if v := getenv("S3_REGION"); v != "" {
		options.S3Region = v
	}
	if v := getenv("S3_ENDPOINT"); v != "" {
		options.S3Endpoint = v
	}
	if v := getenv("S3_ACCESS_KEY"); v != "" {
		options.S3AccessKey = v
	}
	if v := getenv("S3_SECRET_KEY"); v != "" {
		options.S3SecretKey = v
	}
	if v := getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
		options.TokenTTL = d
	}
	if v := getenv("TOKEN_CLEANUP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_CLEANUP_INTERVAL: %w", err)
		}
		options.TokenCleanupInterval = d
	}
	if v := getenv("MAX_IMAGE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_IMAGE_SIZE: %w", err)
		}
		options.MaxImageSize = n
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
