package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "MEMORIES_"

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Storage  StorageConfig  `yaml:"storage" envPrefix:"STORAGE_"`
	JWT      JWTConfig      `yaml:"jwt" envPrefix:"JWT_"`
	Firebase FirebaseConfig `yaml:"firebase" envPrefix:"FIREBASE_"`
	APNs     APNsConfig     `yaml:"apns" envPrefix:"APNS_"`
	Images   ImagesConfig   `yaml:"images" envPrefix:"IMAGES_"`
	DeepLink DeepLinkConfig `yaml:"deeplink" envPrefix:"DEEPLINK_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int      `yaml:"port" env:"PORT"`
	Host           string   `yaml:"host" env:"HOST"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// DatabaseConfig selects and configures the document store
type DatabaseConfig struct {
	Driver string      `yaml:"driver" env:"DRIVER"`
	DSN    string      `yaml:"dsn" env:"DSN"`
	Mongo  MongoConfig `yaml:"mongo" envPrefix:"MONGO_"`
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI      string `yaml:"uri" env:"URI"`
	Database string `yaml:"database" env:"NAME"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// StorageConfig selects and configures the object store
type StorageConfig struct {
	Driver     string           `yaml:"driver" env:"DRIVER"`
	ViewTTL    time.Duration    `yaml:"view_ttl" env:"VIEW_TTL"`
	S3         S3Config         `yaml:"s3" envPrefix:"S3_"`
	Minio      MinioConfig      `yaml:"minio" envPrefix:"MINIO_"`
	Cloudinary CloudinaryConfig `yaml:"cloudinary" envPrefix:"CLOUDINARY_"`
}

// S3Config holds AWS configuration
type S3Config struct {
	Region    string `yaml:"region" env:"REGION"`
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	Prefix    string `yaml:"prefix" env:"PREFIX"`
}

// MinioConfig holds MinIO configuration
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	UseSSL    bool   `yaml:"use_ssl" env:"USE_SSL"`
	Prefix    string `yaml:"prefix" env:"PREFIX"`
}

// CloudinaryConfig holds Cloudinary configuration
type CloudinaryConfig struct {
	CloudName string `yaml:"cloud_name" env:"CLOUD_NAME"`
	APIKey    string `yaml:"api_key" env:"API_KEY"`
	APISecret string `yaml:"api_secret" env:"API_SECRET"`
	Folder    string `yaml:"folder" env:"FOLDER"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string        `yaml:"secret" env:"SECRET"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
}

// FirebaseConfig holds identity provider configuration
type FirebaseConfig struct {
	CredentialsPath string `yaml:"credentials_path" env:"CREDENTIALS_PATH"`
}

// APNsConfig holds push notification configuration. Push is disabled without a certificate.
type APNsConfig struct {
	CertPath   string `yaml:"cert_path" env:"CERT_PATH"`
	Password   string `yaml:"password" env:"PASSWORD"`
	Topic      string `yaml:"topic" env:"TOPIC"`
	Production bool   `yaml:"production" env:"PRODUCTION"`
}

// ImagesConfig holds single-view settings
type ImagesConfig struct {
	Dwell time.Duration `yaml:"dwell" env:"DWELL"`
}

// DeepLinkConfig holds invitation link settings
type DeepLinkConfig struct {
	Scheme string `yaml:"scheme" env:"SCHEME"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Default returns the configuration used for anything left unset
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver: "postgres",
			Mongo:  MongoConfig{Database: "memories"},
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Storage: StorageConfig{
			Driver:  "s3",
			ViewTTL: 15 * time.Minute,
			S3:      S3Config{Region: "us-east-1"},
		},
		JWT:      JWTConfig{SessionTTL: 30 * 24 * time.Hour},
		Images:   ImagesConfig{Dwell: 2 * time.Second},
		DeepLink: DeepLinkConfig{Scheme: "memories"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads configuration from an optional YAML file, then a .env file,
// then MEMORIES_ prefixed environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the selected drivers have what they need
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Images.Dwell <= 0 {
		return errors.New("images.dwell must be positive")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	case "mongo":
		if c.Database.Mongo.URI == "" {
			return errors.New("database.mongo.uri is required for the mongo driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 driver")
		}
	case "minio":
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.Bucket == "" {
			return errors.New("storage.minio endpoint and bucket are required for the minio driver")
		}
	case "cloudinary":
		if c.Storage.Cloudinary.CloudName == "" {
			return errors.New("storage.cloudinary.cloud_name is required for the cloudinary driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.APNs.CertPath != "" && c.APNs.Topic == "" {
		return errors.New("apns.topic is required when apns.cert_path is set")
	}
	return nil
}
