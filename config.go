package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Supported ebook storage backends.
const (
	MemoryBackend = "memory"
	RedisBackend  = "redis"
	BoltBackend   = "bolt"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit      string        `yaml:"git_commit" envconfig:"EBAP_GIT_COMMIT"`
	GitTag         string        `yaml:"git_tag" envconfig:"EBAP_GIT_TAG"`
	BuildTime      string        `yaml:"build_time" envconfig:"EBAP_BUILD_TIME"`
	IsProduction   bool          `yaml:"is_production" envconfig:"EBAP_IS_PRODUCTION"`
	LogLevel       zapcore.Level `yaml:"log_level" envconfig:"EBAP_LOG_LEVEL"`
	LogFolder      string        `yaml:"log_folder" envconfig:"EBAP_LOG_FOLDER"`
	LogMaxSize     int           `yaml:"log_max_size" envconfig:"EBAP_LOG_MAX_SIZE"` // in megabytes
	ProfilerEnable bool          `yaml:"profiler_enable" envconfig:"EBAP_PROFILER_ENABLE"`
	Server         ServerConfig  `yaml:"server"`
	Ops            OpsConfig     `yaml:"ops"`
	Storage        StorageConfig `yaml:"storage"`
	Mirror         MirrorConfig  `yaml:"mirror"`
	Redis          RedisConfig   `yaml:"redis"`
	BoltDB         BoltDBConfig  `yaml:"boltdb"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"EBAP_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"EBAP_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"EBAP_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"EBAP_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"EBAP_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"EBAP_SERVER_SHUTDOWN_TIMEOUT"`
}

type OpsConfig struct {
	Enable bool `yaml:"enable" envconfig:"EBAP_OPS_ENABLE"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" envconfig:"EBAP_STORAGE_BACKEND"`
}

// MirrorConfig controls the replication of ebook changes
// into boltdb through the redis queues.
type MirrorConfig struct {
	Enable bool `yaml:"enable" envconfig:"EBAP_MIRROR_ENABLE"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"EBAP_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"EBAP_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"EBAP_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"EBAP_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"EBAP_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"EBAP_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"EBAP_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"EBAP_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"EBAP_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"EBAP_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"EBAP_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"EBAP_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"EBAP_BOLTDB_BUCKET_NAME"`
}

// NeedsRedis tells if a redis connection must be setup.
func (c *Config) NeedsRedis() bool {
	return c.Storage.Backend == RedisBackend || c.Mirror.Enable
}

// NeedsBoltDB tells if a boltdb database must be opened.
func (c *Config) NeedsBoltDB() bool {
	return c.Storage.Backend == BoltBackend || c.Mirror.Enable
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	setDefaults(config)

	switch config.Storage.Backend {
	case MemoryBackend, RedisBackend, BoltBackend:
	default:
		return fmt.Errorf("unknown storage backend %q. use one of memory, redis or bolt", config.Storage.Backend)
	}

	if config.NeedsRedis() && (len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0) {
		return errors.New("make sure to set valid redis address and port in configuration file")
	}

	if config.NeedsBoltDB() && (len(config.BoltDB.FilePath) == 0 || len(config.BoltDB.BucketName) == 0) {
		return errors.New("make sure to set valid boltdb file path and bucket name in configuration file")
	}

	if config.Mirror.Enable && config.Storage.Backend == BoltBackend {
		return errors.New("mirror cannot be enabled when bolt is the primary storage backend")
	}

	return nil
}

func setDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 10 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 15 * time.Second
	}
	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 10 * time.Second
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 30 * time.Second
	}
	if config.Storage.Backend == "" {
		config.Storage.Backend = MemoryBackend
	}
	if config.LogFolder == "" {
		config.LogFolder = "./logs"
	}
	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}
	if config.BoltDB.Timeout == 0 {
		config.BoltDB.Timeout = 5 * time.Second
	}
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The env file is optional.
func LoadAndInitConfigs(configFile, envFile, gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile(configFile)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration.
	err = godotenv.Load(envFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `EBAP`.
	err = LoadConfigEnvs("EBAP", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
