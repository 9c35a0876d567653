package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendGitHub   = "github"
	BackendDynamoDB = "dynamodb"
)

// Config は起動時に一度だけ組み立て、各コンポーネントへ明示的に渡す設定値です。
type Config struct {
	Port string `yaml:"port"`

	Backend string `yaml:"backend"`

	GitHubToken  string `yaml:"github_token"`
	GitHubRepo   string `yaml:"github_repo"`
	GitHubBranch string `yaml:"github_branch"`
	GitHubAPIURL string `yaml:"github_api_url"`
	GitHubWebURL string `yaml:"github_web_url"`

	DynamoTable    string `yaml:"dynamodb_table"`
	DynamoEndpoint string `yaml:"dynamodb_endpoint"`
	AWSRegion      string `yaml:"aws_region"`

	DatabaseURL string `yaml:"database_url"`

	Locale         string        `yaml:"locale"`
	UTCOffsetHours int           `yaml:"utc_offset_hours"`
	StoreTimeout   time.Duration `yaml:"store_timeout"`

	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// DefaultMaxBodyBytes は Webhook 本文の上限です。
const DefaultMaxBodyBytes int64 = 5 << 20

func Default() Config {
	return Config{
		Port:           "8080",
		Backend:        BackendGitHub,
		GitHubBranch:   "main",
		GitHubAPIURL:   "https://api.github.com",
		GitHubWebURL:   "https://github.com",
		DynamoTable:    "DiaryDocuments",
		AWSRegion:      "us-east-1",
		Locale:         "ja",
		UTCOffsetHours: 9,
		StoreTimeout:   15 * time.Second,
		MaxBodyBytes:   DefaultMaxBodyBytes,
	}
}

// Load は DIARY_CONFIG_FILE の YAML を読み込んだ後、環境変数で上書きします。
func Load() (Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("DIARY_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("PORT", &c.Port)
	setString("STORE_BACKEND", &c.Backend)
	setString("GITHUB_TOKEN", &c.GitHubToken)
	setString("GITHUB_REPO", &c.GitHubRepo)
	setString("GITHUB_BRANCH", &c.GitHubBranch)
	setString("GITHUB_API_URL", &c.GitHubAPIURL)
	setString("GITHUB_WEB_URL", &c.GitHubWebURL)
	setString("DYNAMODB_TABLE", &c.DynamoTable)
	setString("DYNAMODB_ENDPOINT", &c.DynamoEndpoint)
	setString("AWS_REGION", &c.AWSRegion)
	setString("DATABASE_URL", &c.DatabaseURL)
	setString("DIARY_LOCALE", &c.Locale)

	if v := strings.TrimSpace(getenv("DIARY_UTC_OFFSET_HOURS")); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DIARY_UTC_OFFSET_HOURS %q: %w", v, err)
		}
		c.UTCOffsetHours = hours
	}
	if v := strings.TrimSpace(getenv("STORE_TIMEOUT")); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STORE_TIMEOUT %q: %w", v, err)
		}
		c.StoreTimeout = timeout
	}
	if v := strings.TrimSpace(getenv("WEBHOOK_MAX_BODY_BYTES")); v != "" {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid WEBHOOK_MAX_BODY_BYTES %q: %w", v, err)
		}
		c.MaxBodyBytes = limit
	}
	return nil
}

func (c *Config) normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendGitHub
	}
	if c.GitHubBranch == "" {
		c.GitHubBranch = "main"
	}
	c.GitHubAPIURL = strings.TrimRight(c.GitHubAPIURL, "/")
	c.GitHubWebURL = strings.TrimRight(c.GitHubWebURL, "/")
	// タイムアウト無しの無制限ブロックは許可しない
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 15 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

// Configured は選択中のバックエンドに必要な接続先と認証情報が揃っているかを返します。
func (c Config) Configured() bool {
	switch c.Backend {
	case BackendDynamoDB:
		return c.DynamoTable != ""
	default:
		return c.GitHubToken != "" && c.GitHubRepo != ""
	}
}

// Location は日記の日付と時刻を決めるタイムゾーンです。
func (c Config) Location() *time.Location {
	offset := c.UTCOffsetHours * 3600
	name := fmt.Sprintf("UTC%+d", c.UTCOffsetHours)
	if c.UTCOffsetHours == 9 {
		name = "JST"
	}
	return time.FixedZone(name, offset)
}
