package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig        `mapstructure:"server"`
	Database     DatabaseConfig      `mapstructure:"database"`
	Redis        RedisConfig         `mapstructure:"redis"`
	JWT          JWTConfig           `mapstructure:"jwt"`
	OSS          OSSConfig           `mapstructure:"oss"`
	OAuth        OAuthConfig         `mapstructure:"oauth"`
	Email        EmailConfig         `mapstructure:"email"`
	Queue        QueueConfig         `mapstructure:"queue"`
	CORS         CORSConfig          `mapstructure:"cors"`
	Scheduler    SchedulerConfig     `mapstructure:"scheduler"`
	Models       []ModelConfig       `mapstructure:"models"`
	Integrations []IntegrationConfig `mapstructure:"integrations"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	OperationQueue string `mapstructure:"operation_queue"`
	MaxWorkers     int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// SchedulerConfig 定时生成相关配置
type SchedulerConfig struct {
	TickMinutes       int `mapstructure:"tick_minutes"`        // 检查间隔（分钟）
	JobTimeoutMinutes int `mapstructure:"job_timeout_minutes"` // 单个任务最长处理时间
	LLMMaxRetries     int `mapstructure:"llm_max_retries"`     // LLM 调用重试次数
	ManualDailyQuota  int `mapstructure:"manual_daily_quota"`  // 每日手动触发配额
}

// TickInterval 检查间隔，默认一小时
func (c SchedulerConfig) TickInterval() time.Duration {
	minutes := c.TickMinutes
	if minutes <= 0 {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}

// JobTimeout 单任务超时时间，默认 10 分钟
func (c SchedulerConfig) JobTimeout() time.Duration {
	minutes := c.JobTimeoutMinutes
	if minutes <= 0 {
		minutes = 10
	}
	return time.Duration(minutes) * time.Minute
}

type ModelConfig struct {
	Name        string `mapstructure:"name"`
	DisplayName string `mapstructure:"display_name"`
	APIProvider string `mapstructure:"api_provider"`
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Description string `mapstructure:"description"`
}

// IntegrationConfig 第三方活动数据源配置
type IntegrationConfig struct {
	ID      string `mapstructure:"id"`   // calendar / tasks / github
	Type    string `mapstructure:"type"` // 数据源类型，决定使用哪个 adapter
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Enabled bool   `mapstructure:"enabled"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
