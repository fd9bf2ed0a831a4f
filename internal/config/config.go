package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/z26b/storefront/internal/logger"

	"github.com/spf13/viper"
)

// devWindowCap 开发模式下客户端冷却窗口上限
const devWindowCap = 300 * time.Millisecond

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Cart     CartConfig     `mapstructure:"cart"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host                     string `mapstructure:"host"`
	Port                     string `mapstructure:"port"`
	Mode                     string `mapstructure:"mode"` // debug / release
	ReadHeaderTimeoutSeconds int    `mapstructure:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int    `mapstructure:"shutdown_timeout_seconds"`
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// ReadHeaderTimeout 读取请求头超时
func (c ServerConfig) ReadHeaderTimeout() time.Duration {
	if c.ReadHeaderTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ReadHeaderTimeoutSeconds) * time.Second
}

// ShutdownTimeout 优雅退出等待时间，需覆盖数量防抖窗口与一次后端请求
func (c ServerConfig) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// BackendConfig 远端商城接口配置
type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	DevMode        bool   `mapstructure:"dev_mode"`
	DevOpenID      string `mapstructure:"dev_openid"`
	ImageBaseURL   string `mapstructure:"image_base_url"`
}

// Timeout 请求超时时间
func (c BackendConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CartConfig 购物车配置
type CartConfig struct {
	MaxQuantity        int    `mapstructure:"max_quantity"`
	AddCooldownMS      int    `mapstructure:"add_cooldown_ms"`
	UpdateDebounceMS   int    `mapstructure:"update_debounce_ms"`
	Guard              string `mapstructure:"guard"` // local / redis
	SnapshotTTLSeconds int    `mapstructure:"snapshot_ttl_seconds"`
	ResolveConcurrency int    `mapstructure:"resolve_concurrency"`
}

// CheckoutConfig 结算配置
type CheckoutConfig struct {
	SubmitCooldownMS int  `mapstructure:"submit_cooldown_ms"`
	RemarkMaxLength  int  `mapstructure:"remark_max_length"`
	JournalEnabled   bool `mapstructure:"journal_enabled"`
	// JournalRetentionDays 流水保留天数，<=0 表示不清理
	JournalRetentionDays int `mapstructure:"journal_retention_days"`
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 结算流水库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// RateLimitRuleConfig 单条限流规则
type RateLimitRuleConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// RateLimitConfig 接口级限流（依赖 Redis，未启用 Redis 时不生效）
type RateLimitConfig struct {
	CartWrite RateLimitRuleConfig `mapstructure:"cart_write"`
	Submit    RateLimitRuleConfig `mapstructure:"submit"`
}

// AddCooldown 加购冷却窗口
func (c *Config) AddCooldown() time.Duration {
	return c.clientWindow(c.Cart.AddCooldownMS, 500)
}

// UpdateDebounce 数量修改合并窗口
func (c *Config) UpdateDebounce() time.Duration {
	return c.clientWindow(c.Cart.UpdateDebounceMS, 300)
}

// SubmitCooldown 下单防重窗口
func (c *Config) SubmitCooldown() time.Duration {
	return c.clientWindow(c.Checkout.SubmitCooldownMS, 3000)
}

// SnapshotTTL 购物车快照有效期
func (c *Config) SnapshotTTL() time.Duration {
	if c.Cart.SnapshotTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Cart.SnapshotTTLSeconds) * time.Second
}

// JournalRetention 下单流水保留时长，0 表示不清理
func (c *Config) JournalRetention() time.Duration {
	if c.Checkout.JournalRetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.Checkout.JournalRetentionDays) * 24 * time.Hour
}

// clientWindow 开发模式下窗口不超过 300ms
func (c *Config) clientWindow(ms int, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	window := time.Duration(ms) * time.Millisecond
	if c.Backend.DevMode && window > devWindowCap {
		return devWindowCap
	}
	return window
}

// SetDefaults 写入默认配置
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_header_timeout_seconds", 10)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("backend.base_url", "http://localhost:8080/api")
	v.SetDefault("backend.timeout_seconds", 30)
	v.SetDefault("backend.dev_mode", false)
	v.SetDefault("backend.dev_openid", "oTest_dev_openid_001")
	v.SetDefault("backend.image_base_url", "")
	v.SetDefault("cart.max_quantity", 99)
	v.SetDefault("cart.add_cooldown_ms", 500)
	v.SetDefault("cart.update_debounce_ms", 300)
	v.SetDefault("cart.guard", "local")
	v.SetDefault("cart.snapshot_ttl_seconds", 300)
	v.SetDefault("cart.resolve_concurrency", 8)
	v.SetDefault("checkout.submit_cooldown_ms", 3000)
	v.SetDefault("checkout.remark_max_length", 200)
	v.SetDefault("checkout.journal_enabled", true)
	v.SetDefault("checkout.journal_retention_days", 30)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/checkout.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "sf")
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-OpenID",
		"X-Request-ID",
	})
	v.SetDefault("rate_limit.cart_write.window_seconds", 60)
	v.SetDefault("rate_limit.cart_write.max_requests", 120)
	v.SetDefault("rate_limit.submit.window_seconds", 60)
	v.SetDefault("rate_limit.submit.max_requests", 10)
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.GetViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")     // 从当前目录查找
	v.AddConfigPath("../")   // 如果从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹

	SetDefaults(v)

	// 环境变量支持（例如 backend.base_url -> BACKEND_BASE_URL）
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	cfg, err := Unmarshal(v)
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return cfg
}

// Unmarshal 将 viper 实例解析为配置
func Unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Backend.BaseURL), "/")
	if cfg.Cart.MaxQuantity <= 0 {
		cfg.Cart.MaxQuantity = 99
	}
	if cfg.Cart.ResolveConcurrency <= 0 {
		cfg.Cart.ResolveConcurrency = 8
	}
	if cfg.Checkout.RemarkMaxLength <= 0 {
		cfg.Checkout.RemarkMaxLength = 200
	}
	return &cfg, nil
}
