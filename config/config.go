// Package config 负责加载应用配置
// 优先级: 环境变量 > 配置文件 > 默认值; 启动时会先尝试加载 .env 文件
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/weiwangfds/reelfolio/internal/logger"
)

// 存储类型
const (
	StorageLocal   = "local"
	StorageS3      = "s3"
	StorageAliyun  = "aliyun"
	StorageTencent = "tencent"
	StorageQiniu   = "qiniu"
)

// 数据库驱动
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      logger.Config  `mapstructure:"log"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Language string `mapstructure:"language"`
}

// IsProduction 是否为生产环境
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production") || strings.EqualFold(a.Env, "prod")
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	BasePath     string        `mapstructure:"base_path"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
	EnableHTTP2  bool          `mapstructure:"enable_http2"`
	TLSCertFile  string        `mapstructure:"tls_cert_file"`
	TLSKeyFile   string        `mapstructure:"tls_key_file"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	// RequestLog 是否记录详细请求日志(请求体/响应体)
	RequestLog bool `mapstructure:"request_log"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// UploadConfig 上传限制配置
type UploadConfig struct {
	MaxVideoSize        int64    `mapstructure:"max_video_size"`
	MaxThumbnailSize    int64    `mapstructure:"max_thumbnail_size"`
	MultipartMemory     int64    `mapstructure:"multipart_memory"`
	VideoExtensions     []string `mapstructure:"video_extensions"`
	ThumbnailExtensions []string `mapstructure:"thumbnail_extensions"`
}

// StorageConfig 资源存储配置
type StorageConfig struct {
	Type   string              `mapstructure:"type"`
	Local  LocalStorageConfig  `mapstructure:"local"`
	Object ObjectStorageConfig `mapstructure:"object"`
}

// LocalStorageConfig 本地磁盘存储配置
type LocalStorageConfig struct {
	Dir       string `mapstructure:"dir"`
	URLPrefix string `mapstructure:"url_prefix"`
}

// ObjectStorageConfig 对象存储配置, 适用于 s3 / aliyun / tencent / qiniu
type ObjectStorageConfig struct {
	Bucket        string        `mapstructure:"bucket"`
	Region        string        `mapstructure:"region"`
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Prefix        string        `mapstructure:"prefix"`
	PublicRead    bool          `mapstructure:"public_read"`
	PublicBaseURL string        `mapstructure:"public_base_url"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	UsePathStyle  bool          `mapstructure:"use_path_style"`
}

// legacyEnv 兼容旧部署使用的环境变量名
var legacyEnv = map[string][]string{
	"server.port":               {"PORT"},
	"database.dsn":              {"DATABASE_URL"},
	"database.driver":           {"DB_TYPE"},
	"auth.jwt_secret":           {"JWT_SECRET"},
	"storage.type":              {"STORAGE_TYPE"},
	"storage.local.dir":         {"UPLOAD_DIR"},
	"storage.object.bucket":     {"S3_BUCKET_NAME"},
	"storage.object.region":     {"S3_REGION", "AWS_REGION"},
	"storage.object.access_key": {"AWS_ACCESS_KEY_ID"},
	"storage.object.secret_key": {"AWS_SECRET_ACCESS_KEY"},
	"app.env":                   {"GO_ENV"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "reelfolio")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.language", "en-US")

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.read_timeout", "30m")
	v.SetDefault("server.write_timeout", "30m")
	v.SetDefault("server.enable_tls", false)
	v.SetDefault("server.enable_http2", true)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.request_log", false)

	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "database/portfolio.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("upload.max_video_size", int64(500<<20))
	v.SetDefault("upload.max_thumbnail_size", int64(10<<20))
	v.SetDefault("upload.multipart_memory", int64(8<<20))
	v.SetDefault("upload.video_extensions", []string{".mp4", ".mov", ".avi", ".wmv", ".flv", ".webm", ".mkv"})
	v.SetDefault("upload.thumbnail_extensions", []string{".jpeg", ".jpg", ".png", ".gif", ".webp"})

	v.SetDefault("storage.type", StorageLocal)
	v.SetDefault("storage.local.dir", "uploads")
	v.SetDefault("storage.local.url_prefix", "/uploads")
	v.SetDefault("storage.object.region", "us-east-1")
	v.SetDefault("storage.object.public_read", true)
	v.SetDefault("storage.object.presign_expiry", "1h")

	def := logger.DefaultConfig()
	v.SetDefault("log.level", def.Level)
	v.SetDefault("log.format", def.Format)
	v.SetDefault("log.output", def.Output)
	v.SetDefault("log.file_path", def.FilePath)
	v.SetDefault("log.max_size", def.MaxSize)
	v.SetDefault("log.max_age", def.MaxAge)
	v.SetDefault("log.max_backups", def.MaxBackups)
	v.SetDefault("log.compress", def.Compress)
}

// Load 加载配置
// path 为空时在当前目录和 ./config 下查找 config.yaml, 找不到配置文件不视为错误
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("REELFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		// 带前缀的变量仍然优先
		args := append([]string{key, "REELFOLIO_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize 统一大小写和扩展名格式
func (c *Config) normalize() {
	c.Storage.Type = strings.ToLower(strings.TrimSpace(c.Storage.Type))
	c.Database.Driver = normalizeDriver(c.Database.Driver)
	c.Upload.VideoExtensions = normalizeExtensions(c.Upload.VideoExtensions)
	c.Upload.ThumbnailExtensions = normalizeExtensions(c.Upload.ThumbnailExtensions)
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres
	case "sqlite", "sqlite3":
		return DriverSQLite
	default:
		return strings.ToLower(strings.TrimSpace(driver))
	}
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "", DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Storage.Type {
	case StorageLocal:
		if c.Storage.Local.Dir == "" {
			return errors.New("storage.local.dir is required for local storage")
		}
	case StorageS3, StorageAliyun, StorageTencent, StorageQiniu:
		if c.Storage.Object.Bucket == "" {
			return fmt.Errorf("storage.object.bucket is required for %s storage", c.Storage.Type)
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	if c.Upload.MaxVideoSize <= 0 || c.Upload.MaxThumbnailSize <= 0 {
		return errors.New("upload size limits must be positive")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.Server.EnableTLS && (c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "") {
		return errors.New("tls_cert_file and tls_key_file are required when TLS is enabled")
	}
	return nil
}

// Default 返回只包含默认值的配置, 主要用于测试
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// 默认值均为可解码的基础类型
	_ = v.Unmarshal(&cfg)
	cfg.normalize()
	return &cfg
}
