package database

import (
	"strings"

	"github.com/weiwangfds/reelfolio/config"
	"gorm.io/gorm"
)

// DialectName 返回当前连接的方言名称
func DialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return ""
	}
	return db.Dialector.Name()
}

// IsSQLite 判断是否为SQLite连接
func IsSQLite(db *gorm.DB) bool {
	return DialectName(db) == "sqlite"
}

// IsPostgres 判断是否为Postgres连接
func IsPostgres(db *gorm.DB) bool {
	return DialectName(db) == "postgres"
}

// DetectDriver 根据DSN推断驱动
// postgres:// 或 key=value 形式视为Postgres, 其余视为SQLite文件路径
func DetectDriver(dsn string) string {
	trimmed := strings.TrimSpace(dsn)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return config.DriverPostgres
	case strings.Contains(lower, "host=") && strings.Contains(lower, "dbname="):
		return config.DriverPostgres
	default:
		return config.DriverSQLite
	}
}

// ResolveDriver 返回配置的驱动, 未配置时按DSN推断
func ResolveDriver(cfg config.DatabaseConfig) string {
	if cfg.Driver != "" {
		return cfg.Driver
	}
	return DetectDriver(cfg.DSN)
}
