// Package service 提供运维命令使用的管理员初始化与数据库状态查询
package service

import (
	"context"
	"strings"
	"unicode"

	"github.com/weiwangfds/reelfolio/internal/database"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
	"github.com/weiwangfds/reelfolio/internal/logger"
	"github.com/weiwangfds/reelfolio/internal/security"
	"gorm.io/gorm"
)

// recentVideoLimit 状态报告中展示的最近视频数量
const recentVideoLimit = 5

// SetupRequest 管理员初始化请求
type SetupRequest struct {
	Username   string
	Password   string
	SecretPath string // 为空时自动生成
}

// SetupResult 管理员初始化结果
type SetupResult struct {
	Admin               database.Admin
	SecretPath          string
	SecretPathGenerated bool
}

// LoginPath 管理后台登录页路径
func (r *SetupResult) LoginPath() string {
	return "/admin/" + r.SecretPath
}

// TableStatus 单表状态
type TableStatus struct {
	Name   string
	Exists bool
	Rows   int64
}

// RecentVideo 最近上传的视频摘要
type RecentVideo struct {
	ID        string
	Title     string
	Category  string
	CreatedAt string
}

// Status 数据库状态报告, 不包含密码哈希与秘密路径
type Status struct {
	Dialect      string
	Tables       []TableStatus
	AdminNames   []string
	VideoCount   int64
	RecentVideos []RecentVideo
}

// AdminService 运维服务接口
type AdminService interface {
	// SetupAdmin 在一个事务中删除全部管理员并写入一条新记录
	SetupAdmin(ctx context.Context, req SetupRequest) (*SetupResult, error)

	// Status 汇总数据库状态
	Status(ctx context.Context) (*Status, error)
}

type adminService struct {
	db *gorm.DB
}

// NewAdminService 创建运维服务
func NewAdminService(db *gorm.DB) AdminService {
	return &adminService{db: db}
}

// SetupAdmin 初始化管理员
func (s *adminService) SetupAdmin(ctx context.Context, req SetupRequest) (*SetupResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, apperrors.New(apperrors.ErrFieldsRequired, "")
	}

	secretPath := strings.TrimSpace(req.SecretPath)
	generated := false
	if secretPath == "" {
		secretPath = security.GenerateSecretPath()
		generated = true
	}
	if err := validateSecretPath(secretPath); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, "", err)
	}

	admin := database.Admin{
		Username:   username,
		Password:   hash,
		SecretPath: secretPath,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&database.Admin{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrDatabaseDelete, "", err)
		}
		if err := tx.Create(&admin).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrDatabaseInsert, "", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("管理员已设置: id=%d, username=%s", admin.ID, admin.Username)
	return &SetupResult{Admin: admin, SecretPath: secretPath, SecretPathGenerated: generated}, nil
}

// validateSecretPath 秘密路径会作为单个URL片段使用
func validateSecretPath(p string) error {
	if len(p) > database.SecretPathMaxLen {
		return apperrors.Newf(apperrors.ErrInvalidParams, "Secret path must be at most %d characters", database.SecretPathMaxLen)
	}
	for _, r := range p {
		if r == '/' || r == '?' || r == '#' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return apperrors.New(apperrors.ErrInvalidParams, "Secret path must be a single URL segment")
		}
	}
	return nil
}

// Status 查询数据库状态
func (s *adminService) Status(ctx context.Context) (*Status, error) {
	db := s.db.WithContext(ctx)
	status := &Status{Dialect: database.DialectName(s.db)}

	tables := []struct {
		name  string
		model interface{}
	}{
		{"admin", &database.Admin{}},
		{"categories", &database.Category{}},
		{"videos", &database.Video{}},
		{"video_analytics", &database.VideoView{}},
	}
	for _, t := range tables {
		ts := TableStatus{Name: t.name, Exists: db.Migrator().HasTable(t.model)}
		if ts.Exists {
			if err := db.Model(t.model).Count(&ts.Rows).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
			}
		}
		status.Tables = append(status.Tables, ts)
	}

	if status.tableExists("admin") {
		if err := db.Model(&database.Admin{}).Order("id").Pluck("username", &status.AdminNames).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
		}
	}

	if status.tableExists("videos") {
		var videos []database.Video
		err := db.Select("id", "title", "category", "created_at").
			Order("created_at DESC").
			Limit(recentVideoLimit).
			Find(&videos).Error
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
		}
		for _, v := range videos {
			status.RecentVideos = append(status.RecentVideos, RecentVideo{
				ID:        v.ID,
				Title:     v.Title,
				Category:  v.Category,
				CreatedAt: v.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		status.VideoCount = status.rows("videos")
	}
	return status, nil
}

func (s *Status) tableExists(name string) bool {
	for _, t := range s.Tables {
		if t.Name == name {
			return t.Exists
		}
	}
	return false
}

func (s *Status) rows(name string) int64 {
	for _, t := range s.Tables {
		if t.Name == name {
			return t.Rows
		}
	}
	return 0
}
