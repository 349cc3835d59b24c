package database

import (
	"time"
)

// DefaultCategory 未指定分类时使用的分类
const DefaultCategory = "general"

// Video 视频元数据模型
// 视频文件本身由资源存储管理, 两者只通过 FilePath / ThumbnailPath 定位串关联
type Video struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`                        // 随机UUID, 会出现在公开URL中
	Title         string    `gorm:"not null;size:255" json:"title"`                      // 标题, 必填
	Description   string    `gorm:"type:text" json:"description"`                        // 描述
	Filename      string    `gorm:"not null;size:255" json:"filename"`                   // 上传时的原始文件名
	FilePath      string    `gorm:"column:file_path;not null;size:1024" json:"file_path"` // 视频定位串
	ThumbnailPath *string   `gorm:"column:thumbnail_path;size:1024" json:"thumbnail_path"`
	Duration      *int64    `json:"duration"`  // 时长(秒)
	FileSize      *int64    `json:"file_size"` // 字节
	MimeType      string    `gorm:"size:100" json:"mime_type"`
	StorageType   string    `gorm:"size:20" json:"storage_type"` // 写入定位串的存储类型
	Category      string    `gorm:"size:50;not null;default:general;index" json:"category"`
	IsFeatured    bool      `gorm:"not null;default:false" json:"is_featured"`
	ViewCount     int64     `gorm:"not null;default:0" json:"view_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// 以下字段由资源存储计算, 不落库
	VideoURL     string `gorm:"-" json:"video_url,omitempty"`
	ThumbnailURL string `gorm:"-" json:"thumbnail_url,omitempty"`
}

// TableName 指定Video模型对应的数据库表名
func (Video) TableName() string {
	return "videos"
}

// Category 视频分类, 仅供前端选择使用, API不强制校验
type Category struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Name         string    `gorm:"uniqueIndex;not null;size:50" json:"name"`
	Label        string    `gorm:"size:100" json:"label"`
	Description  string    `gorm:"type:text" json:"description"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定Category模型对应的数据库表名
func (Category) TableName() string {
	return "categories"
}

// VideoView 视频观看记录
type VideoView struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	VideoID         string    `gorm:"size:36;not null;index" json:"video_id"`
	ViewerIP        string    `gorm:"size:64" json:"viewer_ip"`
	UserAgent       string    `gorm:"size:512" json:"user_agent"`
	WatchedDuration *int64    `json:"watched_duration"`
	WatchedAt       time.Time `gorm:"autoCreateTime" json:"watched_at"`
}

// TableName 指定VideoView模型对应的数据库表名
func (VideoView) TableName() string {
	return "video_analytics"
}
