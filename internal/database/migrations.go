package database

import (
	"github.com/weiwangfds/reelfolio/internal/logger"
	"gorm.io/gorm"
)

// DefaultCategories 前端分类选择器使用的分类, 按展示顺序排列
var DefaultCategories = []Category{
	{Name: "commercial", Label: "Commercial", Description: "Brand and advertising work", DisplayOrder: 1},
	{Name: "short-film", Label: "Short Film", Description: "Narrative short films", DisplayOrder: 2},
	{Name: "music-video", Label: "Music Video", Description: "Music videos", DisplayOrder: 3},
	{Name: "documentary", Label: "Documentary", Description: "Documentary work", DisplayOrder: 4},
	{Name: "experimental", Label: "Experimental", Description: "Experimental pieces", DisplayOrder: 5},
	{Name: DefaultCategory, Label: "General", Description: "Uncategorized videos", DisplayOrder: 6},
}

// Models 返回所有需要迁移的模型, 顺序即复制顺序
func Models() []interface{} {
	return []interface{}{
		&Admin{},
		&Category{},
		&Video{},
		&VideoView{},
	}
}

// Migrate 执行表结构迁移、索引创建和分类初始化, 可重复执行
func Migrate(db *gorm.DB) error {
	logger.Info("开始执行数据库迁移...")

	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	if err := createIndexes(db); err != nil {
		return err
	}
	if err := SeedCategories(db); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建列表查询使用的复合索引
// SQLite 与 Postgres 均支持以下语法
func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// 列表按创建时间倒序
		"CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos(created_at DESC)",
		// 精选视频
		"CREATE INDEX IF NOT EXISTS idx_videos_featured_created ON videos(is_featured, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_video_analytics_watched ON video_analytics(video_id, watched_at DESC)",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			logger.Errorf("创建索引失败: %s, 错误: %v", indexSQL, err)
			return err
		}
	}
	return nil
}

// SeedCategories 初始化默认分类, 已存在的分类保持不变
func SeedCategories(db *gorm.DB) error {
	for _, c := range DefaultCategories {
		category := c
		if err := db.Where(Category{Name: category.Name}).FirstOrCreate(&category).Error; err != nil {
			return err
		}
	}
	return nil
}
