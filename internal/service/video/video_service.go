// Package service 提供作品集视频目录的业务逻辑
// 包含列表、详情(计入观看)、上传、元数据更新、删除和统计
// 视频文件与数据库记录分开保存: 上传时先写资源再写记录, 删除时先删记录再删资源
package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/database"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
	"github.com/weiwangfds/reelfolio/internal/logger"
	storageservice "github.com/weiwangfds/reelfolio/internal/service/storage"
	"gorm.io/gorm"
)

// FilePart 上传请求中的单个文件
type FilePart struct {
	Filename    string
	ContentType string
	Size        int64
	// Content 需要支持Seek, 类型嗅探后会回到起始位置
	Content io.ReadSeeker
}

// UploadRequest 上传请求
type UploadRequest struct {
	Title       string
	Description string
	Category    string
	IsFeatured  bool
	Video       *FilePart
	Thumbnail   *FilePart
}

// UpdateRequest 元数据更新请求, nil 字段保持不变
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	IsFeatured  *bool   `json:"is_featured"`
}

// Viewer 观看者信息, 写入观看记录
type Viewer struct {
	IP        string
	UserAgent string
}

// DeleteResult 删除结果
type DeleteResult struct {
	// OrphanedAssets 记录已删除但未能删除的资源定位串
	OrphanedAssets []string `json:"orphaned_assets,omitempty"`
}

// VideoStats 视频统计
type VideoStats struct {
	TotalVideos    int64            `json:"total_videos"`
	TotalSize      int64            `json:"total_size"`
	TotalViews     int64            `json:"total_views"`
	FeaturedVideos int64            `json:"featured_videos"`
	CategoryStats  map[string]int64 `json:"category_stats"`
}

// VideoService 视频目录服务接口
type VideoService interface {
	// List 按创建时间倒序返回全部视频, 访问地址由存储计算, 不检查资源是否存在
	List(ctx context.Context) ([]database.Video, error)

	// Get 获取单个视频并计入一次观看
	// 视频文件缺失时返回存储错误且不计入观看; 计数失败只记录日志
	Get(ctx context.Context, id string, viewer Viewer) (*database.Video, error)

	// Stream 获取视频及其资源的访问方式, 不计入观看
	Stream(ctx context.Context, id string) (*database.Video, *storageservice.Resolution, error)

	// Upload 校验并保存视频与可选缩略图, 然后创建记录
	// 校验顺序: 视频文件 -> 标题 -> 视频类型 -> 缩略图类型 -> 大小
	Upload(ctx context.Context, req UploadRequest) (*database.Video, error)

	// Update 部分更新元数据, 不涉及资源
	Update(ctx context.Context, id string, req UpdateRequest) error

	// Delete 删除记录及其资源
	Delete(ctx context.Context, id string) (*DeleteResult, error)

	// Stats 汇总统计
	Stats(ctx context.Context) (*VideoStats, error)

	// ListCategories 按展示顺序返回分类
	ListCategories(ctx context.Context) ([]database.Category, error)
}

// videoService 视频目录服务实现
type videoService struct {
	db        *gorm.DB
	store     storageservice.AssetStore
	cfg       config.UploadConfig
	videoRule mediaRule
	thumbRule mediaRule
}

// NewVideoService 创建视频目录服务
func NewVideoService(db *gorm.DB, store storageservice.AssetStore, cfg config.UploadConfig) VideoService {
	return &videoService{
		db:        db,
		store:     store,
		cfg:       cfg,
		videoRule: newMediaRule("video", cfg.VideoExtensions, videoMIMETypes),
		thumbRule: newMediaRule("thumbnail", cfg.ThumbnailExtensions, thumbnailMIMETypes),
	}
}

// List 获取视频列表
func (s *videoService) List(ctx context.Context) ([]database.Video, error) {
	videos := make([]database.Video, 0)
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&videos).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	for i := range videos {
		s.fillURLs(&videos[i])
	}
	return videos, nil
}

// Get 获取视频详情
func (s *videoService) Get(ctx context.Context, id string, viewer Viewer) (*database.Video, error) {
	video, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.store.Resolve(ctx, video.FilePath)
	if err != nil {
		logger.FromContext(ctx).Errorf("视频文件无法访问: id=%s, locator=%s, 错误=%v", id, video.FilePath, err)
		return nil, err
	}

	result := s.db.WithContext(ctx).Model(&database.Video{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if result.Error != nil {
		logger.Warnf("更新观看次数失败: id=%s, 错误=%v", id, result.Error)
	} else if result.RowsAffected > 0 {
		video.ViewCount++
	}

	view := database.VideoView{
		VideoID:   id,
		ViewerIP:  truncate(viewer.IP, 64),
		UserAgent: truncate(viewer.UserAgent, 512),
	}
	if err := s.db.WithContext(ctx).Create(&view).Error; err != nil {
		logger.Warnf("写入观看记录失败: id=%s, 错误=%v", id, err)
	}

	s.fillURLs(video)
	video.VideoURL = res.URL
	return video, nil
}

// Stream 获取视频资源的访问方式
func (s *videoService) Stream(ctx context.Context, id string) (*database.Video, *storageservice.Resolution, error) {
	video, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.store.Resolve(ctx, video.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return video, res, nil
}

// Upload 上传视频
func (s *videoService) Upload(ctx context.Context, req UploadRequest) (*database.Video, error) {
	if req.Video == nil || req.Video.Content == nil {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "Video file is required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "Title is required")
	}

	videoType, err := s.videoRule.check(req.Video)
	if err != nil {
		return nil, err
	}
	var thumbType string
	if req.Thumbnail != nil {
		if thumbType, err = s.thumbRule.check(req.Thumbnail); err != nil {
			return nil, err
		}
	}

	if req.Video.Size > s.cfg.MaxVideoSize {
		return nil, apperrors.Newf(apperrors.ErrPayloadTooLarge, "Video file exceeds %d bytes", s.cfg.MaxVideoSize)
	}
	if req.Thumbnail != nil && req.Thumbnail.Size > s.cfg.MaxThumbnailSize {
		return nil, apperrors.Newf(apperrors.ErrPayloadTooLarge, "Thumbnail file exceeds %d bytes", s.cfg.MaxThumbnailSize)
	}

	videoLocator, err := s.store.Store(ctx, storageservice.KindVideo, storedName(req.Video.Filename), req.Video.Content, req.Video.Size, videoType)
	if err != nil {
		return nil, err
	}

	var thumbLocator *string
	if req.Thumbnail != nil {
		loc, err := s.store.Store(ctx, storageservice.KindThumbnail, storedName(req.Thumbnail.Filename), req.Thumbnail.Content, req.Thumbnail.Size, thumbType)
		if err != nil {
			logger.FromContext(ctx).Warnf("缩略图写入失败, 已写入的视频成为孤儿资源: %s", videoLocator)
			return nil, err
		}
		thumbLocator = &loc
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = database.DefaultCategory
	}
	size := req.Video.Size
	video := &database.Video{
		ID:            uuid.New().String(),
		Title:         title,
		Description:   req.Description,
		Filename:      filepath.Base(req.Video.Filename),
		FilePath:      videoLocator,
		ThumbnailPath: thumbLocator,
		FileSize:      &size,
		MimeType:      videoType,
		StorageType:   s.store.Name(),
		Category:      category,
		IsFeatured:    req.IsFeatured,
	}

	if err := s.db.WithContext(ctx).Create(video).Error; err != nil {
		orphans := []string{videoLocator}
		if thumbLocator != nil {
			orphans = append(orphans, *thumbLocator)
		}
		logger.FromContext(ctx).Errorf("创建视频记录失败, 已写入的资源成为孤儿资源: %v, 错误=%v", orphans, err)
		return nil, apperrors.Wrap(apperrors.ErrDatabaseInsert, "", err)
	}

	s.fillURLs(video)
	logger.Infof("视频上传成功: id=%s, title=%s, size=%d", video.ID, video.Title, size)
	return video, nil
}

// Update 更新视频元数据
func (s *videoService) Update(ctx context.Context, id string, req UpdateRequest) error {
	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return apperrors.New(apperrors.ErrInvalidParams, "Title is required")
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			category = database.DefaultCategory
		}
		updates["category"] = category
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}
	// 空请求同样刷新更新时间
	updates["updated_at"] = s.db.NowFunc()

	result := s.db.WithContext(ctx).Model(&database.Video{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseUpdate, "", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrVideoNotFound, "")
	}
	logger.Infof("视频元数据已更新: id=%s", id)
	return nil
}

// Delete 删除视频
// 记录删除失败时资源保持不动; 资源删除失败只记录日志并在结果中返回
func (s *videoService) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	video, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&database.Video{})
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseDelete, "", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.New(apperrors.ErrVideoNotFound, "")
	}

	if err := s.db.WithContext(ctx).Where("video_id = ?", id).Delete(&database.VideoView{}).Error; err != nil {
		logger.Warnf("删除观看记录失败: id=%s, 错误=%v", id, err)
	}

	locators := []string{video.FilePath}
	if video.ThumbnailPath != nil && *video.ThumbnailPath != "" {
		locators = append(locators, *video.ThumbnailPath)
	}

	res := &DeleteResult{}
	for _, loc := range locators {
		if err := s.store.Delete(ctx, loc); err != nil {
			logger.FromContext(ctx).Warnf("删除资源失败, 成为孤儿资源: %s, 错误=%v", loc, err)
			res.OrphanedAssets = append(res.OrphanedAssets, loc)
		}
	}

	logger.Infof("视频已删除: id=%s, title=%s", id, video.Title)
	return res, nil
}

// Stats 获取视频统计信息
func (s *videoService) Stats(ctx context.Context) (*VideoStats, error) {
	db := s.db.WithContext(ctx)
	stats := &VideoStats{CategoryStats: make(map[string]int64)}

	var totals struct {
		TotalVideos int64
		TotalSize   int64
		TotalViews  int64
	}
	err := db.Model(&database.Video{}).
		Select("COUNT(*) as total_videos, COALESCE(SUM(file_size), 0) as total_size, COALESCE(SUM(view_count), 0) as total_views").
		Scan(&totals).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	stats.TotalVideos = totals.TotalVideos
	stats.TotalSize = totals.TotalSize
	stats.TotalViews = totals.TotalViews

	if err := db.Model(&database.Video{}).Where("is_featured = ?", true).Count(&stats.FeaturedVideos).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}

	var categories []struct {
		Category string
		Count    int64
	}
	err = db.Model(&database.Video{}).
		Select("category, COUNT(*) as count").
		Group("category").
		Scan(&categories).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	for _, c := range categories {
		stats.CategoryStats[c.Category] = c.Count
	}
	return stats, nil
}

func (s *videoService) find(ctx context.Context, id string) (*database.Video, error) {
	var video database.Video
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrVideoNotFound, "")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return &video, nil
}

func (s *videoService) fillURLs(v *database.Video) {
	v.VideoURL = s.store.URL(v.FilePath)
	if v.ThumbnailPath != nil && *v.ThumbnailPath != "" {
		v.ThumbnailURL = s.store.URL(*v.ThumbnailPath)
	}
}

// storedName 生成存储文件名: 随机UUID + 小写扩展名, 原始文件名只保存在记录中
func storedName(filename string) string {
	return uuid.New().String() + strings.ToLower(filepath.Ext(filename))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
