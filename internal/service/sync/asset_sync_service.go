// Package service 在两个资源存储之间迁移视频资源
// 典型场景是从本地磁盘切换到对象存储: 逐条复制视频和缩略图, 然后改写记录中的定位串
package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/weiwangfds/reelfolio/internal/database"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
	"github.com/weiwangfds/reelfolio/internal/logger"
	storageservice "github.com/weiwangfds/reelfolio/internal/service/storage"
	"gorm.io/gorm"
)

// ErrSameStore 源存储与目标存储相同
var ErrSameStore = errors.New("source and target asset stores are the same")

// SyncStatus 单条视频的迁移结果
type SyncStatus string

const (
	SyncCopied  SyncStatus = "copied"
	SyncSkipped SyncStatus = "skipped"
	SyncFailed  SyncStatus = "failed"
)

// SyncItem 单条视频的迁移记录
type SyncItem struct {
	VideoID string
	Title   string
	Status  SyncStatus
	Error   string
}

// SyncReport 迁移报告
type SyncReport struct {
	Items []SyncItem
}

// Count 统计指定状态的条目数
func (r *SyncReport) Count(status SyncStatus) int {
	n := 0
	for _, item := range r.Items {
		if item.Status == status {
			n++
		}
	}
	return n
}

// AssetSyncService 资源迁移服务接口
type AssetSyncService interface {
	// SyncVideo 迁移单条视频, 已在目标存储中的视频直接跳过
	SyncVideo(ctx context.Context, id string) (SyncStatus, error)

	// SyncAll 迁移全部视频; 单条失败不中断, 失败情况写入报告
	SyncAll(ctx context.Context) (*SyncReport, error)
}

type assetSyncService struct {
	db           *gorm.DB
	from         storageservice.AssetStore
	to           storageservice.AssetStore
	deleteSource bool
}

// NewAssetSyncService 创建资源迁移服务
// deleteSource 为 true 时, 记录改写成功后删除源存储中的资源
func NewAssetSyncService(db *gorm.DB, from, to storageservice.AssetStore, deleteSource bool) (AssetSyncService, error) {
	if from.Name() == to.Name() {
		return nil, ErrSameStore
	}
	return &assetSyncService{db: db, from: from, to: to, deleteSource: deleteSource}, nil
}

// SyncAll 迁移全部视频
func (s *assetSyncService) SyncAll(ctx context.Context) (*SyncReport, error) {
	var videos []database.Video
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&videos).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	logger.Infof("开始迁移资源: %s -> %s, 共 %d 条视频", s.from.Name(), s.to.Name(), len(videos))

	report := &SyncReport{Items: make([]SyncItem, 0, len(videos))}
	for i := range videos {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		item := SyncItem{VideoID: videos[i].ID, Title: videos[i].Title}
		status, err := s.syncVideo(ctx, &videos[i])
		item.Status = status
		if err != nil {
			item.Error = err.Error()
			logger.Errorf("视频资源迁移失败: id=%s, err=%v", videos[i].ID, err)
		}
		report.Items = append(report.Items, item)
	}

	logger.Infof("资源迁移完成: 复制 %d, 跳过 %d, 失败 %d",
		report.Count(SyncCopied), report.Count(SyncSkipped), report.Count(SyncFailed))
	return report, nil
}

// SyncVideo 迁移单条视频
func (s *assetSyncService) SyncVideo(ctx context.Context, id string) (SyncStatus, error) {
	var video database.Video
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SyncFailed, apperrors.New(apperrors.ErrVideoNotFound, "")
		}
		return SyncFailed, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return s.syncVideo(ctx, &video)
}

// syncVideo 先复制资源再改写记录, 中途失败时源资源保持可用
func (s *assetSyncService) syncVideo(ctx context.Context, video *database.Video) (SyncStatus, error) {
	if video.StorageType == s.to.Name() {
		return SyncSkipped, nil
	}

	size := int64(-1)
	if video.FileSize != nil {
		size = *video.FileSize
	}
	fileLocator, err := s.copyAsset(ctx, storageservice.KindVideo, video.FilePath, size, video.MimeType)
	if err != nil {
		return SyncFailed, err
	}

	var thumbLocator *string
	if video.ThumbnailPath != nil && *video.ThumbnailPath != "" {
		loc, err := s.copyAsset(ctx, storageservice.KindThumbnail, *video.ThumbnailPath, -1, "")
		if err != nil {
			s.discard(ctx, fileLocator)
			return SyncFailed, err
		}
		thumbLocator = &loc
	}

	result := s.db.WithContext(ctx).Model(&database.Video{}).
		Where("id = ? AND storage_type = ?", video.ID, video.StorageType).
		Updates(map[string]interface{}{
			"file_path":      fileLocator,
			"thumbnail_path": thumbLocator,
			"storage_type":   s.to.Name(),
		})
	if result.Error != nil || result.RowsAffected == 0 {
		s.discard(ctx, fileLocator)
		if thumbLocator != nil {
			s.discard(ctx, *thumbLocator)
		}
		if result.Error != nil {
			return SyncFailed, apperrors.Wrap(apperrors.ErrDatabaseUpdate, "", result.Error)
		}
		// 期间记录被删除或已被其他进程迁移
		return SyncSkipped, nil
	}

	if s.deleteSource {
		s.discardSource(ctx, video.FilePath)
		if video.ThumbnailPath != nil && *video.ThumbnailPath != "" {
			s.discardSource(ctx, *video.ThumbnailPath)
		}
	}
	logger.Infof("视频资源已迁移: id=%s, %s -> %s", video.ID, video.FilePath, fileLocator)
	return SyncCopied, nil
}

// copyAsset 从源存储读取资源并以原文件名写入目标存储, size 为 -1 表示未知
func (s *assetSyncService) copyAsset(ctx context.Context, kind storageservice.Kind, locator string, size int64, contentType string) (string, error) {
	name := assetName(locator)
	if name == "" {
		return "", apperrors.Newf(apperrors.ErrStorageResolve, "invalid asset locator: %s", locator)
	}

	r, err := s.from.Open(ctx, locator)
	if err != nil {
		return "", err
	}
	defer r.Close()

	loc, err := s.to.Store(ctx, kind, name, r, size, contentType)
	if err != nil {
		return "", fmt.Errorf("copy %s: %w", locator, err)
	}
	return loc, nil
}

func (s *assetSyncService) discard(ctx context.Context, locator string) {
	if err := s.to.Delete(ctx, locator); err != nil {
		logger.Warnf("清理目标存储中的资源失败, 需要手动处理: %s, err=%v", locator, err)
	}
}

func (s *assetSyncService) discardSource(ctx context.Context, locator string) {
	if err := s.from.Delete(ctx, locator); err != nil {
		logger.Warnf("删除源资源失败, 需要手动处理: %s, err=%v", locator, err)
	}
}

// assetName 取定位串的最后一段作为文件名, 兼容本地路径/对象键/公开URL
func assetName(locator string) string {
	if i := strings.IndexAny(locator, "?#"); i >= 0 {
		locator = locator[:i]
	}
	name := path.Base(strings.TrimRight(locator, "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
