// Package service 提供视频与缩略图资源的存储抽象
// 资源存储有两类实现: 本地磁盘和对象存储(S3/阿里云OSS/腾讯云COS/七牛云Kodo),
// 启动时按配置选择其一, 运行期间不切换
package service

import (
	"context"
	"io"

	"github.com/weiwangfds/reelfolio/config"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
	"github.com/weiwangfds/reelfolio/internal/logger"
)

// Kind 资源种类, 同时决定存储目录/对象前缀
type Kind string

const (
	KindVideo     Kind = "videos"
	KindThumbnail Kind = "thumbnails"
)

// Kinds 全部资源种类
var Kinds = []Kind{KindVideo, KindThumbnail}

// Resolution 定位串解析结果
type Resolution struct {
	// URL 客户端可访问的地址(本地为静态文件路径, 对象存储为公开或预签名URL)
	URL string
	// LocalPath 本地磁盘上的文件路径, 仅本地存储有值
	LocalPath string
}

// AssetStore 资源存储接口
// 定位串(locator)是写入视频记录的字符串, 其格式由具体实现决定
type AssetStore interface {
	// Store 写入资源并返回定位串, size 为 -1 表示未知
	Store(ctx context.Context, kind Kind, name string, r io.Reader, size int64, contentType string) (string, error)

	// Delete 删除资源, 资源已不存在时不返回错误
	Delete(ctx context.Context, locator string) error

	// Resolve 检查资源存在并返回访问方式, 资源缺失时返回存储错误
	Resolve(ctx context.Context, locator string) (*Resolution, error)

	// URL 不做任何I/O, 将定位串映射为访问地址, 用于列表展示
	URL(locator string) string

	// Open 读取资源内容
	Open(ctx context.Context, locator string) (io.ReadCloser, error)

	// Name 存储类型名称, 写入视频记录的 storage_type
	Name() string
}

// NewAssetStore 根据配置创建资源存储
// 对象存储会在创建时测试连接, 失败时返回错误以终止启动
func NewAssetStore(ctx context.Context, cfg config.StorageConfig) (AssetStore, error) {
	switch cfg.Type {
	case config.StorageLocal, "":
		return NewLocalStore(cfg.Local)
	case config.StorageS3, config.StorageAliyun, config.StorageTencent, config.StorageQiniu:
		provider, err := NewObjectProvider(ctx, cfg.Type, cfg.Object)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorageConfig, "", err)
		}
		if err := provider.TestConnection(ctx); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorageConfig, "", err)
		}
		logger.Infof("对象存储连接成功: provider=%s, bucket=%s", cfg.Type, cfg.Object.Bucket)
		return NewObjectStore(provider, cfg.Object), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrStorageProviderNotSupported, "unsupported storage type: %s", cfg.Type)
	}
}
