package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/weiwangfds/reelfolio/config"
)

// ObjectProvider 对象存储提供商接口
// 各云厂商SDK的差异收敛在实现内部, 对象存储只依赖此接口
type ObjectProvider interface {
	// Name 提供商名称
	Name() string

	// PutObject 上传对象, size 为 -1 表示未知长度
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// GetObject 下载对象
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteObject 删除对象, 对象不存在时不返回错误
	DeleteObject(ctx context.Context, key string) error

	// ObjectExists 检查对象是否存在
	ObjectExists(ctx context.Context, key string) (bool, error)

	// PresignGetURL 生成限时下载链接
	PresignGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// PublicURL 公开读对象的访问地址, 不做I/O
	PublicURL(key string) string

	// TestConnection 测试连接与凭据
	TestConnection(ctx context.Context) error
}

// NewObjectProvider 根据存储类型创建对象存储提供商
func NewObjectProvider(ctx context.Context, provider string, cfg config.ObjectStorageConfig) (ObjectProvider, error) {
	switch provider {
	case config.StorageS3:
		return NewS3Provider(ctx, cfg)
	case config.StorageAliyun:
		return NewAliyunOSSProvider(cfg)
	case config.StorageTencent:
		return NewTencentCOSProvider(cfg)
	case config.StorageQiniu:
		return NewQiniuKodoProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported object storage provider: %s", provider)
	}
}

// joinURL 拼接基础地址与对象键
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// withScheme 为缺少协议的域名补全 https://
func withScheme(domain string) string {
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}
