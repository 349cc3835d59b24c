package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/weiwangfds/reelfolio/config"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
	"github.com/weiwangfds/reelfolio/internal/logger"
)

// defaultPresignExpiry 预签名链接默认有效期
const defaultPresignExpiry = time.Hour

// ObjectStore 对象存储资源存储
// 公开读模式下定位串为对象的公开URL, 私有模式下定位串为对象键, 访问时再生成预签名链接
type ObjectStore struct {
	provider      ObjectProvider
	prefix        string
	publicRead    bool
	presignExpiry time.Duration
}

// NewObjectStore 基于提供商创建对象存储
func NewObjectStore(provider ObjectProvider, cfg config.ObjectStorageConfig) *ObjectStore {
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	return &ObjectStore{
		provider:      provider,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		publicRead:    cfg.PublicRead,
		presignExpiry: expiry,
	}
}

// Name 实现AssetStore接口
func (s *ObjectStore) Name() string {
	return s.provider.Name()
}

func (s *ObjectStore) objectKey(kind Kind, name string) string {
	return path.Join(s.prefix, string(kind), name)
}

// Store 上传对象
func (s *ObjectStore) Store(ctx context.Context, kind Kind, name string, r io.Reader, size int64, contentType string) (string, error) {
	if err := validateName(name); err != nil {
		return "", apperrors.Wrap(apperrors.ErrStorageWrite, "", err)
	}
	key := s.objectKey(kind, name)
	if err := s.provider.PutObject(ctx, key, r, size, contentType); err != nil {
		return "", apperrors.Wrap(apperrors.ErrStorageWrite, "", err)
	}

	locator := key
	if s.publicRead {
		locator = s.provider.PublicURL(key)
	}
	logger.Infof("对象存储写入成功: provider=%s, key=%s", s.provider.Name(), key)
	return locator, nil
}

// Delete 删除对象
func (s *ObjectStore) Delete(ctx context.Context, locator string) error {
	key, err := s.keyFromLocator(locator)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorageDelete, "", err)
	}
	if err := s.provider.DeleteObject(ctx, key); err != nil {
		return apperrors.Wrap(apperrors.ErrStorageDelete, "", err)
	}
	return nil
}

// Resolve 检查对象存在并返回公开URL或预签名URL
func (s *ObjectStore) Resolve(ctx context.Context, locator string) (*Resolution, error) {
	key, err := s.keyFromLocator(locator)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageResolve, "", err)
	}
	exists, err := s.provider.ObjectExists(ctx, key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageResolve, "", err)
	}
	if !exists {
		return nil, apperrors.Wrap(apperrors.ErrStorageResolve, "", fmt.Errorf("object %s not found", key))
	}

	u, err := s.accessURL(ctx, key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageResolve, "", err)
	}
	return &Resolution{URL: u}, nil
}

// URL 返回访问地址; 私有模式下签名在本地完成, 不访问网络
func (s *ObjectStore) URL(locator string) string {
	if s.publicRead && isURL(locator) {
		return locator
	}
	key, err := s.keyFromLocator(locator)
	if err != nil {
		return ""
	}
	u, err := s.accessURL(context.Background(), key)
	if err != nil {
		logger.Warnf("生成访问地址失败: key=%s, 错误=%v", key, err)
		return ""
	}
	return u
}

// Open 下载对象内容
func (s *ObjectStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	key, err := s.keyFromLocator(locator)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageResolve, "", err)
	}
	rc, err := s.provider.GetObject(ctx, key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageResolve, "", err)
	}
	return rc, nil
}

func (s *ObjectStore) accessURL(ctx context.Context, key string) (string, error) {
	if s.publicRead {
		return s.provider.PublicURL(key), nil
	}
	return s.provider.PresignGetURL(ctx, key, s.presignExpiry)
}

// keyFromLocator 从定位串中取出对象键
// 定位串可能是对象键, 也可能是本提供商或其它历史部署生成的公开URL
func (s *ObjectStore) keyFromLocator(locator string) (string, error) {
	if locator == "" {
		return "", fmt.Errorf("empty locator")
	}
	if !isURL(locator) {
		return strings.TrimLeft(locator, "/"), nil
	}

	if base := s.provider.PublicURL(""); base != "" && strings.HasPrefix(locator, base) {
		return strings.TrimPrefix(locator, base), nil
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("invalid locator %q: %w", locator, err)
	}
	key, err := url.PathUnescape(strings.TrimLeft(u.Path, "/"))
	if err != nil || key == "" {
		return "", fmt.Errorf("invalid locator %q", locator)
	}
	return key, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}
