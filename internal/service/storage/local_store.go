package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/weiwangfds/reelfolio/config"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
	"github.com/weiwangfds/reelfolio/internal/logger"
)

// stagingDir 上传中的临时文件目录, 与资源目录同处根目录下以保证重命名是原子的, 不对外提供
const stagingDir = ".tmp"

// LocalStore 本地磁盘资源存储
// 文件写入 <dir>/<kind>/<name>, 定位串为 <url_prefix>/<kind>/<name>, 由路由按种类以静态文件方式提供
type LocalStore struct {
	root      string
	urlPrefix string
}

// NewLocalStore 创建本地存储并确保目录存在
func NewLocalStore(cfg config.LocalStorageConfig) (*LocalStore, error) {
	root, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageConfig, "", err)
	}
	for _, kind := range Kinds {
		if err := os.MkdirAll(filepath.Join(root, string(kind)), 0755); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorageConfig, "", fmt.Errorf("create %s dir: %w", kind, err))
		}
	}
	if err := os.MkdirAll(filepath.Join(root, stagingDir), 0700); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageConfig, "", fmt.Errorf("create staging dir: %w", err))
	}

	prefix := "/" + strings.Trim(cfg.URLPrefix, "/")
	if prefix == "/" {
		prefix = "/uploads"
	}
	logger.Infof("本地资源存储目录: %s, URL前缀: %s", root, prefix)
	return &LocalStore{root: root, urlPrefix: prefix}, nil
}

// KindDir 指定种类资源的磁盘目录
func (s *LocalStore) KindDir(kind Kind) string {
	return filepath.Join(s.root, string(kind))
}

// KindURLPrefix 指定种类资源的静态文件URL前缀
func (s *LocalStore) KindURLPrefix(kind Kind) string {
	return path.Join(s.urlPrefix, string(kind))
}

// Name 实现AssetStore接口
func (s *LocalStore) Name() string {
	return config.StorageLocal
}

// Store 先写入暂存目录的临时文件, 完成后重命名到资源目录, 读者不会看到写了一半的文件
func (s *LocalStore) Store(ctx context.Context, kind Kind, name string, r io.Reader, size int64, contentType string) (string, error) {
	if err := validateName(name); err != nil {
		return "", apperrors.Wrap(apperrors.ErrStorageWrite, "", err)
	}
	if !isKind(kind) {
		return "", apperrors.Wrap(apperrors.ErrStorageWrite, "", fmt.Errorf("unknown asset kind %q", kind))
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, stagingDir), "upload-*")
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrStorageWrite, "", err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", apperrors.Wrap(apperrors.ErrStorageWrite, "", err)
	}

	finalPath := filepath.Join(s.KindDir(kind), name)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", apperrors.Wrap(apperrors.ErrStorageWrite, "", err)
	}

	locator := path.Join(s.urlPrefix, string(kind), name)
	logger.Infof("本地存储写入成功: %s (%d bytes)", locator, written)
	return locator, nil
}

// Delete 删除本地文件, 文件不存在视为成功
func (s *LocalStore) Delete(ctx context.Context, locator string) error {
	p, err := s.localPath(locator)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorageDelete, "", err)
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warnf("待删除的本地文件不存在: %s", locator)
			return nil
		}
		return apperrors.Wrap(apperrors.ErrStorageDelete, "", err)
	}
	return nil
}

// Resolve 检查文件存在
func (s *LocalStore) Resolve(ctx context.Context, locator string) (*Resolution, error) {
	p, err := s.localPath(locator)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageResolve, "", err)
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageResolve, "", err)
	}
	if info.IsDir() {
		return nil, apperrors.Wrap(apperrors.ErrStorageResolve, "", fmt.Errorf("%s is a directory", locator))
	}
	return &Resolution{URL: s.URL(locator), LocalPath: p}, nil
}

// URL 本地定位串本身就是静态文件路径
func (s *LocalStore) URL(locator string) string {
	return locator
}

// Open 打开本地文件
func (s *LocalStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	p, err := s.localPath(locator)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageResolve, "", err)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageResolve, "", err)
	}
	return f, nil
}

// localPath 将定位串映射为资源目录下的文件路径, 拒绝越出资源目录的定位串
func (s *LocalStore) localPath(locator string) (string, error) {
	rel := strings.TrimPrefix(locator, s.urlPrefix+"/")
	if rel == locator || rel == "" {
		return "", fmt.Errorf("locator %q is outside %s", locator, s.urlPrefix)
	}
	cleaned := path.Clean("/" + rel)
	if cleaned != "/"+rel {
		return "", fmt.Errorf("locator %q is not canonical", locator)
	}
	kind, _, _ := strings.Cut(rel, "/")
	if !isKind(Kind(kind)) {
		return "", fmt.Errorf("locator %q is not under an asset directory", locator)
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

func isKind(kind Kind) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid asset name %q", name)
	}
	return nil
}

// ctxReader 在上下文取消后停止读取, 客户端断开时尽早中止写入
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
