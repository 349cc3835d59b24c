package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qiniu/go-sdk/v7/auth/qbox"
	"github.com/qiniu/go-sdk/v7/storage"
	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/logger"
)

// QiniuKodoProvider 七牛云Kodo提供商实现
// 七牛的公开/私有属性在存储桶级别设置, 上传时不附带ACL
type QiniuKodoProvider struct {
	mac           *qbox.Mac
	bucketName    string
	bucketDomain  string
	region        *storage.Region
	publicBaseURL string
	httpClient    *http.Client
}

// NewQiniuKodoProvider 创建七牛云Kodo提供商
// endpoint 配置为存储桶绑定的下载域名, 未配置时使用区域默认域名
func NewQiniuKodoProvider(cfg config.ObjectStorageConfig) (*QiniuKodoProvider, error) {
	mac := qbox.NewMac(cfg.AccessKey, cfg.SecretKey)

	region, err := storage.GetRegion(cfg.AccessKey, cfg.Bucket)
	if err != nil {
		logger.Errorf("获取七牛云区域失败: 存储桶=%s, 错误=%v", cfg.Bucket, err)
		return nil, fmt.Errorf("failed to get qiniu region: %w", err)
	}

	bucketDomain := cfg.Endpoint
	if bucketDomain == "" {
		bucketDomain = fmt.Sprintf("%s.%s", cfg.Bucket, region.RsHost)
	}
	bucketDomain = strings.TrimRight(withScheme(bucketDomain), "/")

	logger.Infof("创建七牛云Kodo提供商: 存储桶=%s, 域名=%s", cfg.Bucket, bucketDomain)
	return &QiniuKodoProvider{
		mac:           mac,
		bucketName:    cfg.Bucket,
		bucketDomain:  bucketDomain,
		region:        region,
		publicBaseURL: cfg.PublicBaseURL,
		httpClient:    &http.Client{},
	}, nil
}

// Name 实现ObjectProvider接口
func (p *QiniuKodoProvider) Name() string {
	return config.StorageQiniu
}

func (p *QiniuKodoProvider) bucketManager() *storage.BucketManager {
	return storage.NewBucketManager(p.mac, &storage.Config{
		Region:   p.region,
		UseHTTPS: true,
	})
}

// PutObject 使用表单上传对象
func (p *QiniuKodoProvider) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	putPolicy := storage.PutPolicy{
		Scope: fmt.Sprintf("%s:%s", p.bucketName, key),
	}
	upToken := putPolicy.UploadToken(p.mac)

	cfg := storage.Config{
		Region:        p.region,
		UseHTTPS:      true,
		UseCdnDomains: false,
	}
	formUploader := storage.NewFormUploader(&cfg)
	ret := storage.PutRet{}
	putExtra := storage.PutExtra{}
	if contentType != "" {
		putExtra.MimeType = contentType
	}

	if err := formUploader.Put(ctx, &ret, upToken, key, r, size, &putExtra); err != nil {
		logger.Errorf("文件上传失败: 对象键=%s, 错误=%v", key, err)
		return fmt.Errorf("failed to upload file to qiniu kodo: %w", err)
	}
	logger.Debugf("文件上传成功: 对象键=%s, 哈希值=%s", key, ret.Hash)
	return nil
}

// GetObject 通过私有下载链接读取对象
func (p *QiniuKodoProvider) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	privateURL, err := p.PresignGetURL(ctx, key, time.Hour)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, privateURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build qiniu download request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file from qiniu kodo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download file from qiniu kodo, status: %s", resp.Status)
	}
	return resp.Body, nil
}

// DeleteObject 删除对象, 对象不存在视为成功
func (p *QiniuKodoProvider) DeleteObject(ctx context.Context, key string) error {
	if err := p.bucketManager().Delete(p.bucketName, key); err != nil {
		if isQiniuNotFound(err) {
			return nil
		}
		logger.Errorf("文件删除失败: 对象键=%s, 错误=%v", key, err)
		return fmt.Errorf("failed to delete file from qiniu kodo: %w", err)
	}
	return nil
}

// ObjectExists 通过获取文件状态判断对象是否存在
func (p *QiniuKodoProvider) ObjectExists(ctx context.Context, key string) (bool, error) {
	if _, err := p.bucketManager().Stat(p.bucketName, key); err != nil {
		if isQiniuNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence in qiniu kodo: %w", err)
	}
	return true, nil
}

func isQiniuNotFound(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

// PresignGetURL 生成私有下载链接
func (p *QiniuKodoProvider) PresignGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	deadline := time.Now().Add(expiry).Unix()
	return storage.MakePrivateURL(p.mac, p.bucketDomain, key, deadline), nil
}

// PublicURL 公开空间的访问地址
func (p *QiniuKodoProvider) PublicURL(key string) string {
	if p.publicBaseURL != "" {
		return joinURL(p.publicBaseURL, key)
	}
	return joinURL(p.bucketDomain, key)
}

// TestConnection 通过列出一个文件测试连接
func (p *QiniuKodoProvider) TestConnection(ctx context.Context) error {
	if _, _, _, _, err := p.bucketManager().ListFiles(p.bucketName, "", "", "", 1); err != nil {
		logger.Errorf("七牛云Kodo连接测试失败: 存储桶=%s, 错误=%v", p.bucketName, err)
		return fmt.Errorf("failed to test qiniu kodo connection: %w", err)
	}
	return nil
}
