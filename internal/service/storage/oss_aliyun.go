package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/logger"
)

// AliyunOSSProvider 阿里云OSS提供商实现
type AliyunOSSProvider struct {
	client        *oss.Client
	bucket        *oss.Bucket
	bucketName    string
	endpoint      *url.URL
	publicRead    bool
	publicBaseURL string
}

// NewAliyunOSSProvider 创建阿里云OSS提供商
// 未配置endpoint时按区域生成默认域名
func NewAliyunOSSProvider(cfg config.ObjectStorageConfig) (*AliyunOSSProvider, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://oss-%s.aliyuncs.com", cfg.Region)
	}
	endpoint = withScheme(endpoint)
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid aliyun oss endpoint %q: %w", endpoint, err)
	}

	logger.Infof("[阿里云OSS] 初始化提供商, 区域: %s, 存储桶: %s, 域名: %s", cfg.Region, cfg.Bucket, endpoint)
	client, err := oss.New(endpoint, cfg.AccessKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun oss client: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", cfg.Bucket, err)
	}

	return &AliyunOSSProvider{
		client:        client,
		bucket:        bucket,
		bucketName:    cfg.Bucket,
		endpoint:      u,
		publicRead:    cfg.PublicRead,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// Name 实现ObjectProvider接口
func (p *AliyunOSSProvider) Name() string {
	return config.StorageAliyun
}

// PutObject 上传对象
func (p *AliyunOSSProvider) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	options := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		options = append(options, oss.ContentType(contentType))
	}
	if size >= 0 {
		options = append(options, oss.ContentLength(size))
	}
	if p.publicRead {
		options = append(options, oss.ObjectACL(oss.ACLPublicRead))
	}

	if err := p.bucket.PutObject(key, r, options...); err != nil {
		logger.Errorf("[阿里云OSS] 文件上传失败, 对象键: %s, 错误: %v", key, err)
		return fmt.Errorf("failed to upload file to aliyun oss: %w", err)
	}
	return nil
}

// GetObject 下载对象
func (p *AliyunOSSProvider) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := p.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to download file from aliyun oss: %w", err)
	}
	return body, nil
}

// DeleteObject 删除对象, OSS对不存在的对象同样返回成功
func (p *AliyunOSSProvider) DeleteObject(ctx context.Context, key string) error {
	if err := p.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		logger.Errorf("[阿里云OSS] 文件删除失败, 对象键: %s, 错误: %v", key, err)
		return fmt.Errorf("failed to delete file from aliyun oss: %w", err)
	}
	return nil
}

// ObjectExists 检查对象是否存在
func (p *AliyunOSSProvider) ObjectExists(ctx context.Context, key string) (bool, error) {
	exists, err := p.bucket.IsObjectExist(key, oss.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check file existence in aliyun oss: %w", err)
	}
	return exists, nil
}

// PresignGetURL 生成签名下载链接, 签名在本地完成
func (p *AliyunOSSProvider) PresignGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	signed, err := p.bucket.SignURL(key, oss.HTTPGet, int64(expiry/time.Second))
	if err != nil {
		return "", fmt.Errorf("failed to sign aliyun oss url: %w", err)
	}
	return signed, nil
}

// PublicURL 公开读对象的访问地址: https://<bucket>.<endpoint>/<key>
func (p *AliyunOSSProvider) PublicURL(key string) string {
	if p.publicBaseURL != "" {
		return joinURL(p.publicBaseURL, key)
	}
	return joinURL(fmt.Sprintf("%s://%s.%s", p.endpoint.Scheme, p.bucketName, p.endpoint.Host), key)
}

// TestConnection 通过获取存储桶信息测试连接
func (p *AliyunOSSProvider) TestConnection(ctx context.Context) error {
	if _, err := p.client.GetBucketInfo(p.bucketName); err != nil {
		return fmt.Errorf("failed to test aliyun oss connection: %w", err)
	}
	return nil
}
