package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"
	"github.com/weiwangfds/reelfolio/config"
)

// TencentCOSProvider 腾讯云COS提供商实现
type TencentCOSProvider struct {
	client        *cos.Client
	secretID      string
	secretKey     string
	publicRead    bool
	publicBaseURL string
}

// NewTencentCOSProvider 创建腾讯云COS提供商
func NewTencentCOSProvider(cfg config.ObjectStorageConfig) (*TencentCOSProvider, error) {
	bucketURL := fmt.Sprintf("https://%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Region)
	if cfg.Endpoint != "" {
		bucketURL = withScheme(cfg.Endpoint)
	}

	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bucket URL: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		},
	})

	return &TencentCOSProvider{
		client:        client,
		secretID:      cfg.AccessKey,
		secretKey:     cfg.SecretKey,
		publicRead:    cfg.PublicRead,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// Name 实现ObjectProvider接口
func (p *TencentCOSProvider) Name() string {
	return config.StorageTencent
}

// PutObject 上传对象
func (p *TencentCOSProvider) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	options := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: contentType,
		},
	}
	if size >= 0 {
		options.ObjectPutHeaderOptions.ContentLength = size
	}
	if p.publicRead {
		options.ACLHeaderOptions = &cos.ACLHeaderOptions{XCosACL: "public-read"}
	}

	if _, err := p.client.Object.Put(ctx, key, r, options); err != nil {
		return fmt.Errorf("failed to upload file to tencent cos: %w", err)
	}
	return nil
}

// GetObject 下载对象
func (p *TencentCOSProvider) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := p.client.Object.Get(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download file from tencent cos: %w", err)
	}
	return resp.Body, nil
}

// DeleteObject 删除对象
func (p *TencentCOSProvider) DeleteObject(ctx context.Context, key string) error {
	if _, err := p.client.Object.Delete(ctx, key); err != nil {
		if cos.IsNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file from tencent cos: %w", err)
	}
	return nil
}

// ObjectExists 检查对象是否存在
func (p *TencentCOSProvider) ObjectExists(ctx context.Context, key string) (bool, error) {
	if _, err := p.client.Object.Head(ctx, key, nil); err != nil {
		if cos.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence in tencent cos: %w", err)
	}
	return true, nil
}

// PresignGetURL 生成预签名下载链接
func (p *TencentCOSProvider) PresignGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := p.client.Object.GetPresignedURL(ctx, http.MethodGet, key, p.secretID, p.secretKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign tencent cos url: %w", err)
	}
	return u.String(), nil
}

// PublicURL 公开读对象的访问地址
func (p *TencentCOSProvider) PublicURL(key string) string {
	if p.publicBaseURL != "" {
		return joinURL(p.publicBaseURL, key)
	}
	if key == "" {
		return joinURL(p.client.BaseURL.BucketURL.String(), "")
	}
	return p.client.Object.GetObjectURL(key).String()
}

// TestConnection 测试连接
func (p *TencentCOSProvider) TestConnection(ctx context.Context) error {
	if _, err := p.client.Bucket.Head(ctx); err != nil {
		return fmt.Errorf("failed to test tencent cos connection: %w", err)
	}
	return nil
}
