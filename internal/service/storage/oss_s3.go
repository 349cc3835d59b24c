package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/logger"
)

// S3Provider AWS S3及S3兼容存储的提供商实现
type S3Provider struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	bucket        string
	region        string
	endpoint      string
	usePathStyle  bool
	publicRead    bool
	publicBaseURL string
}

// NewS3Provider 创建S3提供商
// 未配置访问密钥时使用SDK默认凭据链(环境变量、共享配置、实例角色)
func NewS3Provider(ctx context.Context, cfg config.ObjectStorageConfig) (*S3Provider, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Infof("[S3] 初始化提供商: bucket=%s, region=%s, endpoint=%s", cfg.Bucket, region, cfg.Endpoint)
	return &S3Provider{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		region:        region,
		endpoint:      cfg.Endpoint,
		usePathStyle:  cfg.UsePathStyle,
		publicRead:    cfg.PublicRead,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// Name 实现ObjectProvider接口
func (p *S3Provider) Name() string {
	return config.StorageS3
}

// PutObject 上传对象, 公开读模式下附带 public-read ACL
func (p *S3Provider) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if p.publicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := p.client.PutObject(ctx, input); err != nil {
		logger.Errorf("[S3] 上传失败: key=%s, 错误=%v", key, err)
		return fmt.Errorf("failed to upload object to s3: %w", err)
	}
	return nil
}

// GetObject 下载对象
func (p *S3Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from s3: %w", err)
	}
	return out.Body, nil
}

// DeleteObject 删除对象, S3对不存在的键同样返回成功
func (p *S3Provider) DeleteObject(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		logger.Errorf("[S3] 删除失败: key=%s, 错误=%v", key, err)
		return fmt.Errorf("failed to delete object from s3: %w", err)
	}
	return nil
}

// ObjectExists 通过HeadObject检查对象是否存在
func (p *S3Provider) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to head object in s3: %w", err)
}

func isS3NotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// PresignGetURL 生成预签名下载链接
func (p *S3Provider) PresignGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign s3 url: %w", err)
	}
	return req.URL, nil
}

// PublicURL 公开读对象的访问地址
func (p *S3Provider) PublicURL(key string) string {
	switch {
	case p.publicBaseURL != "":
		return joinURL(p.publicBaseURL, key)
	case p.endpoint != "" && p.usePathStyle:
		return joinURL(joinURL(p.endpoint, p.bucket), key)
	case p.endpoint != "":
		return joinURL(p.endpoint, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key)
	}
}

// TestConnection 通过HeadBucket测试连接
func (p *S3Provider) TestConnection(ctx context.Context) error {
	if _, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)}); err != nil {
		return fmt.Errorf("failed to access s3 bucket %s: %w", p.bucket, err)
	}
	return nil
}
