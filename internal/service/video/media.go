package service

import (
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
)

// 各扩展名允许的声明类型
var videoMIMETypes = map[string][]string{
	".mp4":  {"video/mp4"},
	".mov":  {"video/quicktime"},
	".avi":  {"video/x-msvideo", "video/avi", "video/msvideo"},
	".wmv":  {"video/x-ms-wmv", "video/x-ms-asf"},
	".flv":  {"video/x-flv"},
	".webm": {"video/webm"},
	".mkv":  {"video/x-matroska"},
}

var thumbnailMIMETypes = map[string][]string{
	".jpeg": {"image/jpeg"},
	".jpg":  {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".webp": {"image/webp"},
}

// mediaRule 一类上传文件的类型限制
type mediaRule struct {
	field      string
	extensions map[string]bool
	mimeTypes  map[string]bool
}

func newMediaRule(field string, allowedExts []string, table map[string][]string) mediaRule {
	rule := mediaRule{
		field:      field,
		extensions: make(map[string]bool, len(allowedExts)),
		mimeTypes:  make(map[string]bool),
	}
	for _, ext := range allowedExts {
		rule.extensions[ext] = true
		for _, t := range table[ext] {
			rule.mimeTypes[t] = true
		}
	}
	return rule
}

// isGenericType 客户端未给出具体类型时需要嗅探内容
func isGenericType(mediaType string) bool {
	return mediaType == "" || mediaType == "application/octet-stream"
}

// check 校验扩展名与声明类型, 返回最终采用的MIME类型
// 声明类型缺失或为通用二进制类型时嗅探文件头, 嗅探后读取位置会复位
func (r mediaRule) check(part *FilePart) (string, error) {
	ext := strings.ToLower(filepath.Ext(part.Filename))
	if !r.extensions[ext] {
		return "", apperrors.Newf(apperrors.ErrUnsupportedMediaType, "Unsupported %s file type: %s", r.field, displayExt(ext))
	}

	declared, _, err := mime.ParseMediaType(part.ContentType)
	if err != nil {
		declared = ""
	}
	declared = strings.ToLower(declared)

	if !isGenericType(declared) {
		if !r.mimeTypes[declared] {
			return "", apperrors.Newf(apperrors.ErrUnsupportedMediaType, "Unsupported %s content type: %s", r.field, declared)
		}
		return declared, nil
	}

	detected, err := mimetype.DetectReader(part.Content)
	if _, seekErr := part.Content.Seek(0, io.SeekStart); seekErr != nil {
		return "", apperrors.Wrap(apperrors.ErrInvalidParams, "", seekErr)
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInvalidParams, "", err)
	}
	for t := range r.mimeTypes {
		if detected.Is(t) {
			return t, nil
		}
	}
	return "", apperrors.Newf(apperrors.ErrUnsupportedMediaType, "Unsupported %s content type: %s", r.field, detected.String())
}

func displayExt(ext string) string {
	if ext == "" {
		return "(none)"
	}
	return ext
}
