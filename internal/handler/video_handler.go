package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
	"github.com/weiwangfds/reelfolio/internal/logger"
	"github.com/weiwangfds/reelfolio/internal/middleware"
	"github.com/weiwangfds/reelfolio/internal/response"
	videoservice "github.com/weiwangfds/reelfolio/internal/service/video"
)

// multipartOverhead 上传请求体在两个文件上限之外允许的额外字节(表单字段与分隔符)
const multipartOverhead = 1 << 20

// VideoHandler 视频处理器
type VideoHandler struct {
	videoService videoservice.VideoService
	maxBodySize  int64
}

// NewVideoHandler 创建视频处理器实例
// maxVideoSize 与 maxThumbnailSize 用于限制整个上传请求体的大小
func NewVideoHandler(videoService videoservice.VideoService, maxVideoSize, maxThumbnailSize int64) *VideoHandler {
	return &VideoHandler{
		videoService: videoService,
		maxBodySize:  maxVideoSize + maxThumbnailSize + multipartOverhead,
	}
}

// ListVideos 获取视频列表
// @Summary 获取视频列表
// @Tags 视频
// @Produce json
// @Success 200 {object} map[string]interface{} "视频列表"
// @Router /api/videos [get]
func (h *VideoHandler) ListVideos(c *gin.Context) {
	videos, err := h.videoService.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"videos": videos})
}

// GetVideo 获取视频详情, 每次请求计入一次观看
// @Summary 获取视频详情
// @Tags 视频
// @Produce json
// @Param id path string true "视频ID"
// @Success 200 {object} map[string]interface{} "视频信息"
// @Failure 404 {object} map[string]interface{} "视频不存在"
// @Router /api/videos/{id} [get]
func (h *VideoHandler) GetVideo(c *gin.Context) {
	video, err := h.videoService.Get(c.Request.Context(), c.Param("id"), videoservice.Viewer{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"video": video})
}

// StreamVideo 播放视频文件
// 本地存储直接输出文件(支持Range), 对象存储重定向到公开或预签名地址
// @Summary 播放视频
// @Tags 视频
// @Param id path string true "视频ID"
// @Success 200 {file} file "视频内容"
// @Success 302 "重定向到对象存储"
// @Router /api/videos/{id}/stream [get]
func (h *VideoHandler) StreamVideo(c *gin.Context) {
	video, res, err := h.videoService.Stream(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if res.LocalPath != "" {
		if video.MimeType != "" {
			c.Header("Content-Type", video.MimeType)
		}
		c.File(res.LocalPath)
		return
	}
	c.Redirect(http.StatusFound, res.URL)
}

// UploadVideo 上传视频
// @Summary 上传视频
// @Tags 视频
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param video formData file true "视频文件"
// @Param thumbnail formData file false "缩略图"
// @Param title formData string true "标题"
// @Param description formData string false "描述"
// @Param category formData string false "分类"
// @Param is_featured formData string false "是否精选"
// @Success 201 {object} map[string]interface{} "上传成功"
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Failure 413 {object} map[string]interface{} "文件过大"
// @Failure 415 {object} map[string]interface{} "不支持的文件类型"
// @Router /api/videos/upload [post]
func (h *VideoHandler) UploadVideo(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize)

	form, err := c.MultipartForm()
	if err != nil {
		if isBodyTooLarge(err) {
			response.Error(c, apperrors.Newf(apperrors.ErrPayloadTooLarge, "Request body exceeds %d bytes", h.maxBodySize))
			return
		}
		response.Error(c, apperrors.Wrap(apperrors.ErrInvalidParams, "Invalid multipart form", err))
		return
	}
	defer func() { _ = form.RemoveAll() }()

	req := videoservice.UploadRequest{
		Title:       formValue(form, "title"),
		Description: formValue(form, "description"),
		Category:    formValue(form, "category"),
		IsFeatured:  parseBool(formValue(form, "is_featured")),
	}

	videoPart, closeVideo, err := openPart(form, "video")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeVideo()
	req.Video = videoPart

	thumbPart, closeThumb, err := openPart(form, "thumbnail")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeThumb()
	req.Thumbnail = thumbPart

	video, err := h.videoService.Upload(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	auditLog(c, "upload", video.ID)
	response.Created(c, gin.H{
		"message": "Video uploaded successfully",
		"video":   video,
	})
}

// UpdateVideo 更新视频元数据
// @Summary 更新视频
// @Tags 视频
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "视频ID"
// @Success 200 {object} map[string]interface{} "更新成功"
// @Failure 404 {object} map[string]interface{} "视频不存在"
// @Router /api/videos/{id} [put]
func (h *VideoHandler) UpdateVideo(c *gin.Context) {
	var req videoservice.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Wrap(apperrors.ErrInvalidParams, "Invalid request body", err))
		return
	}
	if err := h.videoService.Update(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	auditLog(c, "update", c.Param("id"))
	response.SuccessWithMessage(c, "Video updated successfully")
}

// DeleteVideo 删除视频
// @Summary 删除视频
// @Tags 视频
// @Produce json
// @Security BearerAuth
// @Param id path string true "视频ID"
// @Success 200 {object} map[string]interface{} "删除成功"
// @Failure 404 {object} map[string]interface{} "视频不存在"
// @Router /api/videos/{id} [delete]
func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	result, err := h.videoService.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	auditLog(c, "delete", c.Param("id"))
	payload := gin.H{"message": "Video deleted successfully"}
	if len(result.OrphanedAssets) > 0 {
		payload["orphaned_assets"] = result.OrphanedAssets
	}
	response.Success(c, payload)
}

// GetStats 获取视频统计
// @Summary 视频统计
// @Tags 视频
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "统计信息"
// @Router /api/videos/stats [get]
func (h *VideoHandler) GetStats(c *gin.Context) {
	stats, err := h.videoService.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"stats": stats})
}

// ListCategories 获取分类列表
// @Summary 获取分类列表
// @Tags 分类
// @Produce json
// @Success 200 {object} map[string]interface{} "分类列表"
// @Router /api/categories [get]
func (h *VideoHandler) ListCategories(c *gin.Context) {
	categories, err := h.videoService.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"categories": categories})
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// parseBool 表单中的 true/1/on/yes 视为真
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}

// openPart 打开表单中的文件字段, 字段不存在时返回 nil
func openPart(form *multipart.Form, field string) (*videoservice.FilePart, func(), error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, func() {}, nil
	}
	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, apperrors.Wrap(apperrors.ErrInvalidParams, "", err)
	}
	return &videoservice.FilePart{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Content:     f,
	}, func() { _ = f.Close() }, nil
}

// auditLog 记录管理员对视频的写操作
func auditLog(c *gin.Context, action, videoID string) {
	admin := "unknown"
	if identity, ok := middleware.CurrentAdmin(c); ok {
		admin = identity.Username
	}
	logger.FromContext(c.Request.Context()).WithFields(map[string]interface{}{
		"admin":    admin,
		"action":   action,
		"video_id": videoID,
	}).Info("管理员操作视频")
}
