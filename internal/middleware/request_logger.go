package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/reelfolio/internal/logger"
)

// redactedValue 替换敏感字段的占位符
const redactedValue = "[REDACTED]"

// sensitiveKeys 需要在日志中脱敏的字段和请求头(小写)
var sensitiveKeys = map[string]bool{
	"password":      true,
	"secretpath":    true,
	"secret_path":   true,
	"token":         true,
	"authorization": true,
	"cookie":        true,
}

// RequestLogEntry 请求日志条目结构
type RequestLogEntry struct {
	TraceID string `json:"trace_id"` // 请求追踪ID

	// 请求信息
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Query     string            `json:"query,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      interface{}       `json:"body,omitempty"`
	ClientIP  string            `json:"client_ip"`
	UserAgent string            `json:"user_agent"`

	// 响应信息
	StatusCode   int         `json:"status_code"`
	ResponseBody interface{} `json:"response_body,omitempty"`
	ResponseSize int         `json:"response_size"`

	StartTime  string `json:"start_time"`
	DurationMs int64  `json:"duration_ms"`

	Error string `json:"error,omitempty"`
}

// responseWriter 自定义响应写入器，用于捕获JSON响应数据
type responseWriter struct {
	gin.ResponseWriter
	body    *bytes.Buffer
	maxSize int
}

// Write 捕获响应数据, 超出上限的部分不再缓存
func (w *responseWriter) Write(b []byte) (int, error) {
	if w.body.Len()+len(b) <= w.maxSize {
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// RequestLoggerConfig 请求日志中间件配置
type RequestLoggerConfig struct {
	Enabled         bool     // 是否启用
	SkipPaths       []string // 跳过记录的路径前缀
	MaxBodySize     int      // 记录的最大请求体/响应体大小（字节）
	IncludeHeaders  bool     // 是否包含请求头
	IncludeBody     bool     // 是否包含JSON请求体
	IncludeResponse bool     // 是否包含JSON响应体
}

// DefaultRequestLoggerConfig 默认配置
func DefaultRequestLoggerConfig(enabled bool) *RequestLoggerConfig {
	return &RequestLoggerConfig{
		Enabled:         enabled,
		SkipPaths:       []string{"/health", "/uploads", "/favicon.ico"},
		MaxBodySize:     64 * 1024,
		IncludeHeaders:  true,
		IncludeBody:     true,
		IncludeResponse: true,
	}
}

// RequestLogger 创建详细请求日志中间件, 用于开发环境排查问题
// 只读取JSON请求体; multipart上传体不会被缓存, 以免占用内存
func RequestLogger(cfg *RequestLoggerConfig) gin.HandlerFunc {
	if cfg == nil || !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		for _, skipPath := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, skipPath) {
				c.Next()
				return
			}
		}

		startTime := time.Now()

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
			maxSize:        cfg.MaxBodySize,
		}
		c.Writer = writer

		var requestBody interface{}
		if cfg.IncludeBody && isJSONRequest(c) {
			requestBody = readJSONBody(c, cfg.MaxBodySize)
		}

		c.Next()

		entry := &RequestLogEntry{
			TraceID:      c.GetString("request_id"),
			Method:       c.Request.Method,
			Path:         c.Request.URL.Path,
			Query:        c.Request.URL.RawQuery,
			ClientIP:     c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			StatusCode:   writer.Status(),
			ResponseSize: writer.Size(),
			StartTime:    startTime.Format(time.RFC3339),
			DurationMs:   time.Since(startTime).Milliseconds(),
			Body:         requestBody,
		}
		if cfg.IncludeHeaders {
			entry.Headers = extractHeaders(c.Request.Header)
		}
		if cfg.IncludeResponse && strings.Contains(writer.Header().Get("Content-Type"), "application/json") {
			entry.ResponseBody = parseJSON(writer.body.Bytes())
		}
		if len(c.Errors) > 0 {
			entry.Error = c.Errors.String()
		}

		logRequestEntry(entry)
	}
}

func isJSONRequest(c *gin.Context) bool {
	return c.Request.Body != nil && strings.HasPrefix(c.ContentType(), "application/json")
}

// readJSONBody 读取并还原请求体, 超出上限时只记录截断标记
func readJSONBody(c *gin.Context, maxSize int) interface{} {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, int64(maxSize)+1))
	if err != nil {
		return "failed to read request body"
	}
	// 读取的部分与剩余部分拼接, 后续处理器看到完整请求体
	c.Request.Body = readCloser{io.MultiReader(bytes.NewReader(body), c.Request.Body), c.Request.Body}

	if len(body) > maxSize {
		return fmt.Sprintf("<truncated, > %d bytes>", maxSize)
	}
	return parseJSON(body)
}

type readCloser struct {
	io.Reader
	io.Closer
}

// parseJSON 解析JSON并对敏感字段脱敏
func parseJSON(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil
	}
	return redact(v)
}

func redact(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if sensitiveKeys[strings.ToLower(k)] {
				t[k] = redactedValue
				continue
			}
			t[k] = redact(val)
		}
	case []interface{}:
		for i := range t {
			t[i] = redact(t[i])
		}
	}
	return v
}

// extractHeaders 提取请求头
func extractHeaders(headers map[string][]string) map[string]string {
	headerMap := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			continue
		}
		if sensitiveKeys[strings.ToLower(key)] {
			headerMap[key] = redactedValue
			continue
		}
		headerMap[key] = values[0]
	}
	return headerMap
}

// logRequestEntry 记录请求日志条目
func logRequestEntry(entry *RequestLogEntry) {
	message := fmt.Sprintf("[REQUEST_LOG] %s %s - %d (%dms)",
		entry.Method, entry.Path, entry.StatusCode, entry.DurationMs)

	logJSON, err := json.Marshal(entry)
	if err != nil {
		logger.Errorf("Failed to marshal request log: %v", err)
		return
	}

	switch {
	case entry.StatusCode >= 500:
		logger.Errorf("%s | %s", message, logJSON)
	case entry.StatusCode >= 400:
		logger.Warnf("%s | %s", message, logJSON)
	default:
		logger.Debugf("%s | %s", message, logJSON)
	}
}
