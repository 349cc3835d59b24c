package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/database"
	"github.com/weiwangfds/reelfolio/internal/logger"
	"github.com/weiwangfds/reelfolio/internal/middleware"
	adminservice "github.com/weiwangfds/reelfolio/internal/service/admin"
	storageservice "github.com/weiwangfds/reelfolio/internal/service/storage"
)

const (
	testUsername   = "director"
	testPassword   = "correct horse"
	testSecretPath = "back-door-42"
)

type testServer struct {
	engine *gin.Engine
}

type filePart struct {
	field, filename, contentType string
	data                         []byte
}

func setupServer(t *testing.T, adjust func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Auth.JWTSecret = "router-test-secret"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "portfolio.db")
	cfg.Database.LogLevel = "silent"
	cfg.Storage.Local.Dir = t.TempDir()
	if adjust != nil {
		adjust(cfg)
	}

	db, err := database.Init(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	_, err = adminservice.NewAdminService(db).SetupAdmin(context.Background(), adminservice.SetupRequest{
		Username:   testUsername,
		Password:   testPassword,
		SecretPath: testSecretPath,
	})
	require.NoError(t, err)

	store, err := storageservice.NewAssetStore(context.Background(), cfg.Storage)
	require.NoError(t, err)

	r := NewRouter(middleware.NewLoggerMiddleware(), db, store, cfg)
	return &testServer{engine: r.GetEngine()}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var body map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func jsonRequest(t *testing.T, method, url string, payload interface{}, token string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func uploadRequest(t *testing.T, token string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		h.Set("Content-Type", f.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/videos/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	w, body := s.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username":   testUsername,
		"password":   testPassword,
		"secretPath": testSecretPath,
	}, ""))
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	s := setupServer(t, nil)
	w, body := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestVerifyPath(t *testing.T) {
	s := setupServer(t, nil)

	w, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/verify-path/"+testSecretPath, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["valid"])

	w, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/verify-path/wrong", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "Invalid path", body["error"])
}

func TestLogin(t *testing.T) {
	s := setupServer(t, nil)

	t.Run("登录成功", func(t *testing.T) {
		w, body := s.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
			"username": testUsername, "password": testPassword, "secretPath": testSecretPath,
		}, ""))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Login successful", body["message"])
		admin, ok := body["admin"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, testUsername, admin["username"])
		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("任一字段错误返回相同响应", func(t *testing.T) {
		attempts := []map[string]string{
			{"username": "nobody", "password": testPassword, "secretPath": testSecretPath},
			{"username": testUsername, "password": "wrong", "secretPath": testSecretPath},
			{"username": testUsername, "password": testPassword, "secretPath": "wrong"},
		}
		var first string
		for _, a := range attempts {
			w, body := s.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login", a, ""))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Invalid credentials", body["error"])
			msg := fmt.Sprintf("%v|%v", body["error"], body["code"])
			if first == "" {
				first = msg
			}
			assert.Equal(t, first, msg)
		}
	})

	t.Run("缺少字段", func(t *testing.T) {
		w, body := s.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{"username": testUsername}, ""))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "All fields are required", body["error"])
	})
}

func TestTokenChecks(t *testing.T) {
	s := setupServer(t, nil)
	token := s.login(t)

	t.Run("校验令牌", func(t *testing.T) {
		w, body := s.do(t, jsonRequest(t, http.MethodPost, "/api/auth/verify", nil, token))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["valid"])

		w, body = s.do(t, jsonRequest(t, http.MethodPost, "/api/auth/verify", nil, ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, false, body["valid"])

		w, body = s.do(t, jsonRequest(t, http.MethodPost, "/api/auth/verify", nil, token+"x"))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, false, body["valid"])
	})

	t.Run("受保护接口", func(t *testing.T) {
		w, body := s.do(t, jsonRequest(t, http.MethodGet, "/api/videos/stats", nil, ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Access denied. No token provided.", body["error"])

		req := jsonRequest(t, http.MethodGet, "/api/videos/stats", nil, "")
		req.Header.Set("Authorization", "Basic abc")
		w, _ = s.do(t, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w, body = s.do(t, jsonRequest(t, http.MethodGet, "/api/videos/stats", nil, "not-a-token"))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Invalid or expired token.", body["error"])

		w, _ = s.do(t, jsonRequest(t, http.MethodGet, "/api/videos/stats", nil, token))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestDemoReelLifecycle(t *testing.T) {
	s := setupServer(t, nil)
	token := s.login(t)
	payload := []byte("demo reel bytes, not really an mp4")

	w, body := s.do(t, uploadRequest(t, token,
		map[string]string{"title": "Demo Reel", "description": "Showreel", "is_featured": "on"},
		filePart{"video", "reel.mp4", "video/mp4", payload},
		filePart{"thumbnail", "reel.jpg", "image/jpeg", []byte("jpeg")},
	))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Video uploaded successfully", body["message"])
	video := body["video"].(map[string]interface{})
	id := video["id"].(string)
	assert.Equal(t, true, video["is_featured"])
	assert.Equal(t, "general", video["category"])

	t.Run("列表", func(t *testing.T) {
		w, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
		require.Equal(t, http.StatusOK, w.Code)
		videos := body["videos"].([]interface{})
		require.Len(t, videos, 1)
		assert.Equal(t, "Demo Reel", videos[0].(map[string]interface{})["title"])
	})

	t.Run("详情计入观看", func(t *testing.T) {
		w, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/videos/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
		got := body["video"].(map[string]interface{})
		assert.Equal(t, float64(1), got["view_count"])

		// 静态文件内容与上传内容一致
		w, _ = s.do(t, httptest.NewRequest(http.MethodGet, got["video_url"].(string), nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, payload, w.Body.Bytes())
	})

	t.Run("播放不计入观看", func(t *testing.T) {
		w, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/api/videos/"+id+"/stream", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, payload, w.Body.Bytes())

		_, body := s.do(t, jsonRequest(t, http.MethodGet, "/api/videos/stats", nil, token))
		stats := body["stats"].(map[string]interface{})
		assert.Equal(t, float64(1), stats["total_views"])
		assert.Equal(t, float64(1), stats["featured_videos"])
	})

	t.Run("更新", func(t *testing.T) {
		w, body := s.do(t, jsonRequest(t, http.MethodPut, "/api/videos/"+id, map[string]interface{}{
			"title": "Demo Reel 2024", "category": "commercial",
		}, token))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Video updated successfully", body["message"])

		w, _ = s.do(t, jsonRequest(t, http.MethodPut, "/api/videos/missing", map[string]interface{}{"title": "x"}, token))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("删除", func(t *testing.T) {
		w, body := s.do(t, jsonRequest(t, http.MethodDelete, "/api/videos/"+id, nil, token))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Video deleted successfully", body["message"])
		assert.NotContains(t, body, "orphaned_assets")

		w, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/videos/"+id, nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		w, _ = s.do(t, httptest.NewRequest(http.MethodGet, video["video_url"].(string), nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUploadRejections(t *testing.T) {
	s := setupServer(t, func(cfg *config.Config) {
		cfg.Upload.MaxVideoSize = 64
		cfg.Upload.MaxThumbnailSize = 16
	})
	token := s.login(t)

	cases := []struct {
		name   string
		fields map[string]string
		files  []filePart
		status int
	}{
		{"缺少视频", map[string]string{"title": "x"}, nil, http.StatusBadRequest},
		{"缺少标题", nil, []filePart{{"video", "a.mp4", "video/mp4", []byte("x")}}, http.StatusBadRequest},
		{"可执行文件", map[string]string{"title": "x"}, []filePart{{"video", "payload.exe", "application/x-msdownload", []byte("MZ")}}, http.StatusUnsupportedMediaType},
		{"视频过大", map[string]string{"title": "x"}, []filePart{{"video", "a.mp4", "video/mp4", bytes.Repeat([]byte("a"), 65)}}, http.StatusRequestEntityTooLarge},
		{"请求体过大", map[string]string{"title": "x"}, []filePart{{"video", "a.mp4", "video/mp4", bytes.Repeat([]byte("a"), 2<<20)}}, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := s.do(t, uploadRequest(t, token, tc.fields, tc.files...))
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}

	w, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["videos"])
}

func TestCategories(t *testing.T) {
	s := setupServer(t, nil)
	w, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["categories"], len(database.DefaultCategories))
}

func TestCategoryOnlyUpdateKeepsOtherFields(t *testing.T) {
	s := setupServer(t, nil)
	token := s.login(t)
	hook := logtest.NewLocal(logger.GetLogger())

	w, body := s.do(t, uploadRequest(t, token,
		map[string]string{"title": "Demo Reel", "category": "commercial"},
		filePart{"video", "reel.mp4", "video/mp4", []byte("reel")},
	))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := body["video"].(map[string]interface{})
	id := created["id"].(string)
	assert.Equal(t, "commercial", created["category"])

	w, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/videos/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	before := body["video"].(map[string]interface{})

	w, _ = s.do(t, jsonRequest(t, http.MethodPut, "/api/videos/"+id, map[string]interface{}{"category": "documentary"}, token))
	require.Equal(t, http.StatusOK, w.Code)

	w, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/videos/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	got := body["video"].(map[string]interface{})
	assert.Equal(t, "documentary", got["category"])
	assert.Equal(t, "Demo Reel", got["title"])
	assert.Equal(t, before["created_at"], got["created_at"])

	// 写操作记录执行的管理员
	var actions []string
	for _, entry := range hook.AllEntries() {
		if entry.Data["admin"] == testUsername {
			actions = append(actions, fmt.Sprint(entry.Data["action"]))
		}
	}
	assert.Equal(t, []string{"upload", "update"}, actions)
}

func TestUnknownRoutesReturnJSON(t *testing.T) {
	s := setupServer(t, nil)

	for _, target := range []string{"/api/auth/verify-path/", "/api/nothing-here", "/uploads/other/a.mp4"} {
		w, body := s.do(t, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, target)
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestStagingDirIsNotServed(t *testing.T) {
	dir := t.TempDir()
	s := setupServer(t, func(cfg *config.Config) {
		cfg.Storage.Local.Dir = dir
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp", "upload-1"), []byte("partial"), 0600))

	w, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/uploads/.tmp/upload-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, w.Body.String(), "partial")

	// 资源目录照常提供
	require.NoError(t, os.WriteFile(filepath.Join(dir, "thumbnails", "t.png"), []byte("png"), 0644))
	w, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/uploads/thumbnails/t.png", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())
}
