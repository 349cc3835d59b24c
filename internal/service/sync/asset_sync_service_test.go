package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/database"
	storageservice "github.com/weiwangfds/reelfolio/internal/service/storage"
	"gorm.io/gorm"
)

// memStore 内存中的对象存储, 定位串为公开URL
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

const memBase = "https://cdn.example.com/"

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Name() string { return config.StorageS3 }

func (m *memStore) Store(ctx context.Context, kind storageservice.Kind, name string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := path.Join(string(kind), name)
	m.objects[key] = data
	return memBase + key, nil
}

func (m *memStore) Delete(ctx context.Context, locator string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, strings.TrimPrefix(locator, memBase))
	return nil
}

func (m *memStore) Resolve(ctx context.Context, locator string) (*storageservice.Resolution, error) {
	return &storageservice.Resolution{URL: locator}, nil
}

func (m *memStore) URL(locator string) string { return locator }

func (m *memStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[strings.TrimPrefix(locator, memBase)]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", locator)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func setupSync(t *testing.T) (*gorm.DB, *storageservice.LocalStore, *memStore) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default().Database
	cfg.DSN = filepath.Join(dir, "portfolio.db")
	cfg.LogLevel = "silent"
	db, err := database.Init(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	local, err := storageservice.NewLocalStore(config.LocalStorageConfig{Dir: filepath.Join(dir, "uploads"), URLPrefix: "/uploads"})
	require.NoError(t, err)
	return db, local, newMemStore()
}

// seedLocalVideo 在本地存储中写入视频和缩略图并创建记录
func seedLocalVideo(t *testing.T, db *gorm.DB, local *storageservice.LocalStore, id string, withThumb bool) database.Video {
	t.Helper()
	ctx := context.Background()
	content := []byte("video-" + id)
	fileLoc, err := local.Store(ctx, storageservice.KindVideo, id+".mp4", bytes.NewReader(content), int64(len(content)), "video/mp4")
	require.NoError(t, err)

	size := int64(len(content))
	video := database.Video{
		ID:          id,
		Title:       "Reel " + id,
		Filename:    id + ".mp4",
		FilePath:    fileLoc,
		FileSize:    &size,
		MimeType:    "video/mp4",
		StorageType: local.Name(),
		Category:    database.DefaultCategory,
	}
	if withThumb {
		thumbLoc, err := local.Store(ctx, storageservice.KindThumbnail, id+".png", strings.NewReader("thumb-"+id), -1, "image/png")
		require.NoError(t, err)
		video.ThumbnailPath = &thumbLoc
	}
	require.NoError(t, db.Create(&video).Error)
	return video
}

func TestSyncAllMovesAssets(t *testing.T) {
	db, local, remote := setupSync(t)
	ctx := context.Background()
	seedLocalVideo(t, db, local, "v1", true)
	seedLocalVideo(t, db, local, "v2", false)

	svc, err := NewAssetSyncService(db, local, remote, true)
	require.NoError(t, err)

	report, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(SyncCopied))
	assert.Equal(t, 0, report.Count(SyncFailed))

	var v1 database.Video
	require.NoError(t, db.First(&v1, "id = ?", "v1").Error)
	assert.Equal(t, config.StorageS3, v1.StorageType)
	assert.Equal(t, memBase+"videos/v1.mp4", v1.FilePath)
	require.NotNil(t, v1.ThumbnailPath)
	assert.Equal(t, memBase+"thumbnails/v1.png", *v1.ThumbnailPath)

	r, err := remote.Open(ctx, v1.FilePath)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "video-v1", string(data))

	// 源资源已删除
	_, err = local.Resolve(ctx, "/uploads/videos/v1.mp4")
	assert.Error(t, err)

	var v2 database.Video
	require.NoError(t, db.First(&v2, "id = ?", "v2").Error)
	assert.Nil(t, v2.ThumbnailPath)

	t.Run("重复执行全部跳过", func(t *testing.T) {
		report, err := svc.SyncAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Count(SyncCopied))
		assert.Equal(t, 2, report.Count(SyncSkipped))
	})
}

func TestSyncKeepsSourceByDefault(t *testing.T) {
	db, local, remote := setupSync(t)
	ctx := context.Background()
	video := seedLocalVideo(t, db, local, "v1", false)

	svc, err := NewAssetSyncService(db, local, remote, false)
	require.NoError(t, err)

	status, err := svc.SyncVideo(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, SyncCopied, status)

	_, err = local.Resolve(ctx, video.FilePath)
	assert.NoError(t, err)
}

func TestSyncFailures(t *testing.T) {
	db, local, remote := setupSync(t)
	ctx := context.Background()

	t.Run("相同存储类型", func(t *testing.T) {
		_, err := NewAssetSyncService(db, local, local, false)
		assert.ErrorIs(t, err, ErrSameStore)
	})

	svc, err := NewAssetSyncService(db, local, remote, true)
	require.NoError(t, err)

	t.Run("视频不存在", func(t *testing.T) {
		status, err := svc.SyncVideo(ctx, "missing")
		assert.Error(t, err)
		assert.Equal(t, SyncFailed, status)
	})

	t.Run("源文件缺失时记录保持不变", func(t *testing.T) {
		video := seedLocalVideo(t, db, local, "broken", false)
		require.NoError(t, local.Delete(ctx, video.FilePath))

		report, err := svc.SyncAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Count(SyncFailed))
		assert.NotEmpty(t, report.Items[0].Error)

		var got database.Video
		require.NoError(t, db.First(&got, "id = ?", "broken").Error)
		assert.Equal(t, config.StorageLocal, got.StorageType)
		assert.Equal(t, video.FilePath, got.FilePath)
	})
}

func TestAssetName(t *testing.T) {
	cases := map[string]string{
		"/uploads/videos/a.mp4":                      "a.mp4",
		"portfolio/thumbnails/b.png":                 "b.png",
		"https://cdn.example.com/videos/c.mov?x=1":   "c.mov",
		"https://cdn.example.com/videos/d.webm#frag": "d.webm",
		"":        "",
		"/":       "",
		"a/../..": "",
	}
	for locator, want := range cases {
		assert.Equal(t, want, assetName(locator), locator)
	}
}
