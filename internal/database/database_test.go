package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/reelfolio/config"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	cfg := config.DatabaseConfig{DSN: filepath.Join(t.TempDir(), "test.db"), LogLevel: "silent"}
	var (
		db  *gorm.DB
		err error
	)
	if migrate {
		db, err = Init(cfg)
	} else {
		db, err = Open(cfg)
	}
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })
	return db
}

func TestDetectDriver(t *testing.T) {
	cases := map[string]string{
		"database/portfolio.db":                     config.DriverSQLite,
		"file:portfolio.db?cache=shared":            config.DriverSQLite,
		"postgres://u:p@localhost:5432/reels":       config.DriverPostgres,
		"postgresql://localhost/reels":              config.DriverPostgres,
		"host=localhost user=u dbname=reels":        config.DriverPostgres,
		"  POSTGRES://u:p@db.internal:5432/reels  ": config.DriverPostgres,
	}
	for dsn, want := range cases {
		assert.Equal(t, want, DetectDriver(dsn), dsn)
	}

	assert.Equal(t, config.DriverPostgres, ResolveDriver(config.DatabaseConfig{Driver: config.DriverPostgres, DSN: "x.db"}))
	assert.Equal(t, config.DriverSQLite, ResolveDriver(config.DatabaseConfig{DSN: "x.db"}))
}

func TestSQLiteDSNHelpers(t *testing.T) {
	assert.Equal(t, "file:data/x.db", normalizeSQLiteDSN("sqlite://data/x.db"))
	assert.Equal(t, "data/x.db", normalizeSQLiteDSN("data/x.db"))

	dsn := ensureSQLiteParams("x.db?_busy_timeout=100")
	assert.Contains(t, dsn, "_busy_timeout=100")
	assert.NotContains(t, dsn, "_busy_timeout=5000")
	assert.Contains(t, dsn, "&_journal_mode=WAL")

	assert.Equal(t, "data/x.db", sqlitePathFromDSN("file:data/x.db?mode=rwc"))
	assert.Equal(t, "", sqlitePathFromDSN(":memory:"))
	assert.Equal(t, "", sqlitePathFromDSN("file::memory:?mode=memory"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t, true)
	require.NoError(t, Migrate(db))

	for _, m := range Models() {
		assert.True(t, db.Migrator().HasTable(m))
	}
	var count int64
	require.NoError(t, db.Model(&Category{}).Count(&count).Error)
	assert.Equal(t, int64(len(DefaultCategories)), count)
	assert.True(t, IsSQLite(db))
	assert.False(t, IsPostgres(db))
	assert.NoError(t, Ping(context.Background(), db))
}

func seedSource(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&Admin{Username: "alice", Password: "hash", SecretPath: "door"}).Error)
	require.NoError(t, db.Create(&Category{Name: "travel", Label: "Travel", DisplayOrder: 9}).Error)
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("00000000-0000-0000-0000-00000000000%d", i)
		require.NoError(t, db.Create(&Video{
			ID:        id,
			Title:     fmt.Sprintf("Video %d", i),
			Filename:  "clip.mp4",
			FilePath:  "/uploads/videos/" + id + ".mp4",
			Category:  DefaultCategory,
			ViewCount: int64(i),
		}).Error)
		require.NoError(t, db.Create(&VideoView{VideoID: id, ViewerIP: "127.0.0.1"}).Error)
	}
}

func TestCopyDatabase(t *testing.T) {
	src := openTestDB(t, true)
	dst := openTestDB(t, false)
	seedSource(t, src)
	ctx := context.Background()

	report, err := CopyDatabase(ctx, src, dst)
	require.NoError(t, err)
	byTable := map[string]TableCopyResult{}
	for _, r := range report.Tables {
		byTable[r.Table] = r
	}
	assert.Equal(t, int64(1), byTable["admin"].Copied)
	// 默认分类在目标库迁移时已写入, 只有新增分类需要复制
	assert.Equal(t, int64(1), byTable["categories"].Copied)
	assert.Equal(t, int64(len(DefaultCategories)), byTable["categories"].Skipped)
	assert.Equal(t, int64(3), byTable["videos"].Copied)
	assert.Equal(t, int64(3), byTable["video_analytics"].Copied)
	assert.Equal(t, int64(8), report.Total())

	var video Video
	require.NoError(t, dst.First(&video, "id = ?", "00000000-0000-0000-0000-000000000002").Error)
	assert.Equal(t, "Video 2", video.Title)
	assert.Equal(t, int64(2), video.ViewCount)

	t.Run("重复执行不产生变化", func(t *testing.T) {
		again, err := CopyDatabase(ctx, src, dst)
		require.NoError(t, err)
		assert.Equal(t, int64(0), again.Total())

		var admins, videos int64
		require.NoError(t, dst.Model(&Admin{}).Count(&admins).Error)
		require.NoError(t, dst.Model(&Video{}).Count(&videos).Error)
		assert.Equal(t, int64(1), admins)
		assert.Equal(t, int64(3), videos)
	})
}

func TestCopyDatabaseMissingTables(t *testing.T) {
	src := openTestDB(t, false)
	dst := openTestDB(t, false)
	require.NoError(t, src.AutoMigrate(&Admin{}))

	report, err := CopyDatabase(context.Background(), src, dst)
	require.NoError(t, err)
	require.Len(t, report.Tables, 4)
	assert.False(t, report.Tables[0].Missing)
	for _, r := range report.Tables[1:] {
		assert.True(t, r.Missing, r.Table)
	}
}
