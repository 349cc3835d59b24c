package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/database"
	storageservice "github.com/weiwangfds/reelfolio/internal/service/storage"
	syncservice "github.com/weiwangfds/reelfolio/internal/service/sync"
	"gorm.io/gorm"
)

// MigrateAssets 将 fromType 存储中的视频资源迁移到当前配置的存储, 可重复执行
// 两端共用 storage 配置段, 只替换源端的存储类型
func MigrateAssets(ctx context.Context, cfg *config.Config, fromType string, deleteSource bool, out io.Writer) error {
	db, err := database.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close(db)

	fromCfg := cfg.Storage
	fromCfg.Type = fromType
	from, err := storageservice.NewAssetStore(ctx, fromCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize source store: %w", err)
	}
	to, err := storageservice.NewAssetStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize target store: %w", err)
	}

	return migrateAssets(ctx, db, from, to, deleteSource, out)
}

func migrateAssets(ctx context.Context, db *gorm.DB, from, to storageservice.AssetStore, deleteSource bool, out io.Writer) error {
	svc, err := syncservice.NewAssetSyncService(db, from, to, deleteSource)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Moving assets %s -> %s\n", from.Name(), to.Name())
	report, err := svc.SyncAll(ctx)
	if report != nil {
		printSyncReport(out, report)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Done, %d copied, %d skipped, %d failed.\n",
		report.Count(syncservice.SyncCopied), report.Count(syncservice.SyncSkipped), report.Count(syncservice.SyncFailed))
	if n := report.Count(syncservice.SyncFailed); n > 0 {
		return fmt.Errorf("%d videos could not be moved", n)
	}
	return nil
}

func printSyncReport(out io.Writer, report *syncservice.SyncReport) {
	if len(report.Items) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VIDEO\tTITLE\tSTATUS")
	for _, item := range report.Items {
		status := string(item.Status)
		if item.Error != "" {
			status += ": " + item.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", item.VideoID, item.Title, status)
	}
	_ = w.Flush()
}
