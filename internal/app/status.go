package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/database"
	adminservice "github.com/weiwangfds/reelfolio/internal/service/admin"
)

// Status 输出数据库状态; 不执行迁移, 缺失的表如实报告
func Status(ctx context.Context, cfg *config.Config, out io.Writer) error {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close(db)

	status, err := adminservice.NewAdminService(db).Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Database: %s\n", status.Dialect)
	for _, t := range status.Tables {
		if t.Exists {
			fmt.Fprintf(out, "  %-16s %d rows\n", t.Name, t.Rows)
		} else {
			fmt.Fprintf(out, "  %-16s missing\n", t.Name)
		}
	}

	if len(status.AdminNames) == 0 {
		fmt.Fprintln(out, "Admin: not configured (run setup-admin)")
	} else {
		fmt.Fprintf(out, "Admin: %s\n", strings.Join(status.AdminNames, ", "))
	}

	fmt.Fprintf(out, "Videos: %d\n", status.VideoCount)
	for _, v := range status.RecentVideos {
		fmt.Fprintf(out, "  %s  %s  [%s]  %s\n", v.CreatedAt, v.ID, v.Category, v.Title)
	}
	return nil
}
