package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/database"
)

// MigrateDB 将源库数据复制到目标库并输出每张表的复制结果, 可重复执行
func MigrateDB(ctx context.Context, from, to config.DatabaseConfig, out io.Writer) error {
	src, err := database.Open(from)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer database.Close(src)

	dst, err := database.Open(to)
	if err != nil {
		return fmt.Errorf("failed to open target database: %w", err)
	}
	defer database.Close(dst)

	fmt.Fprintf(out, "Copying %s -> %s\n", database.DialectName(src), database.DialectName(dst))
	report, err := database.CopyDatabase(ctx, src, dst)
	if report != nil {
		printCopyReport(out, report)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Done, %d rows copied.\n", report.Total())
	return nil
}

func printCopyReport(out io.Writer, report *database.CopyReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tSOURCE\tCOPIED\tSKIPPED")
	for _, t := range report.Tables {
		if t.Missing {
			fmt.Fprintf(w, "%s\t-\t-\t(missing in source)\n", t.Table)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", t.Table, t.Source, t.Copied, t.Skipped)
	}
	_ = w.Flush()
}
