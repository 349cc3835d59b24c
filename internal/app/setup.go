package app

import (
	"context"
	"fmt"
	"io"

	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/database"
	adminservice "github.com/weiwangfds/reelfolio/internal/service/admin"
)

// SetupOptions 命令行传入的管理员信息, 缺少的字段会交互询问
type SetupOptions struct {
	Username      string
	Password      string
	SecretPath    string
	NoInteraction bool
}

// SetupAdmin 创建或替换管理员, 并输出管理后台登录路径
func SetupAdmin(ctx context.Context, cfg *config.Config, opts SetupOptions, prompter *Prompter, out io.Writer) error {
	var err error
	if !opts.NoInteraction {
		if opts.Username == "" {
			if opts.Username, err = prompter.Ask("Admin username"); err != nil {
				return err
			}
		}
		if opts.Password == "" {
			if opts.Password, err = prompter.AskSecret("Admin password"); err != nil {
				return err
			}
		}
		if opts.SecretPath == "" {
			if opts.SecretPath, err = prompter.Ask("Secret path (leave blank to generate)"); err != nil {
				return err
			}
		}
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close(db)

	result, err := adminservice.NewAdminService(db).SetupAdmin(ctx, adminservice.SetupRequest{
		Username:   opts.Username,
		Password:   opts.Password,
		SecretPath: opts.SecretPath,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Admin %q is ready.\n", result.Admin.Username)
	if result.SecretPathGenerated {
		fmt.Fprintln(out, "A random secret path was generated. Keep it private.")
	}
	fmt.Fprintf(out, "Admin login path: %s\n", result.LoginPath())
	return nil
}
