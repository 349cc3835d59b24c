package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/app"
	"github.com/weiwangfds/reelfolio/internal/database"
)

func main() {
	cliApp := &cli.App{
		Name:  "reelfolio",
		Usage: "video portfolio backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file (default: ./config.yaml or ./config/config.yaml)",
				EnvVars: []string{"REELFOLIO_CONFIG"},
			},
		},
		// 不带子命令时启动服务
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run migrations and start the HTTP server",
				Action: serve,
			},
			{
				Name:  "setup-admin",
				Usage: "create or replace the admin account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "prompted without echo when omitted"},
					&cli.StringFlag{Name: "secret-path", Usage: "generated when blank"},
					&cli.BoolFlag{Name: "no-interaction", Usage: "do not prompt for missing values"},
				},
				Action: setupAdmin,
			},
			{
				Name:  "migrate-db",
				Usage: "copy all data from one database to another (safe to re-run)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Value: "database/portfolio.db", Usage: "source DSN"},
					&cli.StringFlag{Name: "to", Usage: "target DSN (default: DATABASE_URL)", EnvVars: []string{"DATABASE_URL"}},
				},
				Action: migrateDB,
			},
			{
				Name:  "migrate-assets",
				Usage: "move video assets from another store into the configured one (safe to re-run)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Value: config.StorageLocal, Usage: "source storage type"},
					&cli.BoolFlag{Name: "delete-source", Usage: "delete source assets after each video is moved"},
				},
				Action: migrateAssets,
			},
			{
				Name:   "status",
				Usage:  "show database and admin status",
				Action: status,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	cfg, err := app.Bootstrap(c.String("config"))
	if err != nil {
		return err
	}
	return app.Serve(c.Context, cfg)
}

func setupAdmin(c *cli.Context) error {
	cfg, err := app.Bootstrap(c.String("config"))
	if err != nil {
		return err
	}
	return app.SetupAdmin(c.Context, cfg, app.SetupOptions{
		Username:      c.String("username"),
		Password:      c.String("password"),
		SecretPath:    c.String("secret-path"),
		NoInteraction: c.Bool("no-interaction"),
	}, app.NewPrompter(os.Stdin, os.Stdout), os.Stdout)
}

func migrateDB(c *cli.Context) error {
	cfg, err := app.Bootstrap(c.String("config"))
	if err != nil {
		return err
	}
	to := c.String("to")
	if to == "" {
		return cli.Exit("--to is required", 2)
	}
	from := c.String("from")
	if from == to {
		return cli.Exit("--from and --to must differ", 2)
	}
	return app.MigrateDB(c.Context, dsnConfig(cfg.Database, from), dsnConfig(cfg.Database, to), os.Stdout)
}

func migrateAssets(c *cli.Context) error {
	cfg, err := app.Bootstrap(c.String("config"))
	if err != nil {
		return err
	}
	return app.MigrateAssets(c.Context, cfg, c.String("from"), c.Bool("delete-source"), os.Stdout)
}

func status(c *cli.Context) error {
	cfg, err := app.Bootstrap(c.String("config"))
	if err != nil {
		return err
	}
	return app.Status(c.Context, cfg, os.Stdout)
}

// dsnConfig 沿用连接池等配置, 驱动按DSN推断
func dsnConfig(base config.DatabaseConfig, dsn string) config.DatabaseConfig {
	base.DSN = dsn
	base.Driver = database.DetectDriver(dsn)
	return base
}
