// Package app 组装各组件并实现命令行子命令
package app

import (
	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/i18n"
	"github.com/weiwangfds/reelfolio/internal/logger"
)

// Bootstrap 加载配置并初始化日志与语言
func Bootstrap(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(&cfg.Log); err != nil {
		return nil, err
	}
	if cfg.App.Language != "" {
		i18n.GetInstance().SetDefaultLanguage(cfg.App.Language)
	}
	return cfg, nil
}
