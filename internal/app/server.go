package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/weiwangfds/reelfolio/config"
	"github.com/weiwangfds/reelfolio/internal/database"
	"github.com/weiwangfds/reelfolio/internal/logger"
	"github.com/weiwangfds/reelfolio/internal/middleware"
	"github.com/weiwangfds/reelfolio/internal/router"
	storageservice "github.com/weiwangfds/reelfolio/internal/service/storage"
	"golang.org/x/net/http2"
)

// shutdownTimeout 优雅关闭的最长等待时间
const shutdownTimeout = 30 * time.Second

// Serve 启动HTTP服务, 收到 SIGINT/SIGTERM 后优雅关闭
func Serve(ctx context.Context, cfg *config.Config) error {
	db, err := database.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close(db)

	store, err := storageservice.NewAssetStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize asset store: %w", err)
	}

	r := router.NewRouter(middleware.NewLoggerMiddleware(), db, store, cfg)
	srv, err := newHTTPServer(cfg.Server, r.GetEngine())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.EnableTLS {
			logger.Infof("HTTPS服务器启动在端口 %d (HTTP/2: %v)", cfg.Server.Port, cfg.Server.EnableHTTP2)
			err = srv.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			logger.Infof("HTTP服务器启动在端口 %d, 存储类型: %s", cfg.Server.Port, store.Name())
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("服务器已退出")
	return nil
}

// newHTTPServer 创建HTTP服务器, 启用TLS时按配置开启HTTP/2
func newHTTPServer(cfg config.ServerConfig, handler http.Handler) (*http.Server, error) {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
	if !cfg.EnableTLS {
		return srv, nil
	}

	srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.EnableHTTP2 {
		if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
			return nil, fmt.Errorf("failed to configure http2: %w", err)
		}
	} else {
		// 非nil的空映射会关闭内置的HTTP/2
		srv.TLSNextProto = map[string]func(*http.Server, *tls.Conn, http.Handler){}
	}
	return srv, nil
}
