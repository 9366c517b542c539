package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/spf13/cobra"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/config"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/database"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/server"
)

var configFile string

// rootCmd 根命令，默认启动 HTTP 服务
var rootCmd = &cobra.Command{
	Use:   "winnstorm",
	Short: "WinnStorm 知识库服务",
	Long:  `WinnStorm 知识库服务：文档管理、向量化流水线、混合检索以及 Stormy 对话接口。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
}

// runServer 启动 HTTP 服务并等待退出信号
func runServer() error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	srv, err := server.NewHTTPGinServer(cfg)
	if err != nil {
		return err
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logx.Info("Received signal %s, shutting down...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		logx.Error("Failed to stop HTTP server: %v", err)
	}
	if err := database.Close(); err != nil {
		logx.Error("Failed to close database: %v", err)
	}

	logx.Info("✅ Server stopped gracefully")
	return nil
}
