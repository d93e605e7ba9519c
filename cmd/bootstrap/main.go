// Package main 运维命令：迁移表结构、写入示例数据、重新提交章节分析
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"manuscript-editor-api/internal/config"
	"manuscript-editor-api/pkg/logger"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Operational commands for the manuscript editor API",
	Long: `bootstrap prepares and maintains a manuscript editor deployment.

Commands:
  - migrate     create or update the database schema
  - seed        create a demo project with its first book
  - reanalyze   resubmit a chapter for developmental analysis`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", config.DefaultDir, "directory containing config.yaml")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reanalyzeCmd)
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configDir)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	return cfg, nil
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
