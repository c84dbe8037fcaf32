package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"offleaf/internal/logger"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

// Command line flags
var (
	configFlag  = flag.String("config", "", "配置文件路径 (默认 ~/.config/offleaf/offleaf-config.json)")
	projectFlag = flag.String("project", "", "启动后打开的 LaTeX 项目目录")
	logFlag     = flag.String("log", "", "日志文件路径 (默认与配置文件同目录)")
)

// logPath returns the log file location next to the config file.
func logPath(configPath string) string {
	if *logFlag != "" {
		return *logFlag
	}
	if configPath != "" {
		return filepath.Join(filepath.Dir(configPath), "offleaf.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "offleaf", "offleaf.log")
}

func main() {
	flag.Parse()

	if err := logger.Init(&logger.Config{
		LogFilePath: logPath(*configFlag),
		MaxFileSize: 10 * 1024 * 1024,
		MaxBackups:  5,
		Level:       logger.LevelInfo,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "警告: 日志初始化失败: %v\n", err)
	}
	defer logger.Close()

	app := NewApp()
	if *configFlag != "" {
		withConfig, err := NewAppWithConfig(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "错误: %v\n", err)
			os.Exit(1)
		}
		app = withConfig
	}

	// Mark as running in Wails environment
	app.SetWailsRuntime(true)

	startupFunc := func(ctx context.Context) {
		app.startup(ctx)

		if *projectFlag != "" {
			if _, err := app.OpenProject(*projectFlag); err != nil {
				logger.Error("failed to open project from command line", err,
					logger.String("project", *projectFlag))
			}
		}
	}

	err := wails.Run(&options.App{
		Title:  "Offleaf",
		Width:  1024,
		Height: 768,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup:        startupFunc,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		logger.Error("wails run failed", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
