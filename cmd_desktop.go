package main

import (
	"embed"

	"github.com/spf13/cobra"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

var desktopCmd = &cobra.Command{
	Use:   "desktop",
	Short: "Open the desktop window",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := NewApp(cfg, logger.Named("desktop"))
		return wails.Run(&options.App{
			Title:     "voxquery",
			Width:     960,
			Height:    720,
			MinWidth:  640,
			MinHeight: 480,
			AssetServer: &assetserver.Options{
				Assets: assets,
			},
			OnStartup: app.startup,
			Bind: []interface{}{
				app,
			},
		})
	},
}
