package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Goofy-Goldberg/wechat-adb-robot/internal/feed"
	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/adb"
	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/serviceutil"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles/db"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the collection loop against the configured device until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if len(cfg.Feed.Accounts) == 0 {
			serviceutil.Fatal("refusing to start", errors.New("no accounts configured"))
		}

		robot, err := adb.NewRobot(adb.Options{
			Serial:  cfg.Device.Serial,
			AdbPath: cfg.Device.AdbPath,
		})
		if err != nil {
			serviceutil.Fatal("failed to attach to device", err)
		}

		database, err := cfg.Db.OpenDB(db.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()
		service := articles.NewService(database)

		ctx := serviceutil.SignalContext()

		monitor, err := feed.NewMonitor(ctx, robot, service, cfg.Feed)
		if err != nil {
			serviceutil.Fatal("failed to initialize monitor", err)
		}

		if cfg.Sync.Endpoint != "" {
			syncer := articles.NewSyncer(service, cfg.Sync)
			go syncer.RunDaemon(ctx)
		}

		slog.Info("starting collection loop",
			"serial", cfg.Device.Serial, "accounts", len(cfg.Feed.Accounts))
		if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serviceutil.Fatal("collection loop exited", err)
		}
	},
}
