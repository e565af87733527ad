package commands

import (
	"errors"
	"log/slog"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/restyutil"
	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/serviceutil"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles/db"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var syncTraceDir *string

func init() {
	syncTraceDir = syncCmd.Flags().String("trace-http", "", "Dump each sync request/response to files in this directory.")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pushes unsynced articles to the configured remote index once.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if cfg.Sync.Endpoint == "" {
			serviceutil.Fatal("refusing to sync", errors.New("no sync endpoint configured"))
		}
		database, err := cfg.Db.OpenDB(db.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		syncer := articles.NewSyncer(articles.NewService(database), cfg.Sync)
		if *syncTraceDir != "" {
			out, err := restyutil.NewFilesystemOutput(*syncTraceDir)
			if err != nil {
				serviceutil.Fatal("failed to prepare trace directory", err)
			}
			syncer.DebugHTTP(out)
		}
		pushed, err := syncer.Drain(cmd.Context())
		if err != nil {
			serviceutil.Fatal("sync failed", err)
		}
		slog.Info("sync complete", "pushed", pushed)
	},
}
