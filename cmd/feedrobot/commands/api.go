package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/serviceutil"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles/db"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func init() {
	rootCmd.AddCommand(apiCmd)
}

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serves the read-only article API over HTTP.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if cfg.Api.Port == 0 {
			cfg.Api.Port = 8000
		}
		database, err := cfg.Db.OpenDB(db.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		addr := fmt.Sprintf("%s:%d", cfg.Api.Host, cfg.Api.Port)
		server := &http.Server{
			Addr:    addr,
			Handler: articles.NewRouter(articles.NewService(database)),
		}

		ctx := serviceutil.SignalContext()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()

		slog.Info("serving article api", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serviceutil.Fatal("api server exited", err)
		}
	},
}
