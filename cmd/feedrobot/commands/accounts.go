package commands

import (
	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/serviceutil"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func init() {
	rootCmd.AddCommand(accountsCmd)
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Summarizes every account that has collected articles.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		database, err := cfg.Db.OpenDB(db.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()
		service := articles.NewService(database)

		summaries, err := service.Accounts(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list accounts", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Account", "Articles", "Last seen"})
		for _, s := range summaries {
			t.AppendRow(table.Row{s.Account, s.ArticleCount, formatTime(s.LastSeen)})
		}
		t.Render()
	},
}
