package commands

import (
	"os"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/serviceutil"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var (
	listAccount *string
	listLimit   *int64
	listOffset  *int64
)

func init() {
	listAccount = listCmd.Flags().String("account", "", "Only show articles from this account.")
	listLimit = listCmd.Flags().Int64("limit", 50, "Maximum number of articles to show.")
	listOffset = listCmd.Flags().Int64("offset", 0, "Number of articles to skip.")
	rootCmd.AddCommand(listCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

var listCmd = &cobra.Command{
	Use:   "list [--account <name>] [--limit <n>] [--offset <n>]",
	Short: "Lists collected articles, newest first.",
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

		items, err := service.List(cmd.Context(), *listAccount, *listLimit, *listOffset)
		if err != nil {
			serviceutil.Fatal("failed to list articles", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Account", "Title", "Published", "URL"})
		for _, a := range items {
			t.AppendRow(table.Row{a.Account, a.Title, formatTime(a.PublishedAt), a.URL})
		}
		t.Render()
	},
}
