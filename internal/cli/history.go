package cli

import (
	"database/sql"
	"fmt"
	"html"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"learnemg/internal/db"
	"learnemg/internal/models"
	"learnemg/internal/persona"
	"learnemg/internal/render"
	"learnemg/internal/ui"

	"github.com/spf13/cobra"
)

var (
	flagHistoryLimit int
	flagExportOut    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and export saved conversations",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent conversations",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyExportCmd = &cobra.Command{
	Use:   "export ID",
	Short: "Write a conversation as an HTML page",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

func init() {
	historyListCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "maximum conversations to show")
	historyExportCmd.Flags().StringVarP(&flagExportOut, "output", "o", "", "output file (default stdout)")
	historyCmd.AddCommand(historyListCmd, historyExportCmd)
}

func openHistory() (*sql.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return db.Open(cfg.Path("learnemg.db"))
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	conn, err := openHistory()
	if err != nil {
		return err
	}
	defer conn.Close()

	total, chats, err := db.GetRecentChats(conn, max(flagHistoryLimit, 1), 0)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if total == 0 {
		fmt.Fprintln(out, "No saved conversations.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUPDATED\tPERSONA\tMODEL\tLAST PROMPT")
	for _, c := range chats {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			c.ID,
			ui.RelativeTime(time.Unix(c.UpdatedAtUnix, 0)),
			c.PersonaID,
			c.ModelID,
			ui.TruncateRunes(ui.PromptPreview(c.LastUserPrompt), 60),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if total > len(chats) {
		fmt.Fprintf(out, "%d of %d shown\n", len(chats), total)
	}
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid conversation id %q", args[0])
	}

	conn, err := openHistory()
	if err != nil {
		return err
	}
	defer conn.Close()

	chat, err := db.GetChat(conn, id)
	if err != nil {
		return err
	}
	msgs, err := db.GetChatMessages(conn, id)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if flagExportOut != "" {
		f, err := os.Create(flagExportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return writeTranscriptHTML(w, chat, msgs)
}

func writeTranscriptHTML(w io.Writer, chat models.ChatListItem, msgs []models.DBMessage) error {
	title := fmt.Sprintf("Conversation %d (%s)", chat.ID, chat.ModelID)
	body := render.Render(ui.TranscriptMarkdown(chat, msgs))
	avatar := ""
	if p, ok := persona.Lookup(chat.PersonaID); ok {
		avatar = fmt.Sprintf(`<img class="avatar" src="%s" alt="%s" width="48"> `,
			html.EscapeString(p.AvatarRef), html.EscapeString(p.DisplayName))
	}
	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
<h1>%s%s</h1>
%s
</body>
</html>
`, html.EscapeString(title), avatar, html.EscapeString(title), body)
	return err
}
