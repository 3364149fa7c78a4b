package commands

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"docqa/internal/identity"
	"docqa/internal/tui"
)

func newChatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <url|path>",
		Short: "Ingest a document and ask questions interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := ingestOrFail(ctx, a, args[0])
			if err != nil {
				return err
			}
			// Log lines would tear the full-screen view.
			a.logger.SetLevel(log.FatalLevel)

			m := tui.New(ctx, a.svc, tui.Document{
				ID:      res.DocumentID,
				Title:   identity.Title(args[0]),
				Summary: res.Summary,
			})
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
}
