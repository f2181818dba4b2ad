package main

import (
	"io"

	"detective_lab/internal/domain/model"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// newTable returns a borderless table writer that renders into out.
func newTable(out io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	style := table.StyleLight
	style.Options.DrawBorder = false
	style.Options.SeparateColumns = false
	tw.SetStyle(style)
	return tw
}

func newLeaderboardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the learner ranking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *application) error {
				rows, err := app.leaderboard.Leaderboard(cmd.Context())
				if err != nil {
					return err
				}
				tw := newTable(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"Rank", "User", "Points", "Solved"})
				for _, row := range rows {
					tw.AppendRow(table.Row{row.Rank, row.Username, row.Points, row.SolvedCount})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func newCasesCmd(opts *rootOptions) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "List the cases, with lock state when --user is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *application) error {
				tw := newTable(cmd.OutOrStdout())
				if username == "" {
					tw.AppendHeader(table.Row{"ID", "Title", "Concept", "Requires"})
					for _, c := range app.catalog.List() {
						tw.AppendRow(table.Row{c.ID, c.Title, c.Concept, orDash(c.Prerequisite)})
					}
					tw.Render()
					return nil
				}

				cases, err := app.cases.ListCases(cmd.Context(), model.Session{Username: username}, "")
				if err != nil {
					return err
				}
				tw.AppendHeader(table.Row{"ID", "Title", "Concept", "State"})
				for _, c := range cases {
					tw.AppendRow(table.Row{c.ID, c.Title, c.Concept, caseState(c)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "Show lock and solved state for this user")
	return cmd
}

func caseState(c model.CaseOverview) string {
	switch {
	case c.Solved:
		return "solved"
	case c.Locked:
		return "locked"
	default:
		return "open"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
