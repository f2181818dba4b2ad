package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"detective_lab/internal/app/service"
	"detective_lab/internal/domain/model"

	"github.com/spf13/cobra"
)

func newGradeCmd(opts *rootOptions) *cobra.Command {
	var (
		username string
		caseID   string
		runtime  string
		file     string
	)
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade a solution file for a user and record the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readSource(cmd, file)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(app *application) error {
				outcome, err := app.submissions.Submit(cmd.Context(), model.Session{Username: username}, caseID,
					service.SubmitRequest{Runtime: runtime, Code: code})
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(outcome)
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "User the submission is graded for (required)")
	cmd.Flags().StringVarP(&caseID, "case", "c", "", "Case id (required)")
	cmd.Flags().StringVarP(&runtime, "runtime", "r", "", "Runtime slug: lua or go (default: lua)")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Solution file, - for stdin")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("case")
	return cmd
}

func readSource(cmd *cobra.Command, file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(io.LimitReader(cmd.InOrStdin(), service.MaxCodeBytes+1))
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("read solution: %w", err)
	}
	return string(data), nil
}
