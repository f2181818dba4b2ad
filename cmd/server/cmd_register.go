package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"detective_lab/internal/app/service"
	"detective_lab/internal/domain/model"

	"github.com/spf13/cobra"
)

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var (
		role     string
		password string
	)
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create a user; the password is read from stdin unless --password is set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given on stdin")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			return withApp(cmd.Context(), opts, func(app *application) error {
				resp, err := app.auth.Register(cmd.Context(), service.RegisterRequest{
					Username: args[0],
					Password: password,
					Role:     model.Role(role),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", resp.User.Username, resp.User.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", string(model.RoleLearner), "learner or instructor")
	cmd.Flags().StringVar(&password, "password", "", "Password (avoid on shared machines)")
	return cmd
}
