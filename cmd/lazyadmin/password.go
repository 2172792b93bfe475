package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rebelice/lazyadmin/internal/db/discovery"
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Manage the database password stored in the OS keyring",
}

var passwordSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Read a password from stdin and store it for the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return fmt.Errorf("empty password")
		}

		conn := discovery.ApplyEnvironment(cfg.ConnectionConfig())
		if err := discovery.SavePassword(conn, password); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved password for %s\n", conn)
		return nil
	},
}

var passwordDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored password of the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn := discovery.ApplyEnvironment(cfg.ConnectionConfig())
		if err := discovery.DeletePassword(conn); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Deleted password for %s\n", conn)
		return nil
	},
}

func init() {
	passwordCmd.AddCommand(passwordSetCmd)
	passwordCmd.AddCommand(passwordDeleteCmd)
}
