package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email (required)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (default $HOSTIQ_PASSWORD, else read from stdin)")
	_ = loginCmd.MarkFlagRequired("email")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the access and refresh tokens",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		u, err := rt.svc.Login(cmd.Context(), loginEmail, password)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), u)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s) on profile %q\n", orDash(u.Email), orDash(u.Role), rt.cfg.Profile)
		return nil
	}),
}

func readPassword(cmd *cobra.Command) (string, error) {
	if loginPassword != "" {
		return loginPassword, nil
	}
	if v := os.Getenv("HOSTIQ_PASSWORD"); v != "" {
		return v, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", errors.New("password is required")
	}
	return line, nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored tokens",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		if err := rt.svc.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged out of profile %q\n", rt.cfg.Profile)
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		u, err := rt.svc.Me(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), u)
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintf(tw, "ID\t%s\n", orDash(u.ID))
		fmt.Fprintf(tw, "NAME\t%s\n", orDash(u.Name))
		fmt.Fprintf(tw, "EMAIL\t%s\n", orDash(u.Email))
		fmt.Fprintf(tw, "ROLE\t%s\n", orDash(u.Role))
		return tw.Flush()
	}),
}
