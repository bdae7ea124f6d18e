package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in and store the access token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := os.Getenv("MCQSBANK_PASSWORD")
		if password == "" {
			fmt.Print("Password: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return err
			}
			password = strings.TrimSpace(line)
		}

		c, err := newClient(userURL, false)
		if err != nil {
			return err
		}
		var pair struct {
			Access  string `json:"access"`
			Refresh string `json:"refresh"`
		}
		body := map[string]string{"username": args[0], "password": password}
		if err := c.PostJSON(cmd.Context(), "/api/v1/auth/token/", body, &pair); err != nil {
			return err
		}
		if err := os.WriteFile(tokenFile, []byte(pair.Access), 0o600); err != nil {
			return err
		}
		fmt.Println("Logged in as " + args[0])
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register [username] [email]",
	Short: "Create an account and store the access token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := os.Getenv("MCQSBANK_PASSWORD")
		if password == "" {
			return fmt.Errorf("set MCQSBANK_PASSWORD to the new account's password")
		}
		c, err := newClient(userURL, false)
		if err != nil {
			return err
		}
		var resp struct {
			Access string `json:"access"`
		}
		body := map[string]string{"username": args[0], "email": args[1], "password": password}
		if err := c.PostJSON(cmd.Context(), "/api/v1/auth/register/", body, &resp); err != nil {
			return err
		}
		if err := os.WriteFile(tokenFile, []byte(resp.Access), 0o600); err != nil {
			return err
		}
		fmt.Println("Registered " + args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
}
