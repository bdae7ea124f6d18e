package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/pkg/circuitbreaker"
	httpclient "github.com/aimankahim/mcqsbank/backend/go/pkg/http"

	"github.com/spf13/cobra"
)

var (
	learningURL string
	userURL     string
	tokenFile   string
)

var rootCmd = &cobra.Command{
	Use:          "mcqsbank-cli",
	Short:        "A CLI client for the mcqsbank learning services",
	Long:         `A command-line interface for uploading PDFs, generating quizzes, flashcards and notes, and chatting with documents.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	home, _ := os.UserHomeDir()
	rootCmd.PersistentFlags().StringVar(&learningURL, "learning-url", envOr("MCQSBANK_LEARNING_URL", "http://localhost:8080"), "learning service base URL")
	rootCmd.PersistentFlags().StringVar(&userURL, "user-url", envOr("MCQSBANK_USER_URL", "http://localhost:8081"), "user service base URL")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", filepath.Join(home, ".mcqsbank-token"), "where the access token is stored")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient(baseURL string, authenticated bool) (*httpclient.Client, error) {
	c := httpclient.NewClientWithBreaker(baseURL, circuitbreaker.New(3, 1, 30*time.Second))
	if !authenticated {
		return c, nil
	}
	token, err := os.ReadFile(tokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.New("not logged in, run: mcqsbank-cli login <username>")
		}
		return nil, err
	}
	c.SetToken(strings.TrimSpace(string(token)))
	return c, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
