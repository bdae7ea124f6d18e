package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:       "generate [quiz|flashcards|notes] [pdf-id]",
	Short:     "Generate a quiz, flashcards or notes from a processed PDF",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"quiz", "flashcards", "notes"},
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := map[string]string{
			"quiz":       "/api/v1/learning/generate-quiz/",
			"flashcards": "/api/v1/learning/generate-flashcards/",
			"notes":      "/api/v1/learning/generate-notes/",
		}
		path, ok := paths[args[0]]
		if !ok {
			return fmt.Errorf("unknown artifact %q", args[0])
		}
		c, err := newClient(learningURL, true)
		if err != nil {
			return err
		}

		items, _ := cmd.Flags().GetInt("items")
		difficulty, _ := cmd.Flags().GetString("difficulty")
		quizType, _ := cmd.Flags().GetString("type")
		language, _ := cmd.Flags().GetString("language")
		body := map[string]interface{}{
			"pdf_id":     args[1],
			"num_items":  items,
			"difficulty": difficulty,
			"language":   language,
		}
		if args[0] == "quiz" {
			body["quiz_type"] = quizType
		}

		var out map[string]interface{}
		if err := c.PostJSON(cmd.Context(), path, body, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat [pdf-id] [message]",
	Short: "Ask a question about a processed PDF",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(learningURL, true)
		if err != nil {
			return err
		}
		var resp struct {
			Response string `json:"response"`
		}
		body := map[string]string{"pdf_id": args[0], "message": args[1]}
		if err := c.PostJSON(cmd.Context(), "/api/v1/chat/", body, &resp); err != nil {
			return err
		}
		fmt.Println(resp.Response)
		return nil
	},
}

func init() {
	generateCmd.Flags().Int("items", 5, "number of questions, cards or sections")
	generateCmd.Flags().String("difficulty", "medium", "easy, medium or hard")
	generateCmd.Flags().String("type", "mixed", "quiz type: multiple_choice, true_false, fill_in_blank, matching or mixed")
	generateCmd.Flags().String("language", "English", "output language")
	rootCmd.AddCommand(generateCmd, chatCmd)
}
