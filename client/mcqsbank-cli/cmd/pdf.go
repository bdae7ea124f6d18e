package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pdfCmd = &cobra.Command{
	Use:   "pdf",
	Short: "Manage uploaded PDFs",
}

var uploadCmd = &cobra.Command{
	Use:   "upload [file-path]",
	Short: "Upload a PDF; text extraction and indexing run in the background",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(learningURL, true)
		if err != nil {
			return err
		}
		var resp struct {
			Message string `json:"message"`
			PDFID   string `json:"pdf_id"`
		}
		if err := c.UploadFile(cmd.Context(), "/api/v1/pdfs/upload/", "file", args[0], &resp); err != nil {
			return err
		}
		fmt.Printf("%s\nPDF ID: %s\n", resp.Message, resp.PDFID)
		fmt.Printf("To wait for processing, run: mcqsbank-cli pdf wait %s\n", resp.PDFID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded PDFs",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(learningURL, true)
		if err != nil {
			return err
		}
		var docs []map[string]interface{}
		if err := c.GetJSON(cmd.Context(), "/api/v1/pdfs/", &docs); err != nil {
			return err
		}
		return printJSON(docs)
	},
}

type pdfStatus struct {
	ID              string `json:"id"`
	Processed       bool   `json:"processed"`
	ChunkCount      int    `json:"chunk_count"`
	ProcessingError string `json:"processing_error"`
}

var waitCmd = &cobra.Command{
	Use:   "wait [pdf-id]",
	Short: "Poll until a PDF has been processed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(learningURL, true)
		if err != nil {
			return err
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")
		deadline := time.Now().Add(timeout)
		for {
			var docs []pdfStatus
			if err := c.GetJSON(cmd.Context(), "/api/v1/pdfs/", &docs); err != nil {
				return err
			}
			found := false
			for _, d := range docs {
				if d.ID != args[0] {
					continue
				}
				found = true
				if d.Processed {
					fmt.Printf("Processed: %d chunks indexed\n", d.ChunkCount)
					return nil
				}
				if d.ProcessingError != "" {
					return fmt.Errorf("processing failed: %s", d.ProcessingError)
				}
			}
			if !found {
				return fmt.Errorf("PDF %s not found", args[0])
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("timed out waiting for PDF %s", args[0])
			}
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-time.After(2 * time.Second):
			}
		}
	},
}

func init() {
	waitCmd.Flags().Duration("timeout", 5*time.Minute, "how long to wait")
	rootCmd.AddCommand(pdfCmd)
	pdfCmd.AddCommand(uploadCmd, listCmd, waitCmd)
}
