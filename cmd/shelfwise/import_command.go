package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/ingest"
	"github.com/shelfwise/shelfwise-server/internal/taxonomy"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		publisherID int64
		blobDir     string
		mode        string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "import <batch.json>",
		Short: "Import a batch file for a publisher",
		Long: `Runs a batch file through the same pipeline as the HTTP API.

The file holds {"records": [...], "blobs": {...}, "mode": "..."} or a bare
array of records. Files in --blobs named book_<index>_<role>.<ext> are added
as image blobs and take precedence over blobs of the same key in the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			batch, err := ingest.DecodeBatch(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if blobDir != "" {
				if err := loadBlobDir(blobDir, batch); err != nil {
					return err
				}
			}
			if mode != "" {
				if batch.Mode, err = taxonomy.ParseMode(mode); err != nil {
					return err
				}
			}

			engine, err := do.Invoke[*ingest.Engine](ctx.container())
			if err != nil {
				return err
			}
			result, err := engine.Run(cmd.Context(), publisherID, batch)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderBatchResult(result))
			fmt.Fprintf(out, "Batch %s: %d created, %d failed\n", result.BatchID, result.SuccessCount, result.FailureCount)
			return nil
		},
	}

	cmd.Flags().Int64VarP(&publisherID, "publisher", "p", 0, "Publisher the books belong to")
	cmd.Flags().StringVar(&blobDir, "blobs", "", "Directory of image files named book_<index>_<role>.<ext>")
	cmd.Flags().StringVar(&mode, "mode", "", "Taxonomy mode: restricted or unrestricted")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the batch result as JSON")
	_ = cmd.MarkFlagRequired("publisher")

	return cmd
}

// loadBlobDir adds every file in dir to batch.Blobs, keyed by its name
// without the extension. Subdirectories and dotfiles are skipped.
func loadBlobDir(dir string, batch *ingest.Batch) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if batch.Blobs == nil {
		batch.Blobs = make(map[string]domain.Blob, len(entries))
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		batch.Blobs[key] = domain.Blob{Data: data, Filename: e.Name()}
	}
	return nil
}

// renderBatchResult lists every record in submission order.
func renderBatchResult(result *domain.BatchResult) string {
	type line struct {
		index int
		row   []string
	}
	lines := make([]line, 0, result.Total())
	for _, c := range result.Created {
		lines = append(lines, line{c.Index, []string{
			strconv.Itoa(c.Index),
			c.Title,
			"created",
			strconv.FormatInt(c.BookID, 10),
			strings.Join(c.WarningStrings(), "\n"),
		}})
	}
	for _, e := range result.Errors {
		lines = append(lines, line{e.Index, []string{
			strconv.Itoa(e.Index),
			e.Title,
			string(e.ErrorKind),
			"",
			e.Message,
		}})
	}
	slices.SortFunc(lines, func(a, b line) int { return a.index - b.index })

	rows := make([][]string, len(lines))
	for i, l := range lines {
		rows[i] = l.row
	}
	return renderTable(
		[]string{"#", "Title", "Result", "Book", "Details"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
}
