package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nurpe/lab-review/internal/documents"
	"github.com/nurpe/lab-review/internal/excel"
	"github.com/nurpe/lab-review/internal/model"
	"github.com/nurpe/lab-review/internal/pdf"
	"github.com/nurpe/lab-review/internal/review"
)

type listOptions struct {
	stage  string
	page   int
	limit  int
	search string
}

func (o *listOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.stage, "stage", "s", "pending", "contract stage: new, pending or completed")
	cmd.Flags().IntVarP(&o.page, "page", "p", 1, "page number")
	cmd.Flags().IntVarP(&o.limit, "limit", "l", 0, "rows per page (defaults to REVIEW_LIST_LIMIT)")
	cmd.Flags().StringVar(&o.search, "search", "", "free text filter")
}

func (o *listOptions) query(a *app) (review.Query, error) {
	stage, err := review.ParseStage(o.stage)
	if err != nil {
		return review.Query{}, err
	}
	limit := o.limit
	if limit <= 0 {
		limit = a.cfg.Review.ListLimit
	}
	return review.Query{Stage: stage, Page: o.page, Limit: limit, Search: o.search}, nil
}

func newListCommand(a *app) *cobra.Command {
	opts := &listOptions{}
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contracts of a stage with their result status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := opts.query(a)
			if err != nil {
				return err
			}
			page, err := a.reviews.Lister().List(cmd.Context(), query)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), page)
			}
			return printContracts(cmd.OutOrStdout(), page)
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	opts := &listOptions{}
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one page of contracts to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := opts.query(a)
			if err != nil {
				return err
			}
			page, err := a.reviews.Lister().List(cmd.Context(), query)
			if err != nil {
				return err
			}
			content, err := a.excel.Generate(*page)
			if err != nil {
				return err
			}
			name := excel.FileName(page.Stage, page.Page, time.Now())
			return saveLocal(cmd, dir, a.cfg.Review.DownloadDir, name, content)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "output directory (defaults to DOWNLOAD_DIR)")
	return cmd
}

func newReviewCommand(a *app) *cobra.Command {
	var (
		asJSON    bool
		exportPDF bool
		dir       string
	)

	cmd := &cobra.Command{
		Use:   "review <contract-id>",
		Short: "Show the review history of a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID(args[0])
			if err != nil {
				return err
			}
			session := a.reviews.Open(cmd.Context(), id)

			if exportPDF {
				content, err := a.pdf.Generate(session)
				if err != nil {
					return err
				}
				return saveLocal(cmd, dir, a.cfg.Review.DownloadDir, pdf.FileName(id), content)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), session)
			}
			return printSession(cmd.OutOrStdout(), session)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	cmd.Flags().BoolVar(&exportPDF, "pdf", false, "write the history as a PDF instead of printing it")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "output directory for --pdf (defaults to DOWNLOAD_DIR)")
	return cmd
}

func newDecisionCommand(a *app, decision model.Decision) *cobra.Command {
	var comment string

	short := "Accept the submitted result of a contract"
	if decision == model.DecisionReject {
		short = "Reject the submitted result of a contract"
	}

	cmd := &cobra.Command{
		Use:   string(decision) + " <contract-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID(args[0])
			if err != nil {
				return err
			}
			result, err := a.reviews.Decide(cmd.Context(), a.principal, review.DecideInput{
				ContractID: id,
				Decision:   decision,
				Comments:   comment,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: contract %d, task %d\n", decision, result.Outcome.ContractID, result.Outcome.TaskID)
			if result.Outcome.Message != "" {
				fmt.Fprintf(out, "server: %s\n", result.Outcome.Message)
			}
			if result.Refreshed != nil {
				fmt.Fprintf(out, "%d contracts still pending\n", result.Refreshed.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "comment sent with the decision")
	return cmd
}

func newUploadCommand(a *app) *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "upload <contract-id> <file>",
		Short: "Upload a result PDF for a contract",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID(args[0])
			if err != nil {
				return err
			}
			content, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[1], err)
			}
			if contentType == "" && strings.EqualFold(filepath.Ext(args[1]), ".pdf") {
				contentType = "application/pdf"
			}
			err = a.documents.Upload(cmd.Context(), id, documents.Upload{
				FileName:    filepath.Base(args[1]),
				ContentType: contentType,
				Content:     content,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s for contract %d\n", filepath.Base(args[1]), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "declared MIME type (guessed from the extension when empty)")
	return cmd
}

func newDownloadCommand(a *app) *cobra.Command {
	var (
		number string
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "download <contract-qr|appointment-qr|contract-pdf|result-pdf> <id>",
		Short: "Download a QR code or PDF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := documents.ParseKind(args[0])
			if err != nil {
				return err
			}
			id, err := model.ParseID(args[1])
			if err != nil {
				return err
			}
			if dir == "" {
				dir = a.cfg.Review.DownloadDir
			}
			file, err := a.documents.Download(cmd.Context(), documents.DownloadRequest{
				Kind:   kind,
				ID:     id,
				Number: number,
			}, documents.DiskSaver{Dir: dir})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s, %d bytes)\n", filepath.Join(dir, file.Name), file.MIMEType, file.Size)
			return nil
		},
	}
	cmd.Flags().StringVarP(&number, "number", "n", "", "contract number used in the file name")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "output directory (defaults to DOWNLOAD_DIR)")
	return cmd
}

func saveLocal(cmd *cobra.Command, dir, fallback, name string, content []byte) error {
	if dir == "" {
		dir = fallback
	}
	saver := documents.DiskSaver{Dir: dir}
	if err := saver.SaveBinary(cmd.Context(), content, name, ""); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", filepath.Join(dir, name))
	return nil
}

func writeJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func printContracts(out io.Writer, page *model.ContractPage) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNUMBER\tCLIENT\tDEADLINE\tRESULT")
	for _, c := range page.Items {
		deadline := "-"
		if c.Deadline != nil {
			deadline = c.Deadline.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, dash(c.Number), dash(c.ClientName), deadline, c.ResultStatus)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: page %d, %d of %d\n", page.Stage, page.Page, len(page.Items), page.Total)
	return nil
}

func printSession(out io.Writer, session review.Session) error {
	fmt.Fprintf(out, "contract %d: %s\n", session.ContractID, session.Status)
	if session.ActionableTaskID != nil {
		fmt.Fprintf(out, "actionable task: %d\n", *session.ActionableTaskID)
	} else {
		fmt.Fprintln(out, "actionable task: none")
	}
	fmt.Fprintf(out, "can decide: %t\n", session.CanDecide)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, task := range session.Tasks {
		fmt.Fprintf(w, "round %d (task %d)\t%s\n", i+1, task.ID, dash(task.Status))
		for _, item := range task.Items {
			comment := "-"
			if item.Comments != nil && *item.Comments != "" {
				comment = *item.Comments
			}
			fmt.Fprintf(w, "  %s\t%s\n", dash(item.Status), comment)
		}
	}
	return w.Flush()
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
