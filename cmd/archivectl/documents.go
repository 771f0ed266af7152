package main

import (
	"bufio"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"docarchive/internal/export"
	"docarchive/internal/model"
	"docarchive/internal/query"
	"docarchive/internal/rolegate"
	"docarchive/internal/service"
	"docarchive/internal/upload"
)

var sessionGuard = rolegate.Guard{RequireUser: true}

// filterFlags are the list filters shared by list and export.
type filterFlags struct {
	params query.Params
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.params.CategoryID, "category", "", "Category id")
	cmd.Flags().StringVar(&f.params.OfficeID, "office", "", "Office id")
	cmd.Flags().StringVar(&f.params.Direction, "direction", "", "inward, outward or importantDocuments")
	cmd.Flags().StringVar(&f.params.Start, "start", "", "Earliest document date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.params.End, "end", "", "Latest document date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&f.params.Search, "search", "s", "", "Search title and reference number")
}

func newDocumentsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "List, fetch, upload, delete and export documents",
	}
	cmd.AddCommand(
		newListCmd(c),
		newGetCmd(c),
		newDeleteCmd(c),
		newUploadCmd(c),
		newExportCmd(c),
	)
	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	var (
		filters     filterFlags
		pages       int
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents, newest upload first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := c.ctx(cmd)
			filter, err := filters.params.Filter(c.cfg.Location)
			if err != nil {
				return err
			}
			q := service.ListQuery{Filter: filter, Search: filters.params.Search, Pages: pages}
			res, err := c.app.Documents.List(ctx, q)
			if err != nil {
				return err
			}
			if !interactive || !res.HasMore {
				return c.printPage(*res)
			}

			// Reveal everything once, then page through it locally.
			q.Pages = (res.Total + res.PageSize - 1) / res.PageSize
			all, err := c.app.Documents.List(ctx, q)
			if err != nil {
				return err
			}
			pager := query.NewPager(all.Items, res.PageSize)
			for i := 1; i < pages; i++ {
				pager.LoadMore()
			}
			in := bufio.NewScanner(cmd.InOrStdin())
			printed := 0
			for {
				page := pager.Page()
				page.Items = page.Items[printed:]
				if err := c.printPage(page); err != nil {
					return err
				}
				printed = page.Visible
				if !page.HasMore {
					return nil
				}
				fmt.Fprint(c.out, "press enter to load more, q to quit: ")
				if !in.Scan() || strings.TrimSpace(in.Text()) == "q" {
					return nil
				}
				pager.LoadMore()
			}
		},
	}
	filters.bind(cmd)
	cmd.Flags().IntVar(&pages, "pages", 1, "Number of pages to reveal")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Load more pages on enter")
	return cmd
}

func (c *cli) printPage(p query.Page[model.Document]) error {
	if err := writeTable(c.out, p.Items, c.cfg.Location); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "showing %d of %d\n", p.Visible, p.Total)
	return nil
}

// writeTable renders documents as aligned columns.
func writeTable(w io.Writer, docs []model.Document, loc *time.Location) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDIRECTION\tDATE\tREFERENCE\tSIZE (MB)")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID,
			d.Title,
			d.Direction.Label(),
			d.DocumentDate.In(loc).Format(query.DateLayout),
			d.Reference(),
			export.FormatMiB(d.FileSize),
		)
	}
	return tw.Flush()
}

func newGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.Documents.Get(c.ctx(cmd), args[0])
			if err != nil {
				return err
			}
			return c.printJSON(doc)
		},
	}
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a document and its content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Documents.Delete(c.ctx(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "deleted %s\n", args[0])
			return nil
		},
	}
}

func newUploadCmd(c *cli) *cobra.Command {
	var (
		req      upload.Request
		dir      string
		date     string
		mimeType string
	)
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a PDF or image document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if mimeType == "" {
				if mimeType, err = detectMimeType(f); err != nil {
					return err
				}
			}
			req.File = upload.File{Name: filepath.Base(args[0]), MimeType: mimeType, Content: f}
			req.Direction = model.Direction(dir)
			if date != "" {
				if req.DocumentDate, err = time.ParseInLocation(query.DateLayout, date, c.cfg.Location); err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
			}

			errOut := cmd.ErrOrStderr()
			tr := upload.NewTracker(func(p int) {
				if p > 0 {
					fmt.Fprintf(errOut, "progress: %d%%\n", p)
				}
			})
			res, err := c.app.Documents.Upload(c.ctx(cmd), req, tr)
			if err != nil {
				return err
			}
			return c.printJSON(res)
		},
	}
	cmd.Flags().StringVar(&req.CategoryID, "category", "", "Category id")
	cmd.Flags().StringVar(&req.OfficeID, "office", "", "Office id")
	cmd.Flags().StringVar(&dir, "direction", "", "inward, outward or importantDocuments")
	cmd.Flags().StringVar(&req.Title, "title", "", "Document title")
	cmd.Flags().StringVar(&req.ReferenceNumber, "ref", "", "Reference number")
	cmd.Flags().StringVar(&date, "date", "", "Document date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&mimeType, "type", "", "MIME type, detected when empty")
	return cmd
}

// detectMimeType guesses the type from the extension, then from the first bytes.
// The file offset is restored afterwards.
func detectMimeType(f *os.File) (string, error) {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name()))); t != "" {
		t, _, _ = strings.Cut(t, ";")
		return t, nil
	}
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	t, _, _ := strings.Cut(http.DetectContentType(head[:n]), ";")
	return t, nil
}

func newExportCmd(c *cli) *cobra.Command {
	var (
		filters filterFlags
		ids     []string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export documents as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.params.Filter(c.cfg.Location)
			if err != nil {
				return err
			}
			if output == "" {
				output = export.Filename(time.Now().In(c.cfg.Location))
			}

			q := service.ExportQuery{Filter: filter, Search: filters.params.Search, IDs: ids}
			write := func(w io.Writer) error {
				return c.app.Documents.Export(c.ctx(cmd), w, q)
			}
			if output == "-" {
				return write(c.out)
			}
			if err := writeFileAtomic(output, write); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	filters.bind(cmd)
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Only export these document ids")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout (default documents_export_<time>.csv)")
	return cmd
}

// writeFileAtomic writes to a temporary file next to path and renames it into
// place only once write and Close succeeded. On failure path is left untouched.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	if err = write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Chmod(0o644); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", f.Name(), err)
	}
	return os.Rename(f.Name(), path)
}
