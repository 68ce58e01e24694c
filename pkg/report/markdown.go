package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"site-freezer/pkg/models"
)

// WriteMarkdown renders the report as a markdown summary, suitable for a
// terminal or for dropping into CI output.
func (r *Report) WriteMarkdown(w io.Writer) error {
	md := markdown.NewMarkdown(w)

	md.H1("Freeze Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + r.RunID + "`"},
			{"Started", r.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", r.Duration.Round(1e6).String()},
			{"Pages written", strconv.Itoa(r.PagesWritten)},
			{"Bytes written", strconv.FormatInt(r.BytesWritten, 10)},
		},
	})
	md.PlainText("")

	md.H2("Outcomes")
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Done", strconv.Itoa(r.Count(models.PageStatusDone))},
			{"Redirect", strconv.Itoa(r.Count(models.PageStatusRedirect))},
			{"External", strconv.Itoa(r.Count(models.PageStatusExternal))},
			{"Unchanged (skipped)", strconv.Itoa(r.Count(models.PageStatusSkipped))},
			{"Failed", strconv.Itoa(r.Count(models.PageStatusFailed))},
		},
	})
	md.PlainText("")

	if len(r.Failures) > 0 {
		md.H2("Failures")
		rows := make([][]string, 0, len(r.Failures))
		for _, failure := range r.Failures {
			rows = append(rows, []string{failure.URL, failure.Category, failure.Cause})
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Category", "Cause"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if r.Partial {
		md.Warning("Partial run: the crawl deadline or a cancel signal cut the frontier short.")
	}
	if r.FatalError != "" {
		md.Warning(fmt.Sprintf("Fatal error: %s", r.FatalError))
	}

	return md.Build()
}
