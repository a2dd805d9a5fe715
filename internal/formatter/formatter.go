// package formatter renders import summaries and history as tables, and exports run outcomes (CSV, JSON, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/cloudx/internal/models"
	"github.com/desertthunder/cloudx/internal/shared"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Alignment of a table column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

const timeLayout = "2006-01-02 15:04:05"

// RenderTable draws rows under headers in a rounded box. Short rows are padded with empty cells.
func RenderTable(headers []string, rows [][]string, aligns []Alignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// RenderSummary draws the end-of-run counters followed by every song that did not import.
func RenderSummary(counts models.RunCounts, failed []models.ImportResult, failureLog string) string {
	var b strings.Builder

	b.WriteString(RenderTable(
		[]string{"Catalog", "Importable", "Imported", "Already In Cloud", "Failed"},
		[][]string{{
			strconv.Itoa(counts.Total),
			strconv.Itoa(counts.Resolved),
			strconv.Itoa(counts.Succeeded),
			strconv.Itoa(counts.Skipped),
			strconv.Itoa(counts.Exhausted),
		}},
		[]Alignment{AlignRight, AlignRight, AlignRight, AlignRight, AlignRight},
	))
	b.WriteString("\n")

	if len(failed) == 0 {
		return b.String()
	}

	rows := make([][]string, 0, len(failed))
	for _, r := range failed {
		rows = append(rows, []string{
			strconv.FormatInt(r.Song.ID, 10),
			r.Song.Name,
			r.Song.Artist,
			string(r.State),
			strconv.Itoa(r.Attempts),
			truncate(r.Detail, 60),
		})
	}
	b.WriteString("\n")
	b.WriteString(RenderTable(
		[]string{"ID", "Name", "Artist", "State", "Attempts", "Detail"},
		rows,
		[]Alignment{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft},
	))
	b.WriteString("\n")

	if failureLog != "" {
		fmt.Fprintf(&b, "\nIDs written to %s\n", failureLog)
	}
	return b.String()
}

// RenderRuns draws one line per run, in the order given.
func RenderRuns(runs []*models.ImportRun) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		c := run.Counts()
		rows = append(rows, []string{
			strconv.Itoa(run.Sequence()),
			string(run.Status()),
			run.CatalogPath(),
			run.StartedAt().Format(timeLayout),
			formatDuration(run),
			strconv.Itoa(c.Resolved),
			strconv.Itoa(c.Succeeded),
			strconv.Itoa(c.Skipped),
			strconv.Itoa(c.Exhausted),
		})
	}
	return RenderTable(
		[]string{"#", "Status", "Catalog", "Started", "Duration", "Songs", "Imported", "Skipped", "Failed"},
		rows,
		[]Alignment{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight},
	)
}

// RenderRun draws a run's header details and its per-song outcomes.
func RenderRun(run *models.ImportRun, outcomes []*models.OutcomeRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run #%d (%s)\n", run.Sequence(), run.ID())
	fmt.Fprintf(&b, "Catalog:  %s\n", run.CatalogPath())
	fmt.Fprintf(&b, "Status:   %s\n", run.Status())
	fmt.Fprintf(&b, "Started:  %s\n", run.StartedAt().Format(timeLayout))
	if run.CompletedAt() != nil {
		fmt.Fprintf(&b, "Finished: %s (%s)\n", run.CompletedAt().Format(timeLayout), formatDuration(run))
	}
	if run.ErrorMessage() != "" {
		fmt.Fprintf(&b, "Error:    %s\n", run.ErrorMessage())
	}
	b.WriteString("\n")

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{
			strconv.FormatInt(o.SongID, 10),
			o.Name,
			o.Artist,
			o.Album,
			string(o.State),
			strconv.Itoa(o.Attempts),
			strconv.Itoa(o.RateLimited),
		})
	}
	b.WriteString(RenderTable(
		[]string{"ID", "Name", "Artist", "Album", "State", "Attempts", "Rate Limited"},
		rows,
		[]Alignment{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight},
	))
	b.WriteString("\n")
	return b.String()
}

// RenderCloudInfo draws the cloud locker usage.
func RenderCloudInfo(count int, used, capacity int64) string {
	free := capacity - used
	if free < 0 {
		free = 0
	}
	return RenderTable(
		[]string{"Songs", "Used", "Capacity", "Free"},
		[][]string{{strconv.Itoa(count), shared.FormatBytes(used), shared.FormatBytes(capacity), shared.FormatBytes(free)}},
		[]Alignment{AlignRight, AlignRight, AlignRight, AlignRight},
	)
}

// ExportToCSV converts outcomes to CSV with columns: ID, Name, Artist, Album, State, Attempts, RateLimited, Detail
func ExportToCSV(outcomes []*models.OutcomeRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artist", "Album", "State", "Attempts", "RateLimited", "Detail"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, o := range outcomes {
		record := []string{
			strconv.FormatInt(o.SongID, 10),
			o.Name,
			o.Artist,
			o.Album,
			string(o.State),
			strconv.Itoa(o.Attempts),
			strconv.Itoa(o.RateLimited),
			o.Detail,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

type outcomeJSON struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	State       string `json:"state"`
	Attempts    int    `json:"attempts"`
	RateLimited int    `json:"rate_limited"`
	Detail      string `json:"detail,omitempty"`
}

// ExportToJSON converts outcomes to an indented JSON array.
func ExportToJSON(outcomes []*models.OutcomeRecord) ([]byte, error) {
	out := make([]outcomeJSON, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, outcomeJSON{
			ID:          o.SongID,
			Name:        o.Name,
			Artist:      o.Artist,
			Album:       o.Album,
			State:       string(o.State),
			Attempts:    o.Attempts,
			RateLimited: o.RateLimited,
			Detail:      o.Detail,
		})
	}
	return shared.MarshalJSON(out, true)
}

// ExportToText lists one song ID per line, in the failure log format.
func ExportToText(outcomes []*models.OutcomeRecord) ([]byte, error) {
	var buf bytes.Buffer
	for _, o := range outcomes {
		buf.WriteString(strconv.FormatInt(o.SongID, 10))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Export renders outcomes in format: csv, json or txt.
func Export(outcomes []*models.OutcomeRecord, format string) ([]byte, error) {
	switch format {
	case "csv":
		return ExportToCSV(outcomes)
	case "json":
		return ExportToJSON(outcomes)
	case "txt":
		return ExportToText(outcomes)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q (want csv, json or txt)", shared.ErrInvalidArgument, format)
	}
}

// WriteExport writes outcomes in format to path.
func WriteExport(outcomes []*models.OutcomeRecord, format, path string) error {
	data, err := Export(outcomes, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

func formatDuration(run *models.ImportRun) string {
	if run.CompletedAt() == nil {
		return "-"
	}
	return run.CompletedAt().Sub(run.StartedAt()).Round(time.Second).String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
