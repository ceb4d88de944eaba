// Package export turns a finished campaign's results into a downloadable
// spreadsheet.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/leadpilot/leadpilot/internal/status"
	"github.com/leadpilot/leadpilot/internal/survey"
)

// Format selects the spreadsheet flavor.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	// ErrNotComplete means the campaign is still processing.
	ErrNotComplete = errors.New("campaign is not finished yet")
	// ErrNoResults means processing finished with nothing to download.
	ErrNoResults = errors.New("campaign produced no results")
	// ErrBadFormat means the requested format is not supported.
	ErrBadFormat = errors.New("unsupported export format")
)

// StatusChecker is the slice of the status tracker the exporter needs.
type StatusChecker interface {
	Check(ctx context.Context, surveyID string, fetchData, bypassCache bool) status.ProcessingStatus
}

// File is a rendered export ready to be served as a download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Exporter fetches a campaign's final results and renders them.
type Exporter struct {
	checker StatusChecker
	logger  *slog.Logger

	now func() time.Time // injectable for tests
}

func NewExporter(checker StatusChecker, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{checker: checker, logger: logger, now: time.Now}
}

// Export renders the survey's processed results. The status check always
// goes to the provider with result data requested: a cached progress
// entry never carries rows, and a download must reflect the live state.
func (e *Exporter) Export(ctx context.Context, sv *survey.Survey, format Format) (*File, error) {
	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("%w: %q", ErrBadFormat, format)
	}

	st := e.checker.Check(ctx, sv.ID, true, true)
	if !st.Complete {
		return nil, ErrNotComplete
	}
	if st.Processed == 0 || len(st.Rows) == 0 {
		return nil, ErrNoResults
	}

	header := columns(sv.ContactColumns, st.Rows)
	name := fmt.Sprintf("campaign-results-%s.%s", e.now().Format("2006-01-02"), format)

	var (
		data []byte
		ct   string
		err  error
	)
	switch format {
	case FormatCSV:
		data, ct = renderCSV(header, st.Rows), "text/csv; charset=utf-8"
	case FormatXLSX:
		data, err = renderXLSX(header, st.Rows)
		ct = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}

	e.logger.Info("results exported", "survey_id", sv.ID, "format", string(format), "rows", len(st.Rows))
	return &File{Name: name, ContentType: ct, Data: data}, nil
}

// columns returns the export header: the upload's original column order,
// followed by any columns the processing added, sorted for stable output.
func columns(original []string, rows []survey.Row) []string {
	seen := make(map[string]bool, len(original))
	header := make([]string, 0, len(original))
	for _, c := range original {
		if !seen[c] {
			seen[c] = true
			header = append(header, c)
		}
	}

	var extra []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(header, extra...)
}

// renderCSV writes the rows with every cell quoted, so values containing
// commas, quotes or newlines survive any downstream parser.
func renderCSV(header []string, rows []survey.Row) []byte {
	var sb strings.Builder
	writeRecord := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(c, `"`, `""`))
			sb.WriteByte('"')
		}
		sb.WriteString("\r\n")
	}

	writeRecord(header)
	cells := make([]string, len(header))
	for _, row := range rows {
		for i, col := range header {
			cells[i] = row[col]
		}
		writeRecord(cells)
	}
	return []byte(sb.String())
}

func renderXLSX(header []string, rows []survey.Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Results"

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerCells := make([]interface{}, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerCells); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cells := make([]interface{}, len(header))
		for j, col := range header {
			cells[j] = row[col]
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
