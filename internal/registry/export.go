package registry

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

var exportHeader = []string{"법인명", "법인등록번호", "사업연도", "시작일", "종료일", "사업연도여부", "비고"}

// csvStreamer writes UTF-8 CSV prefixed with a byte-order mark so
// spreadsheet tools pick the right encoding for Korean headers.
type csvStreamer struct {
	bom          io.WriteCloser
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	bom := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	buf := bufio.NewWriterSize(bom, csvBufferSize)
	return &csvStreamer{bom: bom, buf: buf, csv: csv.NewWriter(buf), flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func (s *csvStreamer) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.bom.Close()
}

// WriteCSV renders snapshot in the export layout: one line per fiscal year,
// and a single line with empty fiscal-year columns for a company that has none.
func WriteCSV(w io.Writer, snapshot []CompanyFiscalYears) error {
	streamer := newCSVStreamer(w)
	if err := streamer.writeRow(exportHeader); err != nil {
		return fmt.Errorf("registry: export header: %w", err)
	}
	for _, item := range snapshot {
		c := item.Company
		if len(item.FiscalYears) == 0 {
			if err := streamer.writeRow([]string{c.Name, c.RegistrationNumber, "", "", "", "", ""}); err != nil {
				return fmt.Errorf("registry: export row: %w", err)
			}
			continue
		}
		for _, fy := range item.FiscalYears {
			isMain := "N"
			if fy.IsMain {
				isMain = "Y"
			}
			if err := streamer.writeRow([]string{c.Name, c.RegistrationNumber, fy.FiscalYear, fy.StartDate, fy.EndDate, isMain, fy.Remarks}); err != nil {
				return fmt.Errorf("registry: export row: %w", err)
			}
		}
	}
	if err := streamer.Close(); err != nil {
		return fmt.Errorf("registry: export flush: %w", err)
	}
	return nil
}

// ExportFileName suggests the download name for an export taken at now.
func ExportFileName(now time.Time) string {
	return "법인정보_" + now.Format("20060102") + ".csv"
}
