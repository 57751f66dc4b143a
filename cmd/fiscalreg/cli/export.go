package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/odyssey-erp/fiscalreg/internal/registry"
)

// ExitNothingToExport is returned when the registry holds no companies.
const ExitNothingToExport = 3

// exportFileMode matches what os.Create would give a regular download.
const exportFileMode = 0o644

// ExportOptions defines the flags of the export command.
type ExportOptions struct {
	// Output is the target file; "-" writes to Stdout and an empty value
	// uses the suggested file name inside Dir.
	Output string
	Dir    string
	Now    func() time.Time
	Stdout io.Writer
	Stderr io.Writer
}

// ExportCommand writes the registry CSV and reports where it went.
func ExportCommand(ctx context.Context, svc *registry.Service, opts ExportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Output == "-" {
		if err := svc.Export(ctx, opts.Stdout); err != nil {
			return reportExportError(opts.Stderr, err)
		}
		return 0
	}

	target := opts.Output
	if target == "" {
		target = filepath.Join(opts.Dir, registry.ExportFileName(opts.Now()))
	}
	f, err := os.CreateTemp(filepath.Dir(target), ".export-*.csv")
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "export: %v\n", err)
		return 1
	}
	defer os.Remove(f.Name())

	w := bufio.NewWriter(f)
	if err := svc.Export(ctx, w); err != nil {
		_ = f.Close()
		return reportExportError(opts.Stderr, err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_, _ = fmt.Fprintf(opts.Stderr, "export: %v\n", err)
		return 1
	}
	if err := f.Chmod(exportFileMode); err != nil {
		_ = f.Close()
		_, _ = fmt.Fprintf(opts.Stderr, "export: %v\n", err)
		return 1
	}
	if err := f.Close(); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "export: %v\n", err)
		return 1
	}
	if err := os.Rename(f.Name(), target); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "export: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "exported to %s\n", target)
	return 0
}

func reportExportError(w io.Writer, err error) int {
	if errors.Is(err, registry.ErrNothingToExport) {
		_, _ = fmt.Fprintln(w, "export: 저장된 법인 정보가 없습니다.")
		return ExitNothingToExport
	}
	_, _ = fmt.Fprintf(w, "export: %v\n", err)
	return 1
}
