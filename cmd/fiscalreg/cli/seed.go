package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/odyssey-erp/fiscalreg/internal/registry"
)

// SeedOptions defines the flags of the seed command.
type SeedOptions struct {
	Reset  bool
	Stdout io.Writer
	Stderr io.Writer
}

var sampleCompanies = []registry.SaveInput{
	{
		Name:               "한빛상사 주식회사",
		RegistrationNumber: "1101111234567",
		Rows: []registry.FiscalYear{
			{FiscalYear: "2022", StartDate: "20220101", EndDate: "20221231"},
			{FiscalYear: "2023", StartDate: "20230101", EndDate: "20231231"},
			{FiscalYear: "2024", StartDate: "20240101", EndDate: "20241231", IsMain: true, Remarks: "당기"},
		},
	},
	{
		Name:               "누리테크 유한회사",
		RegistrationNumber: "220-81-62517",
		Rows: []registry.FiscalYear{
			{FiscalYear: "2023", StartDate: "20230401", EndDate: "20240331"},
			{FiscalYear: "2024", StartDate: "20240401", EndDate: "20250331", IsMain: true},
		},
	},
	{
		Name:               "바다물산",
		RegistrationNumber: "1348112345",
	},
}

// SeedCommand loads the sample companies through the validating service.
// With Reset the registry is cleared first; otherwise companies whose name is
// already registered are skipped.
func SeedCommand(ctx context.Context, store *registry.Store, svc *registry.Service, opts SeedOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	if opts.Reset {
		if err := store.Clear(ctx); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "seed: clear: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(opts.Stdout, "→ Cleared registry")
	}

	for _, input := range sampleCompanies {
		if _, found, err := store.FindCompany(ctx, input.Name, ""); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "seed: %v\n", err)
			return 1
		} else if found {
			_, _ = fmt.Fprintf(opts.Stdout, "→ Skipping %s (exists)\n", input.Name)
			continue
		}
		outcome, err := svc.Save(ctx, input)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "seed: %s: %v\n", input.Name, err)
			return 1
		}
		if !outcome.OK() {
			_, _ = fmt.Fprintf(opts.Stderr, "seed: %s rejected: %+v %+v\n", input.Name, outcome.CompanyFailures, outcome.RowFailure)
			return 1
		}
		_, _ = fmt.Fprintf(opts.Stdout, "→ Seeded %s with %d fiscal years\n", input.Name, len(outcome.Saved))
	}
	return 0
}
