package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/odyssey-erp/fiscalreg/internal/registry"
)

// ExitInvalid is returned when at least one number fails validation.
const ExitInvalid = 10

// CheckRegNoOptions defines the flags of the check-regno command.
type CheckRegNoOptions struct {
	Numbers    []string
	CompanyID  string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// RegNoCheck is the JSON line emitted per number.
type RegNoCheck struct {
	Number string          `json:"number"`
	Result registry.Result `json:"result"`
}

// CheckRegNoCommand validates each registration number, including the
// duplicate check against the store, and prints one line per number.
func CheckRegNoCommand(ctx context.Context, v *registry.Validator, opts CheckRegNoOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if len(opts.Numbers) == 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "check-regno: at least one registration number is required")
		return 2
	}

	enc := json.NewEncoder(opts.Stdout)
	invalid := 0
	for _, number := range opts.Numbers {
		res, err := v.ValidateRegistrationNumber(ctx, number, opts.CompanyID)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "check-regno: %v\n", err)
			return 1
		}
		if !res.OK {
			invalid++
		}
		if opts.JSONOutput {
			if err := enc.Encode(RegNoCheck{Number: number, Result: res}); err != nil {
				_, _ = fmt.Fprintf(opts.Stderr, "check-regno: encode json: %v\n", err)
				return 1
			}
			continue
		}
		if res.OK {
			_, _ = fmt.Fprintf(opts.Stdout, "%s\tOK\n", number)
		} else {
			_, _ = fmt.Fprintf(opts.Stdout, "%s\t%s\t%s\n", number, res.Kind, res.Message)
		}
	}
	if invalid > 0 {
		return ExitInvalid
	}
	return 0
}
