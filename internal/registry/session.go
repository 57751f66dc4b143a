package registry

import (
	"strconv"
	"strings"
)

// SessionRow is a fiscal-year row of the current editing session. Key is the
// persisted ID when the row has one, otherwise a temporary key.
type SessionRow struct {
	Key        string `json:"key"`
	FiscalYear string `json:"fiscalYear"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
}

// RowKey returns id, or "temp_<index>" for rows that were never saved.
func RowKey(id string, index int) string {
	if id != "" {
		return id
	}
	return "temp_" + strconv.Itoa(index)
}

// RowFromFiscalYear builds the session view of fy at position index.
func RowFromFiscalYear(fy FiscalYear, index int) SessionRow {
	return SessionRow{
		Key:        RowKey(fy.ID, index),
		FiscalYear: fy.FiscalYear,
		StartDate:  fy.StartDate,
		EndDate:    fy.EndDate,
	}
}

// IsBlank reports whether none of the three key fields is filled. Blank rows
// are not real rows and are skipped by every check.
func (r SessionRow) IsBlank() bool {
	return isBlank(r.FiscalYear) && isBlank(r.StartDate) && isBlank(r.EndDate)
}

func (r SessionRow) complete() bool {
	return !isBlank(r.FiscalYear) && !isBlank(r.StartDate) && !isBlank(r.EndDate)
}

// Siblings returns every row except the one keyed by key.
func Siblings(rows []SessionRow, key string) []SessionRow {
	out := make([]SessionRow, 0, len(rows))
	for _, row := range rows {
		if row.Key == key {
			continue
		}
		out = append(out, row)
	}
	return out
}

// RowState is the editing state of one session row.
type RowState int

const (
	RowEmpty RowState = iota
	RowPartiallyFilled
	RowValid
	RowInvalid
)

func (s RowState) String() string {
	switch s {
	case RowEmpty:
		return "EMPTY"
	case RowPartiallyFilled:
		return "PARTIALLY_FILLED"
	case RowValid:
		return "VALID"
	case RowInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// MarshalText lets RowState render by name in JSON.
func (s RowState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ValidateRowField checks a single field of row as the user leaves it. Blank
// values pass. A valid year is also checked against the sibling rows; a valid
// date triggers the range and sibling-overlap checks once both dates are set.
func (v *Validator) ValidateRowField(row SessionRow, field string, siblings []SessionRow) Result {
	switch field {
	case FieldFiscalYear:
		value := strings.TrimSpace(row.FiscalYear)
		if value == "" {
			return pass()
		}
		if res := v.ValidateFiscalYear(value); !res.OK {
			return res
		}
		return siblingDuplicate(value, row.Key, siblings)

	case FieldStartDate, FieldEndDate:
		value, label := strings.TrimSpace(row.StartDate), "시작일"
		if field == FieldEndDate {
			value, label = strings.TrimSpace(row.EndDate), "종료일"
		}
		if value == "" {
			return pass()
		}
		if res := validateDateField(value, field, label); !res.OK {
			return res
		}
		start, end := strings.TrimSpace(row.StartDate), strings.TrimSpace(row.EndDate)
		if start == "" || end == "" {
			return pass()
		}
		if res := v.ValidateDateRange(start, end); !res.OK {
			return res
		}
		return siblingOverlap(start, end, row.Key, siblings)
	}
	return pass()
}

// EvaluateRow derives the state of row from its fields and siblings. Empty
// rows are exempt; otherwise the first failing field makes the row Invalid,
// and a row missing any key field stays PartiallyFilled. Fixing the offending
// field returns the row to Valid on the next evaluation.
func (v *Validator) EvaluateRow(row SessionRow, siblings []SessionRow) (RowState, Result) {
	if row.IsBlank() {
		return RowEmpty, pass()
	}
	for _, field := range []string{FieldFiscalYear, FieldStartDate, FieldEndDate} {
		if res := v.ValidateRowField(row, field, siblings); !res.OK {
			return RowInvalid, res
		}
	}
	if !row.complete() {
		return RowPartiallyFilled, pass()
	}
	return RowValid, pass()
}
