package registry

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxCompanyNameLength = 100
	maxRemarksLength     = 200
	minRegistrationLen   = 10
	maxRegistrationLen   = 13
	minFiscalYear        = 1900
	maxFiscalYear        = 2100
)

var (
	registrationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{3}-\d{2}-\d{5}$`),
		regexp.MustCompile(`^\d{10}$`),
		regexp.MustCompile(`^\d{12,13}$`),
	}
	yearPattern = regexp.MustCompile(`^\d{4}$`)
	datePattern = regexp.MustCompile(`^\d{8}$`)
)

// Lookup is the persisted-state view the validator needs.
type Lookup interface {
	RegistrationNumberExists(ctx context.Context, number, excludeID string) (bool, error)
	FiscalYearExists(ctx context.Context, companyID, year, excludeID string) (bool, error)
	DateOverlap(ctx context.Context, companyID, start, end, excludeID string) (Overlap, error)
}

// Validator checks companies and fiscal years against format rules, stored
// records and the sibling rows of the current editing session. It holds no
// state of its own.
type Validator struct {
	lookup Lookup
}

// NewValidator builds a validator backed by lookup.
func NewValidator(lookup Lookup) *Validator {
	return &Validator{lookup: lookup}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func required(value, field, label string) (Result, bool) {
	if isBlank(value) {
		return fail(KindEmpty, field, label+"은(는) 필수 입력 항목입니다."), false
	}
	return pass(), true
}

// ValidateCompanyName requires a non-blank name of at most 100 characters.
func (v *Validator) ValidateCompanyName(name string) Result {
	if res, ok := required(name, FieldCompanyName, "법인명"); !ok {
		return res
	}
	if utf8.RuneCountInString(name) > maxCompanyNameLength {
		return fail(KindTooLong, FieldCompanyName, fmt.Sprintf("법인명은 입력 가능한 최대 길이를 초과했습니다. (최대 %d자)", maxCompanyNameLength))
	}
	return pass()
}

// ValidateRegistrationNumber runs the syntactic checks first and only then
// asks the store whether another company already holds raw.
func (v *Validator) ValidateRegistrationNumber(ctx context.Context, raw, currentCompanyID string) (Result, error) {
	if res, ok := required(raw, FieldRegistrationNumber, "법인등록번호"); !ok {
		return res, nil
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	if n := utf8.RuneCountInString(cleaned); n < minRegistrationLen || n > maxRegistrationLen {
		return fail(KindLength, FieldRegistrationNumber, "법인등록번호는 10자리 이상 13자리 이하로 입력해주세요."), nil
	}

	matched := false
	for _, pattern := range registrationPatterns {
		if pattern.MatchString(cleaned) {
			matched = true
			break
		}
	}
	if !matched {
		return fail(KindFormat, FieldRegistrationNumber, "법인등록번호 형식이 올바르지 않습니다. (예: 123-45-67890 또는 1234567890)"), nil
	}

	if res := CheckRegistrationChecksum(cleaned); !res.OK {
		return res, nil
	}

	exists, err := v.lookup.RegistrationNumberExists(ctx, raw, currentCompanyID)
	if err != nil {
		return Result{}, err
	}
	if exists {
		return fail(KindDuplicate, FieldRegistrationNumber, "이미 등록된 법인등록번호입니다."), nil
	}
	return pass(), nil
}

// ValidateFiscalYear requires a four-digit year between 1900 and 2100.
func (v *Validator) ValidateFiscalYear(year string) Result {
	if res, ok := required(year, FieldFiscalYear, "사업연도"); !ok {
		return res
	}
	if !yearPattern.MatchString(year) {
		return fail(KindFormat, FieldFiscalYear, "사업연도는 4자리 연도(YYYY) 형식으로 입력해주세요.")
	}
	n, _ := strconv.Atoi(year)
	if n < minFiscalYear || n > maxFiscalYear {
		return fail(KindRange, FieldFiscalYear, "사업연도는 1900년부터 2100년 사이의 값을 입력해주세요.")
	}
	return pass()
}

// ValidateDate requires an eight-digit YYYYMMDD string naming a real day.
// On success the parsed date is carried in Result.Date.
func (v *Validator) ValidateDate(value, label string) Result {
	return validateDateField(value, "", label)
}

func validateDateField(value, field, label string) Result {
	if res, ok := required(value, field, label); !ok {
		return res
	}
	if !datePattern.MatchString(value) {
		return fail(KindFormat, field, label+"은(는) YYYYMMDD 형식으로 입력해주세요.")
	}
	date, ok := ParseCompactDate(value)
	if !ok {
		return fail(KindInvalidDate, field, label+"에 올바른 날짜를 입력해주세요.")
	}
	res := pass()
	res.Field = field
	res.Date = date
	return res
}

// ValidateDateRange validates both ends and rejects a start after the end.
func (v *Validator) ValidateDateRange(start, end string) Result {
	startRes := validateDateField(start, FieldStartDate, "시작일")
	if !startRes.OK {
		return startRes
	}
	endRes := validateDateField(end, FieldEndDate, "종료일")
	if !endRes.OK {
		return endRes
	}
	if startRes.Date.After(endRes.Date) {
		return fail(KindRangeOrder, FieldEndDate, "종료일은 시작일보다 늦어야 합니다.")
	}
	return pass()
}

// ValidateRemarks limits remarks to 200 characters. Blank remarks pass.
func (v *Validator) ValidateRemarks(remarks string) Result {
	if utf8.RuneCountInString(remarks) > maxRemarksLength {
		return fail(KindTooLong, FieldRemarks, fmt.Sprintf("비고는 입력 가능한 최대 길이를 초과했습니다. (최대 %d자)", maxRemarksLength))
	}
	return pass()
}

// ValidateFiscalYearData is the composite rule for one fiscal-year row of
// companyID. currentID is the row's persisted ID (or its session key) and is
// excluded from every duplicate and overlap check. siblings are the other
// rows of the editing session, persisted or not.
//
// Rules run in a fixed order and the first failure is returned:
// year format, date range, stored duplicate year, session duplicate year,
// stored overlap, session overlap, and finally start equal to end.
func (v *Validator) ValidateFiscalYearData(ctx context.Context, candidate FiscalYear, companyID, currentID string, siblings []SessionRow) (Result, error) {
	if res := v.ValidateFiscalYear(candidate.FiscalYear); !res.OK {
		return res, nil
	}
	if res := v.ValidateDateRange(candidate.StartDate, candidate.EndDate); !res.OK {
		return res, nil
	}

	exists, err := v.lookup.FiscalYearExists(ctx, companyID, candidate.FiscalYear, currentID)
	if err != nil {
		return Result{}, err
	}
	if exists {
		return fail(KindDuplicateYear, FieldFiscalYear, fmt.Sprintf("사업연도 %s은(는) 이미 등록되어 있습니다.", candidate.FiscalYear)), nil
	}

	if res := siblingDuplicate(candidate.FiscalYear, currentID, siblings); !res.OK {
		return res, nil
	}

	overlap, err := v.lookup.DateOverlap(ctx, companyID, candidate.StartDate, candidate.EndDate, currentID)
	if err != nil {
		return Result{}, err
	}
	if overlap.Conflict {
		return fail(KindDateOverlap, FieldStartDate, fmt.Sprintf("입력한 기간(%s~%s)이 기존 사업연도 %s(%s)와 겹칩니다.",
			candidate.StartDate, candidate.EndDate, overlap.FiscalYear, overlap.Period)), nil
	}

	if res := siblingOverlap(candidate.StartDate, candidate.EndDate, currentID, siblings); !res.OK {
		return res, nil
	}

	if candidate.StartDate == candidate.EndDate {
		return fail(KindRangeOrder, FieldEndDate, "시작일은 종료일보다 빨라야 합니다."), nil
	}
	return pass(), nil
}

func siblingDuplicate(year, excludeKey string, siblings []SessionRow) Result {
	for _, row := range siblings {
		if excludeKey != "" && row.Key == excludeKey {
			continue
		}
		other := strings.TrimSpace(row.FiscalYear)
		if other == "" || other != year {
			continue
		}
		return fail(KindDuplicateYearInSession, FieldFiscalYear, fmt.Sprintf("사업연도 %s이(가) 현재 화면에서 중복됩니다.", year))
	}
	return pass()
}

func siblingOverlap(start, end, excludeKey string, siblings []SessionRow) Result {
	for _, row := range siblings {
		if excludeKey != "" && row.Key == excludeKey {
			continue
		}
		otherStart := strings.TrimSpace(row.StartDate)
		otherEnd := strings.TrimSpace(row.EndDate)
		if otherStart == "" || otherEnd == "" {
			continue
		}
		if overlapsCompact(start, end, otherStart, otherEnd) {
			return fail(KindDateOverlapInSession, FieldStartDate, fmt.Sprintf("입력한 기간(%s~%s)이 현재 화면의 다른 사업연도(%s~%s)와 겹칩니다.",
				start, end, otherStart, otherEnd))
		}
	}
	return pass()
}
