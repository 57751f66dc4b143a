package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ValidationObserver is told about every failed validation.
type ValidationObserver interface {
	ObserveValidationFailure(kind ErrorKind)
}

// SaveInput is one submission of the entry form: the company header plus the
// fiscal-year grid in display order.
type SaveInput struct {
	CompanyID          string
	Name               string
	RegistrationNumber string
	Rows               []FiscalYear
}

// RowFailure identifies the grid row that stopped a save.
type RowFailure struct {
	Row    int    `json:"row"`
	Key    string `json:"key"`
	Result Result `json:"result"`
}

// SaveOutcome reports what a save persisted and why it stopped, if it did.
type SaveOutcome struct {
	Company         Company      `json:"company"`
	Saved           []FiscalYear `json:"saved"`
	CompanyFailures []Result     `json:"companyFailures,omitempty"`
	RowFailure      *RowFailure  `json:"rowFailure,omitempty"`
}

// OK reports whether every part of the submission was persisted.
func (o SaveOutcome) OK() bool {
	return len(o.CompanyFailures) == 0 && o.RowFailure == nil
}

// Service runs the entry-form workflows on top of the store and validator.
type Service struct {
	store     *Store
	validator *Validator
	logger    *slog.Logger
	observer  ValidationObserver
}

// NewService wires the service. observer may be nil.
func NewService(store *Store, validator *Validator, logger *slog.Logger, observer ValidationObserver) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, validator: validator, logger: logger, observer: observer}
}

// Validator exposes the rule engine for field-level checks.
func (s *Service) Validator() *Validator {
	return s.validator
}

func (s *Service) observe(res Result) {
	if s.observer != nil && !res.OK {
		s.observer.ObserveValidationFailure(res.Kind)
	}
}

// Save validates and persists the company, then validates and persists each
// non-blank row in order. Each row is checked right before it is written, so
// a failing row stops the batch while rows written before it stay persisted.
func (s *Service) Save(ctx context.Context, in SaveInput) (SaveOutcome, error) {
	var out SaveOutcome
	name := strings.TrimSpace(in.Name)
	regNo := strings.TrimSpace(in.RegistrationNumber)

	if res := s.validator.ValidateCompanyName(name); !res.OK {
		s.observe(res)
		out.CompanyFailures = append(out.CompanyFailures, res)
	}
	res, err := s.validator.ValidateRegistrationNumber(ctx, regNo, in.CompanyID)
	if err != nil {
		return SaveOutcome{}, err
	}
	if !res.OK {
		s.observe(res)
		out.CompanyFailures = append(out.CompanyFailures, res)
	}
	if len(out.CompanyFailures) > 0 {
		return out, nil
	}

	if in.CompanyID != "" {
		_, found, err := s.store.CompanyByID(ctx, in.CompanyID)
		if err != nil {
			return SaveOutcome{}, err
		}
		if !found {
			return SaveOutcome{}, fmt.Errorf("%w: %s", ErrCompanyNotFound, in.CompanyID)
		}
	}

	rows := make([]FiscalYear, len(in.Rows))
	session := make([]SessionRow, len(in.Rows))
	for i, row := range in.Rows {
		row.FiscalYear = strings.TrimSpace(row.FiscalYear)
		row.StartDate = strings.TrimSpace(row.StartDate)
		row.EndDate = strings.TrimSpace(row.EndDate)
		row.Remarks = strings.TrimSpace(row.Remarks)
		rows[i] = row
		session[i] = RowFromFiscalYear(row, i)
	}
	if err := s.checkRowOwnership(ctx, in.CompanyID, rows, session); err != nil {
		return SaveOutcome{}, err
	}

	company, err := s.store.SaveCompany(ctx, Company{ID: in.CompanyID, Name: name, RegistrationNumber: regNo})
	if err != nil {
		return SaveOutcome{}, err
	}
	out.Company = company

	for i, row := range rows {
		current := session[i]
		if current.IsBlank() {
			continue
		}
		res, err := s.validator.ValidateFiscalYearData(ctx, row, company.ID, row.ID, Siblings(session, current.Key))
		if err != nil {
			return out, err
		}
		if res.OK {
			res = s.validator.ValidateRemarks(row.Remarks)
		}
		if !res.OK {
			s.observe(res)
			s.logger.Info("fiscal year row rejected",
				slog.String("company_id", company.ID),
				slog.Int("row", i+1),
				slog.String("kind", string(res.Kind)))
			out.RowFailure = &RowFailure{Row: i + 1, Key: current.Key, Result: res}
			return out, nil
		}

		row.CompanyID = company.ID
		saved, err := s.store.SaveFiscalYear(ctx, row)
		if err != nil {
			return out, fmt.Errorf("row %d: %w", i+1, err)
		}
		out.Saved = append(out.Saved, saved)
	}

	s.logger.Info("company saved",
		slog.String("company_id", company.ID),
		slog.Int("fiscal_years", len(out.Saved)))
	return out, nil
}

// checkRowOwnership rejects the submission before anything is written when a
// row carries an ID that is not a stored fiscal year of companyID. A new
// company owns no rows, so any row ID fails.
func (s *Service) checkRowOwnership(ctx context.Context, companyID string, rows []FiscalYear, session []SessionRow) error {
	for i, row := range rows {
		if row.ID == "" || session[i].IsBlank() {
			continue
		}
		stored, found, err := s.store.FiscalYearByID(ctx, row.ID)
		if err != nil {
			return err
		}
		if !found || companyID == "" || stored.CompanyID != companyID {
			return fmt.Errorf("%w: row %d: %s", ErrFiscalYearNotFound, i+1, row.ID)
		}
	}
	return nil
}

// Query finds a company by name or registration number and loads its fiscal years.
func (s *Service) Query(ctx context.Context, name, registrationNumber string) (CompanyFiscalYears, error) {
	name = strings.TrimSpace(name)
	registrationNumber = strings.TrimSpace(registrationNumber)
	if name == "" && registrationNumber == "" {
		return CompanyFiscalYears{}, ErrCriteriaRequired
	}
	company, found, err := s.store.FindCompany(ctx, name, registrationNumber)
	if err != nil {
		return CompanyFiscalYears{}, err
	}
	if !found {
		return CompanyFiscalYears{}, ErrCompanyNotFound
	}
	years, err := s.store.FiscalYearsOf(ctx, company.ID)
	if err != nil {
		return CompanyFiscalYears{}, err
	}
	return CompanyFiscalYears{Company: company, FiscalYears: years}, nil
}

// FiscalYears lists the fiscal years of companyID.
func (s *Service) FiscalYears(ctx context.Context, companyID string) ([]FiscalYear, error) {
	if companyID == "" {
		return nil, ErrCompanyIDRequired
	}
	return s.store.FiscalYearsOf(ctx, companyID)
}

// Delete removes a company and its fiscal years.
func (s *Service) Delete(ctx context.Context, companyID string) error {
	if companyID == "" {
		return ErrCompanyIDRequired
	}
	if err := s.store.DeleteCompany(ctx, companyID); err != nil {
		return err
	}
	s.logger.Info("company deleted", slog.String("company_id", companyID))
	return nil
}

// DeleteRows removes the persisted fiscal years among ids. Empty IDs belong to
// rows that were never saved and are ignored.
func (s *Service) DeleteRows(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if err := s.store.DeleteFiscalYear(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Export writes every company and fiscal year as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	snapshot, err := s.store.ExportSnapshot(ctx)
	if err != nil {
		return err
	}
	if len(snapshot) == 0 {
		return ErrNothingToExport
	}
	return WriteCSV(w, snapshot)
}
