package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/odyssey-erp/fiscalreg/internal/platform/kv"
)

const (
	companyKey    = "company_data"
	fiscalYearKey = "fiscal_year_data"
)

// Store owns the Company and FiscalYear collections. Each collection is a
// JSON array held under one backend key and rewritten on every mutation, so
// readers always observe the latest write.
type Store struct {
	backend kv.Backend
	newID   func() string

	// mu serialises read-modify-write cycles on the collections.
	mu sync.Mutex
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithIDGenerator replaces the UUID generator used for new records.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore wraps backend and initialises missing collections to empty arrays.
func NewStore(ctx context.Context, backend kv.Backend, opts ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, errors.New("registry: backend required")
	}
	s := &Store{backend: backend, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	for _, key := range []string{companyKey, fiscalYearKey} {
		_, err := backend.Get(ctx, key)
		if err == nil {
			continue
		}
		if !errors.Is(err, kv.ErrNotFound) {
			return nil, fmt.Errorf("%w: init %s: %w", ErrStorage, key, err)
		}
		if err := backend.Set(ctx, key, "[]"); err != nil {
			return nil, fmt.Errorf("%w: init %s: %w", ErrStorage, key, err)
		}
	}
	return s, nil
}

func load[T any](ctx context.Context, backend kv.Backend, key string) ([]T, error) {
	raw, err := backend.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorage, key, err)
	}
	var records []T
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrStorage, key, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

func persist[T any](ctx context.Context, backend kv.Backend, key string, records []T) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrStorage, key, err)
	}
	if err := backend.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorage, key, err)
	}
	return nil
}

// Companies returns every stored company.
func (s *Store) Companies(ctx context.Context) ([]Company, error) {
	return load[Company](ctx, s.backend, companyKey)
}

// AllFiscalYears returns every stored fiscal year across companies.
func (s *Store) AllFiscalYears(ctx context.Context) ([]FiscalYear, error) {
	return load[FiscalYear](ctx, s.backend, fiscalYearKey)
}

// SaveCompany inserts data when its ID is empty, assigning a new ID, or
// merges the non-empty fields of data into the stored record with that ID.
// An unknown ID is a no-op and data is returned unchanged; callers that care
// must re-check.
func (s *Store) SaveCompany(ctx context.Context, data Company) (Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	companies, err := load[Company](ctx, s.backend, companyKey)
	if err != nil {
		return Company{}, err
	}
	if data.ID == "" {
		data.ID = s.newID()
		companies = append(companies, data)
	} else {
		idx := indexOf(companies, func(c Company) bool { return c.ID == data.ID })
		if idx < 0 {
			return data, nil
		}
		merged := companies[idx]
		if data.Name != "" {
			merged.Name = data.Name
		}
		if data.RegistrationNumber != "" {
			merged.RegistrationNumber = data.RegistrationNumber
		}
		companies[idx] = merged
		data = merged
	}
	if err := persist(ctx, s.backend, companyKey, companies); err != nil {
		return Company{}, err
	}
	return data, nil
}

// CompanyByID looks a company up by ID.
func (s *Store) CompanyByID(ctx context.Context, id string) (Company, bool, error) {
	companies, err := load[Company](ctx, s.backend, companyKey)
	if err != nil {
		return Company{}, false, err
	}
	for _, c := range companies {
		if c.ID == id {
			return c, true, nil
		}
	}
	return Company{}, false, nil
}

// FindCompany returns the first company whose name equals name or whose
// registration number equals registrationNumber. Empty criteria are ignored.
func (s *Store) FindCompany(ctx context.Context, name, registrationNumber string) (Company, bool, error) {
	companies, err := load[Company](ctx, s.backend, companyKey)
	if err != nil {
		return Company{}, false, err
	}
	for _, c := range companies {
		if (name != "" && c.Name == name) || (registrationNumber != "" && c.RegistrationNumber == registrationNumber) {
			return c, true, nil
		}
	}
	return Company{}, false, nil
}

// RegistrationNumberExists reports whether a company other than excludeID
// holds exactly this registration number.
func (s *Store) RegistrationNumberExists(ctx context.Context, number, excludeID string) (bool, error) {
	companies, err := load[Company](ctx, s.backend, companyKey)
	if err != nil {
		return false, err
	}
	for _, c := range companies {
		if c.RegistrationNumber == number && (excludeID == "" || c.ID != excludeID) {
			return true, nil
		}
	}
	return false, nil
}

// DeleteCompany removes the company and all of its fiscal years. Deleting an
// unknown ID succeeds.
func (s *Store) DeleteCompany(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	companies, err := load[Company](ctx, s.backend, companyKey)
	if err != nil {
		return err
	}
	companies = filter(companies, func(c Company) bool { return c.ID != id })
	if err := persist(ctx, s.backend, companyKey, companies); err != nil {
		return err
	}
	return s.deleteFiscalYearsWhere(ctx, func(fy FiscalYear) bool { return fy.CompanyID == id })
}

// FiscalYearsOf returns the fiscal years of companyID in insertion order.
func (s *Store) FiscalYearsOf(ctx context.Context, companyID string) ([]FiscalYear, error) {
	all, err := load[FiscalYear](ctx, s.backend, fiscalYearKey)
	if err != nil {
		return nil, err
	}
	return filter(all, func(fy FiscalYear) bool { return fy.CompanyID == companyID }), nil
}

// FiscalYearByID looks a fiscal year up by ID.
func (s *Store) FiscalYearByID(ctx context.Context, id string) (FiscalYear, bool, error) {
	all, err := load[FiscalYear](ctx, s.backend, fiscalYearKey)
	if err != nil {
		return FiscalYear{}, false, err
	}
	idx := indexOf(all, func(fy FiscalYear) bool { return fy.ID == id })
	if idx < 0 {
		return FiscalYear{}, false, nil
	}
	return all[idx], true, nil
}

// SaveFiscalYear inserts data when its ID is empty or replaces the stored
// record with that ID. Remarks and the main flag may be cleared on purpose, so
// rows are not merged. An unknown ID is a no-op.
func (s *Store) SaveFiscalYear(ctx context.Context, data FiscalYear) (FiscalYear, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := load[FiscalYear](ctx, s.backend, fiscalYearKey)
	if err != nil {
		return FiscalYear{}, err
	}
	if data.ID == "" {
		data.ID = s.newID()
		all = append(all, data)
	} else {
		idx := indexOf(all, func(fy FiscalYear) bool { return fy.ID == data.ID })
		if idx < 0 {
			return data, nil
		}
		all[idx] = data
	}
	if err := persist(ctx, s.backend, fiscalYearKey, all); err != nil {
		return FiscalYear{}, err
	}
	return data, nil
}

// DeleteFiscalYear removes one fiscal year. Unknown IDs succeed.
func (s *Store) DeleteFiscalYear(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteFiscalYearsWhere(ctx, func(fy FiscalYear) bool { return fy.ID == id })
}

// DeleteFiscalYearsOf removes every fiscal year of companyID.
func (s *Store) DeleteFiscalYearsOf(ctx context.Context, companyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteFiscalYearsWhere(ctx, func(fy FiscalYear) bool { return fy.CompanyID == companyID })
}

// deleteFiscalYearsWhere must be called with mu held.
func (s *Store) deleteFiscalYearsWhere(ctx context.Context, match func(FiscalYear) bool) error {
	all, err := load[FiscalYear](ctx, s.backend, fiscalYearKey)
	if err != nil {
		return err
	}
	kept := filter(all, func(fy FiscalYear) bool { return !match(fy) })
	return persist(ctx, s.backend, fiscalYearKey, kept)
}

// FiscalYearExists reports whether another fiscal year of companyID (other
// than excludeID) carries the same year label.
func (s *Store) FiscalYearExists(ctx context.Context, companyID, year, excludeID string) (bool, error) {
	years, err := s.FiscalYearsOf(ctx, companyID)
	if err != nil {
		return false, err
	}
	for _, fy := range years {
		if fy.FiscalYear == year && (excludeID == "" || fy.ID != excludeID) {
			return true, nil
		}
	}
	return false, nil
}

// DateOverlap scans the fiscal years of companyID, skipping excludeID and any
// record with malformed dates, and reports the first whose interval intersects
// [start,end] by calendar date.
func (s *Store) DateOverlap(ctx context.Context, companyID, start, end, excludeID string) (Overlap, error) {
	years, err := s.FiscalYearsOf(ctx, companyID)
	if err != nil {
		return Overlap{}, err
	}
	for _, fy := range years {
		if excludeID != "" && fy.ID == excludeID {
			continue
		}
		if overlapsCompact(start, end, fy.StartDate, fy.EndDate) {
			return Overlap{Conflict: true, FiscalYear: fy.FiscalYear, Period: fy.Period()}, nil
		}
	}
	return Overlap{}, nil
}

// ExportSnapshot pairs every company with its fiscal years.
func (s *Store) ExportSnapshot(ctx context.Context) ([]CompanyFiscalYears, error) {
	companies, err := load[Company](ctx, s.backend, companyKey)
	if err != nil {
		return nil, err
	}
	all, err := load[FiscalYear](ctx, s.backend, fiscalYearKey)
	if err != nil {
		return nil, err
	}
	out := make([]CompanyFiscalYears, 0, len(companies))
	for _, c := range companies {
		out = append(out, CompanyFiscalYears{
			Company:     c,
			FiscalYears: filter(all, func(fy FiscalYear) bool { return fy.CompanyID == c.ID }),
		})
	}
	return out, nil
}

// Clear empties both collections.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := persist(ctx, s.backend, companyKey, []Company{}); err != nil {
		return err
	}
	return persist(ctx, s.backend, fiscalYearKey, []FiscalYear{})
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}
	return -1
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
