package registry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	kinds []ErrorKind
}

func (o *countingObserver) ObserveValidationFailure(kind ErrorKind) {
	o.kinds = append(o.kinds, kind)
}

func newTestService(t *testing.T) (*Service, *Store, *countingObserver) {
	t.Helper()
	store, _ := newTestStore(t)
	observer := &countingObserver{}
	return NewService(store, NewValidator(store), discardLogger(), observer), store, observer
}

func TestServiceSaveNewCompanyWithRows(t *testing.T) {
	ctx := context.Background()
	svc, store, observer := newTestService(t)

	out, err := svc.Save(ctx, SaveInput{
		Name:               "  가나상사  ",
		RegistrationNumber: "1101111234567",
		Rows: []FiscalYear{
			{FiscalYear: "2022", StartDate: "20220101", EndDate: "20221231", IsMain: true},
			{},
			{FiscalYear: " 2023 ", StartDate: "20230101", EndDate: "20231231", Remarks: "신규"},
		},
	})
	require.NoError(t, err)
	require.True(t, out.OK())
	assert.Equal(t, "가나상사", out.Company.Name)
	require.Len(t, out.Saved, 2)
	assert.Equal(t, "2023", out.Saved[1].FiscalYear)
	assert.Empty(t, observer.kinds)

	years, err := store.FiscalYearsOf(ctx, out.Company.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Saved, years)
	assert.True(t, years[0].IsMain)
}

func TestServiceSaveStopsAtFirstInvalidRow(t *testing.T) {
	ctx := context.Background()
	svc, store, observer := newTestService(t)

	out, err := svc.Save(ctx, SaveInput{
		Name:               "가나상사",
		RegistrationNumber: "1101111234567",
		Rows: []FiscalYear{
			{FiscalYear: "2021", StartDate: "20210101", EndDate: "20211231"},
			{FiscalYear: "2022", StartDate: "20220101", EndDate: "20221231"},
			{FiscalYear: "20x4", StartDate: "20240101", EndDate: "20241231"},
			{FiscalYear: "2025", StartDate: "20250101", EndDate: "20251231"},
		},
	})
	require.NoError(t, err)
	require.False(t, out.OK())
	require.NotNil(t, out.RowFailure)
	assert.Equal(t, 3, out.RowFailure.Row)
	assert.Equal(t, "temp_2", out.RowFailure.Key)
	assert.Equal(t, KindFormat, out.RowFailure.Result.Kind)
	assert.Equal(t, []ErrorKind{KindFormat}, observer.kinds)

	years, err := store.FiscalYearsOf(ctx, out.Company.ID)
	require.NoError(t, err)
	assert.Len(t, years, 2, "rows before the failure stay persisted")
}

func TestServiceSaveRejectsSessionDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	out, err := svc.Save(ctx, SaveInput{
		Name:               "가나상사",
		RegistrationNumber: "2208162517",
		Rows: []FiscalYear{
			{FiscalYear: "2024", StartDate: "20240101", EndDate: "20241231"},
			{FiscalYear: "2024", StartDate: "20250101", EndDate: "20251231"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, out.RowFailure)
	assert.Equal(t, 1, out.RowFailure.Row, "the first row already sees its unsaved sibling")
	assert.Equal(t, KindDuplicateYearInSession, out.RowFailure.Result.Kind)
	assert.Empty(t, out.Saved)
}

func TestServiceSaveRejectsLongRemarks(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	long := make([]rune, 201)
	for i := range long {
		long[i] = '가'
	}

	out, err := svc.Save(ctx, SaveInput{
		Name:               "가나상사",
		RegistrationNumber: "2208162517",
		Rows:               []FiscalYear{{FiscalYear: "2024", StartDate: "20240101", EndDate: "20241231", Remarks: string(long)}},
	})
	require.NoError(t, err)
	require.NotNil(t, out.RowFailure)
	assert.Equal(t, KindTooLong, out.RowFailure.Result.Kind)
	assert.Equal(t, FieldRemarks, out.RowFailure.Result.Field)
}

func TestServiceSaveCompanyFailures(t *testing.T) {
	ctx := context.Background()
	svc, store, observer := newTestService(t)

	out, err := svc.Save(ctx, SaveInput{Name: "", RegistrationNumber: "0000000000"})
	require.NoError(t, err)
	require.Len(t, out.CompanyFailures, 2)
	assert.Equal(t, KindEmpty, out.CompanyFailures[0].Kind)
	assert.Equal(t, KindChecksum, out.CompanyFailures[1].Kind)
	assert.Equal(t, []ErrorKind{KindEmpty, KindChecksum}, observer.kinds)

	companies, err := store.Companies(ctx)
	require.NoError(t, err)
	assert.Empty(t, companies)
}

func TestServiceSaveUpdatesExistingCompany(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	first, err := svc.Save(ctx, SaveInput{
		Name:               "가나상사",
		RegistrationNumber: "1101111234567",
		Rows:               []FiscalYear{{FiscalYear: "2022", StartDate: "20220101", EndDate: "20221231"}},
	})
	require.NoError(t, err)
	require.True(t, first.OK())

	edited := first.Saved[0]
	edited.Remarks = "수정"
	second, err := svc.Save(ctx, SaveInput{
		CompanyID:          first.Company.ID,
		Name:               "가나홀딩스",
		RegistrationNumber: "1101111234567",
		Rows: []FiscalYear{
			edited,
			{FiscalYear: "2023", StartDate: "20230101", EndDate: "20231231"},
		},
	})
	require.NoError(t, err)
	require.True(t, second.OK(), "the company's own number and rows never conflict with themselves")
	assert.Equal(t, first.Company.ID, second.Company.ID)

	years, err := store.FiscalYearsOf(ctx, first.Company.ID)
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, "수정", years[0].Remarks)

	other, err := svc.Save(ctx, SaveInput{Name: "다른회사", RegistrationNumber: "1101111234567"})
	require.NoError(t, err)
	require.Len(t, other.CompanyFailures, 1)
	assert.Equal(t, KindDuplicate, other.CompanyFailures[0].Kind)
}

func TestServiceSaveUnknownCompanyID(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Save(context.Background(), SaveInput{CompanyID: "ghost", Name: "유령", RegistrationNumber: "2208162517"})
	require.ErrorIs(t, err, ErrCompanyNotFound)
}

func TestServiceSaveRejectsUnknownRowID(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	first, err := svc.Save(ctx, SaveInput{Name: "가나상사", RegistrationNumber: "1101111234567"})
	require.NoError(t, err)
	require.True(t, first.OK())

	out, err := svc.Save(ctx, SaveInput{
		CompanyID:          first.Company.ID,
		Name:               "가나홀딩스",
		RegistrationNumber: "1101111234567",
		Rows: []FiscalYear{
			{FiscalYear: "2021", StartDate: "20210101", EndDate: "20211231"},
			{ID: "ghost", FiscalYear: "2022", StartDate: "20220101", EndDate: "20221231"},
		},
	})
	require.ErrorIs(t, err, ErrFiscalYearNotFound)
	assert.Empty(t, out.Saved)

	years, err := store.FiscalYearsOf(ctx, first.Company.ID)
	require.NoError(t, err)
	assert.Empty(t, years, "nothing is written when a row ID is unknown")
	company, found, err := store.CompanyByID(ctx, first.Company.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "가나상사", company.Name)

	_, err = svc.Save(ctx, SaveInput{
		Name:               "라마상사",
		RegistrationNumber: "2208162517",
		Rows:               []FiscalYear{{ID: "ghost", FiscalYear: "2022", StartDate: "20220101", EndDate: "20221231"}},
	})
	require.ErrorIs(t, err, ErrFiscalYearNotFound)
	companies, err := store.Companies(ctx)
	require.NoError(t, err)
	assert.Len(t, companies, 1)
}

func TestServiceSaveRejectsRowOfAnotherCompany(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	a, err := svc.Save(ctx, SaveInput{
		Name:               "가나상사",
		RegistrationNumber: "1101111234567",
		Rows:               []FiscalYear{{FiscalYear: "2022", StartDate: "20220101", EndDate: "20221231"}},
	})
	require.NoError(t, err)
	require.True(t, a.OK())
	b, err := svc.Save(ctx, SaveInput{Name: "라마상사", RegistrationNumber: "2208162517"})
	require.NoError(t, err)
	require.True(t, b.OK())

	stolen := a.Saved[0]
	_, err = svc.Save(ctx, SaveInput{
		CompanyID:          b.Company.ID,
		Name:               "라마상사",
		RegistrationNumber: "2208162517",
		Rows:               []FiscalYear{stolen},
	})
	require.ErrorIs(t, err, ErrFiscalYearNotFound)

	aYears, err := store.FiscalYearsOf(ctx, a.Company.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Saved, aYears)
	bYears, err := store.FiscalYearsOf(ctx, b.Company.ID)
	require.NoError(t, err)
	assert.Empty(t, bYears)
}

func TestServiceQuery(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	saved, err := svc.Save(ctx, SaveInput{
		Name:               "가나상사",
		RegistrationNumber: "1101111234567",
		Rows:               []FiscalYear{{FiscalYear: "2022", StartDate: "20220101", EndDate: "20221231"}},
	})
	require.NoError(t, err)

	_, err = svc.Query(ctx, " ", "")
	require.ErrorIs(t, err, ErrCriteriaRequired)

	_, err = svc.Query(ctx, "없는회사", "")
	require.ErrorIs(t, err, ErrCompanyNotFound)

	got, err := svc.Query(ctx, "", "1101111234567")
	require.NoError(t, err)
	assert.Equal(t, saved.Company, got.Company)
	assert.Equal(t, saved.Saved, got.FiscalYears)

	years, err := svc.FiscalYears(ctx, saved.Company.ID)
	require.NoError(t, err)
	assert.Len(t, years, 1)

	_, err = svc.FiscalYears(ctx, "")
	require.ErrorIs(t, err, ErrCompanyIDRequired)
}

func TestServiceDeleteAndDeleteRows(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	saved, err := svc.Save(ctx, SaveInput{
		Name:               "가나상사",
		RegistrationNumber: "1101111234567",
		Rows: []FiscalYear{
			{FiscalYear: "2022", StartDate: "20220101", EndDate: "20221231"},
			{FiscalYear: "2023", StartDate: "20230101", EndDate: "20231231"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRows(ctx, []string{"", saved.Saved[0].ID}))
	years, err := store.FiscalYearsOf(ctx, saved.Company.ID)
	require.NoError(t, err)
	require.Len(t, years, 1)
	assert.Equal(t, "2023", years[0].FiscalYear)

	require.ErrorIs(t, svc.Delete(ctx, ""), ErrCompanyIDRequired)
	require.NoError(t, svc.Delete(ctx, saved.Company.ID))
	all, err := store.AllFiscalYears(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestServiceExport(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	var buf bytes.Buffer
	require.ErrorIs(t, svc.Export(ctx, &buf), ErrNothingToExport)
	assert.Zero(t, buf.Len())

	_, err := svc.Save(ctx, SaveInput{Name: "가나상사", RegistrationNumber: "1101111234567"})
	require.NoError(t, err)
	require.NoError(t, svc.Export(ctx, &buf))
	assert.Contains(t, buf.String(), "가나상사,1101111234567,,,,,")
}

func TestServiceSurfacesStorageFailure(t *testing.T) {
	ctx := context.Background()
	store, mem := newTestStore(t)
	flaky := &flakyBackend{Memory: mem}
	store.backend = flaky
	svc := NewService(store, NewValidator(store), discardLogger(), nil)

	flaky.failGet = true
	_, err := svc.Save(ctx, SaveInput{Name: "가나상사", RegistrationNumber: "1101111234567"})
	require.ErrorIs(t, err, ErrStorage)
}
