package registryhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/fiscalreg/internal/platform/httpx"
	"github.com/odyssey-erp/fiscalreg/internal/platform/kv"
	"github.com/odyssey-erp/fiscalreg/internal/registry"
)

func newTestRouter(t *testing.T, rateLimit int) (http.Handler, *registry.Store) {
	t.Helper()
	store, err := registry.NewStore(context.Background(), kv.NewMemory())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := registry.NewService(store, registry.NewValidator(store), logger, nil)
	handler := NewHandler(logger, service, rateLimit)
	handler.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r, store
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

const saveBody = `{
	"companyName": "가나상사",
	"registrationNumber": "110-81-12345",
	"fiscalYears": [
		{"fiscalYear": "2022", "startDate": "20220101", "endDate": "20221231", "isMainFiscalYear": true},
		{"fiscalYear": "2023", "startDate": "20230101", "endDate": "20231231", "remarks": "신규"}
	]
}`

func saveCompany(t *testing.T, h http.Handler) registry.SaveOutcome {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/api/companies", saveBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var outcome registry.SaveOutcome
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &outcome))
	return outcome
}

func TestSaveAndQuery(t *testing.T) {
	h, _ := newTestRouter(t, 0)
	outcome := saveCompany(t, h)
	require.Len(t, outcome.Saved, 2)

	rr := do(t, h, http.MethodGet, "/api/companies?registration_number=110-81-12345", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got registry.CompanyFiscalYears
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "가나상사", got.Company.Name)
	assert.Equal(t, outcome.Saved, got.FiscalYears)

	rr = do(t, h, http.MethodGet, "/api/companies/"+outcome.Company.ID+"/fiscal-years", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var years []registry.FiscalYear
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &years))
	assert.Len(t, years, 2)
}

func TestQueryErrors(t *testing.T) {
	h, _ := newTestRouter(t, 0)

	rr := do(t, h, http.MethodGet, "/api/companies", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/companies?name=none", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, http.StatusNotFound, problem.Status)
}

func TestSaveReportsValidationFailures(t *testing.T) {
	h, store := newTestRouter(t, 0)
	body := `{
		"companyName": "가나상사",
		"registrationNumber": "1101111234567",
		"fiscalYears": [
			{"fiscalYear": "2022", "startDate": "20220101", "endDate": "20221231"},
			{"fiscalYear": "2023", "startDate": "20221201", "endDate": "20231231"}
		]
	}`
	rr := do(t, h, http.MethodPost, "/api/companies", body)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var outcome registry.SaveOutcome
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &outcome))
	require.NotNil(t, outcome.RowFailure)
	assert.Equal(t, 2, outcome.RowFailure.Row)
	assert.Equal(t, registry.KindDateOverlapInSession, outcome.RowFailure.Result.Kind)

	years, err := store.FiscalYearsOf(context.Background(), outcome.Company.ID)
	require.NoError(t, err)
	assert.Len(t, years, 1)

	rr = do(t, h, http.MethodPost, "/api/companies", `{"companyName":"","registrationNumber":"1111111111"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &outcome))
	assert.Len(t, outcome.CompanyFailures, 2)
}

func TestSaveRejectsForeignRowID(t *testing.T) {
	h, store := newTestRouter(t, 0)
	first := saveCompany(t, h)

	body := `{
		"companyName": "라마상사",
		"registrationNumber": "2208162517",
		"fiscalYears": [
			{"id": "` + first.Saved[0].ID + `", "fiscalYear": "2022", "startDate": "20220101", "endDate": "20221231"}
		]
	}`
	rr := do(t, h, http.MethodPost, "/api/companies", body)
	require.Equal(t, http.StatusNotFound, rr.Code, rr.Body.String())

	years, err := store.FiscalYearsOf(context.Background(), first.Company.ID)
	require.NoError(t, err)
	assert.Len(t, years, 2)
}

func TestSaveRejectsMalformedRequests(t *testing.T) {
	h, _ := newTestRouter(t, 0)

	rr := do(t, h, http.MethodPost, "/api/companies", `{"companyName":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/companies", `{"unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/companies", `{"companyId":"`+strings.Repeat("x", 65)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/companies", `{"companyId":"ghost","companyName":"유령","registrationNumber":"2208162517"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteEndpoints(t *testing.T) {
	h, store := newTestRouter(t, 0)
	outcome := saveCompany(t, h)
	ctx := context.Background()

	rr := do(t, h, http.MethodDelete, "/api/fiscal-years/"+outcome.Saved[0].ID, "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	years, err := store.FiscalYearsOf(ctx, outcome.Company.ID)
	require.NoError(t, err)
	assert.Len(t, years, 1)

	for i := 0; i < 2; i++ {
		rr = do(t, h, http.MethodDelete, "/api/companies/"+outcome.Company.ID, "")
		require.Equal(t, http.StatusNoContent, rr.Code)
	}
	all, err := store.AllFiscalYears(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestValidateRegistrationNumberEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, 0)
	outcome := saveCompany(t, h)

	rr := do(t, h, http.MethodPost, "/api/validate/registration-number", `{"registrationNumber":"110-81-12345"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var res registry.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, registry.KindDuplicate, res.Kind)

	rr = do(t, h, http.MethodPost, "/api/validate/registration-number", `{"registrationNumber":"110-81-12345","companyId":"`+outcome.Company.ID+`"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.OK)
}

func TestValidateFiscalYearRowEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, 0)

	body := `{
		"field": "fiscalYear",
		"row": {"key": "temp_1", "fiscalYear": "2024"},
		"siblings": [
			{"key": "temp_0", "fiscalYear": "2024", "startDate": "20240101", "endDate": "20241231"},
			{"key": "temp_1", "fiscalYear": "2024"}
		]
	}`
	rr := do(t, h, http.MethodPost, "/api/validate/fiscal-year-row", body)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		State  string          `json:"state"`
		Result registry.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID", resp.State)
	assert.Equal(t, registry.KindDuplicateYearInSession, resp.Result.Kind)

	rr = do(t, h, http.MethodPost, "/api/validate/fiscal-year-row", `{"row":{"key":"temp_0","fiscalYear":"2025"}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "PARTIALLY_FILLED", resp.State)
	assert.True(t, resp.Result.OK)

	rr = do(t, h, http.MethodPost, "/api/validate/fiscal-year-row", `{"field":"remarks","row":{"key":"temp_0"}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, 0)

	rr := do(t, h, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	saveCompany(t, h)
	rr = do(t, h, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "20240315.csv")
	body := rr.Body.Bytes()
	require.True(t, bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(body), "가나상사,110-81-12345,2022,20220101,20221231,Y,")
}

func TestWritesAreRateLimited(t *testing.T) {
	h, _ := newTestRouter(t, 1)

	rr := do(t, h, http.MethodDelete, "/api/companies/none", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, h, http.MethodDelete, "/api/companies/none", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/companies?name=none", "")
	assert.Equal(t, http.StatusNotFound, rr.Code, "reads are not limited")
}
