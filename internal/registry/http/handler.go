package registryhttp

import (
	"bytes"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/fiscalreg/internal/platform/httpx"
	"github.com/odyssey-erp/fiscalreg/internal/registry"
)

var statusRules = []httpx.StatusRule{
	{Target: registry.ErrCompanyNotFound, Status: http.StatusNotFound},
	{Target: registry.ErrFiscalYearNotFound, Status: http.StatusNotFound},
	{Target: registry.ErrNothingToExport, Status: http.StatusNotFound},
	{Target: registry.ErrCriteriaRequired, Status: http.StatusBadRequest},
	{Target: registry.ErrCompanyIDRequired, Status: http.StatusBadRequest},
}

// Handler exposes the registry service as a JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *registry.Service
	validate  *validator.Validate
	rateLimit int
	now       func() time.Time
}

// NewHandler constructs a Handler. rateLimit caps mutating and export
// requests per client IP per minute; zero disables the limit.
func NewHandler(logger *slog.Logger, service *registry.Service, rateLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validate:  validator.New(),
		rateLimit: rateLimit,
		now:       time.Now,
	}
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.service.Query(r.Context(), q.Get("name"), q.Get("registration_number"))
	if err != nil {
		h.respondError(w, r, "query company", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleFiscalYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.service.FiscalYears(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, "list fiscal years", err)
		return
	}
	httpx.JSON(w, http.StatusOK, years)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if !h.decode(w, r, &req) {
		return
	}
	outcome, err := h.service.Save(r.Context(), req.input())
	if err != nil {
		h.respondError(w, r, "save company", err)
		return
	}
	if !outcome.OK() {
		httpx.JSON(w, http.StatusUnprocessableEntity, outcome)
		return
	}
	httpx.JSON(w, http.StatusOK, outcome)
}

func (h *Handler) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, "delete company", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteFiscalYear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRows(r.Context(), []string{chi.URLParam(r, "id")}); err != nil {
		h.respondError(w, r, "delete fiscal year", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleValidateRegistrationNumber(w http.ResponseWriter, r *http.Request) {
	var req registrationNumberRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.Validator().ValidateRegistrationNumber(r.Context(), req.RegistrationNumber, req.CompanyID)
	if err != nil {
		h.respondError(w, r, "validate registration number", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) handleValidateFiscalYearRow(w http.ResponseWriter, r *http.Request) {
	var req fiscalYearRowRequest
	if !h.decode(w, r, &req) {
		return
	}
	row := req.Row.toSession()
	siblings := make([]registry.SessionRow, 0, len(req.Siblings))
	for _, s := range req.Siblings {
		siblings = append(siblings, s.toSession())
	}
	siblings = registry.Siblings(siblings, row.Key)

	v := h.service.Validator()
	state, res := v.EvaluateRow(row, siblings)
	if req.Field != "" {
		res = v.ValidateRowField(row, req.Field, siblings)
	}
	httpx.JSON(w, http.StatusOK, fiscalYearRowResponse{State: state, Result: res})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf); err != nil {
		h.respondError(w, r, "export registry", err)
		return
	}
	filename := registry.ExportFileName(h.now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(w, r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verrs[0].Namespace()+" failed "+verrs[0].Tag())
			return false
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := httpx.RespondError(w, err, statusRules...)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
}
