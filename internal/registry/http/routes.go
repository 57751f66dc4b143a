package registryhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

const rateWindow = time.Minute

// MountRoutes registers the registry API under /api. Writes and exports
// share a per-IP rate limit.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/api", func(api chi.Router) {
		api.Get("/companies", h.handleQuery)
		api.Get("/companies/{id}/fiscal-years", h.handleFiscalYears)
		api.Post("/validate/registration-number", h.handleValidateRegistrationNumber)
		api.Post("/validate/fiscal-year-row", h.handleValidateFiscalYearRow)

		api.Group(func(gr chi.Router) {
			if h.rateLimit > 0 {
				gr.Use(httprate.Limit(h.rateLimit, rateWindow,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
					}),
				))
			}
			gr.Post("/companies", h.handleSave)
			gr.Delete("/companies/{id}", h.handleDeleteCompany)
			gr.Delete("/fiscal-years/{id}", h.handleDeleteFiscalYear)
			gr.Get("/export", h.handleExport)
		})
	})
}
