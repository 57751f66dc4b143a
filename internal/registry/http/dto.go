package registryhttp

import "github.com/odyssey-erp/fiscalreg/internal/registry"

// Request tags carry structural limits only; the registry validator owns the
// domain rules.
type fiscalYearRow struct {
	ID         string `json:"id" validate:"omitempty,max=64"`
	FiscalYear string `json:"fiscalYear" validate:"max=32"`
	StartDate  string `json:"startDate" validate:"max=32"`
	EndDate    string `json:"endDate" validate:"max=32"`
	IsMain     bool   `json:"isMainFiscalYear"`
	Remarks    string `json:"remarks" validate:"max=2000"`
}

type saveRequest struct {
	CompanyID          string          `json:"companyId" validate:"omitempty,max=64"`
	CompanyName        string          `json:"companyName" validate:"max=1000"`
	RegistrationNumber string          `json:"registrationNumber" validate:"max=64"`
	FiscalYears        []fiscalYearRow `json:"fiscalYears" validate:"max=500,dive"`
}

func (req saveRequest) input() registry.SaveInput {
	rows := make([]registry.FiscalYear, 0, len(req.FiscalYears))
	for _, row := range req.FiscalYears {
		rows = append(rows, registry.FiscalYear{
			ID:         row.ID,
			CompanyID:  req.CompanyID,
			FiscalYear: row.FiscalYear,
			StartDate:  row.StartDate,
			EndDate:    row.EndDate,
			IsMain:     row.IsMain,
			Remarks:    row.Remarks,
		})
	}
	return registry.SaveInput{
		CompanyID:          req.CompanyID,
		Name:               req.CompanyName,
		RegistrationNumber: req.RegistrationNumber,
		Rows:               rows,
	}
}

type registrationNumberRequest struct {
	RegistrationNumber string `json:"registrationNumber" validate:"max=64"`
	CompanyID          string `json:"companyId" validate:"omitempty,max=64"`
}

type sessionRow struct {
	Key        string `json:"key" validate:"required,max=64"`
	FiscalYear string `json:"fiscalYear" validate:"max=32"`
	StartDate  string `json:"startDate" validate:"max=32"`
	EndDate    string `json:"endDate" validate:"max=32"`
}

func (r sessionRow) toSession() registry.SessionRow {
	return registry.SessionRow{Key: r.Key, FiscalYear: r.FiscalYear, StartDate: r.StartDate, EndDate: r.EndDate}
}

type fiscalYearRowRequest struct {
	Field    string       `json:"field" validate:"omitempty,oneof=fiscalYear startDate endDate"`
	Row      sessionRow   `json:"row"`
	Siblings []sessionRow `json:"siblings" validate:"max=500,dive"`
}

type fiscalYearRowResponse struct {
	State  registry.RowState `json:"state"`
	Result registry.Result   `json:"result"`
}
