package registry

// Company is a corporate entity. JSON names follow the persisted layout.
type Company struct {
	ID                 string `json:"COM_ID"`
	Name               string `json:"COM_NAME"`
	RegistrationNumber string `json:"COM_NO_NO"`
}

// FiscalYear is one accounting period of a company. Dates are YYYYMMDD.
type FiscalYear struct {
	ID         string `json:"FY_ID"`
	CompanyID  string `json:"CORP_ID"`
	FiscalYear string `json:"FISCAL_YEAR"`
	StartDate  string `json:"START_DATE"`
	EndDate    string `json:"END_DATE"`
	IsMain     bool   `json:"IS_MAIN_FY"`
	Remarks    string `json:"REMARKS"`
}

// Period renders the interval as "start~end".
func (fy FiscalYear) Period() string {
	return fy.StartDate + "~" + fy.EndDate
}

// CompanyFiscalYears pairs a company with its fiscal years in insertion order.
type CompanyFiscalYears struct {
	Company     Company      `json:"company"`
	FiscalYears []FiscalYear `json:"fiscalYears"`
}

// Overlap reports the first stored fiscal year whose interval intersects a candidate.
type Overlap struct {
	Conflict   bool
	FiscalYear string
	Period     string
}
