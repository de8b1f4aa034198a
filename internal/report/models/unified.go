package models

// UnifiedCreditReport is the bureau-agnostic view of one bureau's report.
// Every scalar is populated; missing source data carries a sentinel. Only
// Header.CreditScore and AccountDates.Closed are nullable.
type UnifiedCreditReport struct {
	Header                Header              `json:"header"`
	PersonalInformation   PersonalInformation `json:"personal_information"`
	ContactInformation    ContactInformation  `json:"contact_information"`
	EmploymentInformation []Employment        `json:"employment_information"`
	Accounts              []Account           `json:"accounts"`
	Enquiries             []Enquiry           `json:"enquiries"`
	Summary               Summary             `json:"summary"`
}

type Header struct {
	BureauName    string `json:"bureau_name"`
	ControlNumber string `json:"control_number"`
	ReportDate    string `json:"report_date"`
	CreditScore   *int   `json:"credit_score"`
}

type PersonalInformation struct {
	FullName        string           `json:"full_name"`
	DateOfBirth     string           `json:"date_of_birth"`
	Gender          string           `json:"gender"`
	Identifications []Identification `json:"identifications"`
}

type Identification struct {
	Type       string `json:"type"`
	Number     string `json:"number"`
	IssueDate  string `json:"issue_date"`
	ExpiryDate string `json:"expiry_date"`
}

type ContactInformation struct {
	Addresses []Address `json:"addresses"`
	Phones    []Phone   `json:"phones"`
	Emails    []string  `json:"emails"`
}

type Address struct {
	Address      string `json:"address"`
	Category     string `json:"category"`
	Status       string `json:"status"`
	DateReported string `json:"date_reported"`
}

type Phone struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type Employment struct {
	AccountType     string `json:"account_type"`
	DateReported    string `json:"date_reported"`
	Occupation      string `json:"occupation"`
	Income          string `json:"income"`
	Frequency       string `json:"frequency"`
	IncomeIndicator string `json:"income_indicator"`
}

// Account amounts are display strings; use the mapper to read them back as
// numbers.
type Account struct {
	LenderName     string           `json:"lender_name"`
	AccountType    string           `json:"account_type"`
	AccountNumber  string           `json:"account_number"`
	Ownership      string           `json:"ownership"`
	CreditLimit    string           `json:"credit_limit"`
	CurrentBalance string           `json:"current_balance"`
	OverdueAmount  string           `json:"overdue_amount"`
	Dates          AccountDates     `json:"dates"`
	PaymentHistory []PaymentHistory `json:"payment_history"`
	Collateral     Collateral       `json:"collateral"`
}

type AccountDates struct {
	Opened      string  `json:"opened"`
	Closed      *string `json:"closed"`
	LastPayment string  `json:"last_payment"`
	Reported    string  `json:"reported"`
}

// PaymentHistory is one month of the (at most 36 month) repayment grid.
type PaymentHistory struct {
	Month               string `json:"month"`
	DaysPastDue         string `json:"days_past_due"`
	AssetClassification string `json:"asset_classification"`
}

type Collateral struct {
	Value               string `json:"value"`
	Type                string `json:"type"`
	SuitFiled           string `json:"suit_filed"`
	WrittenOffTotal     string `json:"written_off_total"`
	WrittenOffPrincipal string `json:"written_off_principal"`
	SettlementAmount    string `json:"settlement_amount"`
}

type Enquiry struct {
	LenderName  string `json:"lender_name"`
	EnquiryDate string `json:"enquiry_date"`
	Purpose     string `json:"purpose"`
}

type Summary struct {
	TotalAccounts         int     `json:"total_accounts"`
	ActiveAccounts        int     `json:"active_accounts"`
	ClosedAccounts        int     `json:"closed_accounts"`
	TotalOverdueAmount    float64 `json:"total_overdue_amount"`
	TotalSanctionedAmount float64 `json:"total_sanctioned_amount"`
	TotalCurrentBalance   float64 `json:"total_current_balance"`
}

// MaxPaymentHistoryMonths bounds Account.PaymentHistory.
const MaxPaymentHistoryMonths = 36
