package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"creditlens/internal/bureau"
	"creditlens/internal/report/mapper"
	"creditlens/internal/report/models"
)

type BuilderSuite struct {
	suite.Suite
	crif []byte
	flat []byte
}

func TestBuilderSuite(t *testing.T) {
	suite.Run(t, new(BuilderSuite))
}

func (s *BuilderSuite) SetupSuite() {
	s.crif = readFixture(s.T(), "crif_report.json")
	s.flat = readFixture(s.T(), "flat_report.json")
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func (s *BuilderSuite) TestMinimalCRIFPayload() {
	payload := `{"data":{"credit_score":782,"first_name":"PURAN","last_name":"MAL TANK",
		"credit_report":{"RESPONSES":{"RESPONSE":[{"LOAN-DETAILS":{"OVERDUE-AMT":"0"}}]}}}}`

	r := Build(*NewRawPayload(bureau.CRIF, []byte(payload)), Context{})

	s.Require().NotNil(r.Header.CreditScore)
	s.Equal(782, *r.Header.CreditScore)
	s.Equal("PURAN MAL TANK", r.PersonalInformation.FullName)
	s.Len(r.Accounts, 1)
	s.Equal(0.0, r.Summary.TotalOverdueAmount)
	s.Equal("0", r.Accounts[0].OverdueAmount)
}

func (s *BuilderSuite) TestCRIFReport() {
	r := Build(*NewRawPayload(bureau.CRIF, s.crif), Context{ID: "ignored"})

	s.Run("header", func() {
		s.Equal("CRIF High Mark", r.Header.BureauName)
		s.Equal("CRIF-20240302-0001", r.Header.ControlNumber)
		s.Equal("2024-03-02", r.Header.ReportDate)
		s.Require().NotNil(r.Header.CreditScore)
		s.Equal(782, *r.Header.CreditScore)
	})

	s.Run("personal information", func() {
		p := r.PersonalInformation
		s.Equal("PURAN MAL TANK", p.FullName)
		s.Equal("1985-08-15", p.DateOfBirth)
		s.Equal("Male", p.Gender)
		s.Equal([]models.Identification{
			{Type: "PAN", Number: "ABCDE1234F", IssueDate: mapper.Unavailable, ExpiryDate: mapper.Unavailable},
			{Type: "Voter ID", Number: "XYZ1234567", IssueDate: mapper.Unavailable, ExpiryDate: mapper.Unavailable},
		}, p.Identifications)
	})

	s.Run("contact information", func() {
		c := r.ContactInformation
		s.Require().Len(c.Addresses, 2)
		s.Equal("12 MG ROAD JAIPUR 302001", c.Addresses[0].Address)
		s.Equal("2024-01-31", c.Addresses[0].DateReported)
		s.Equal(mapper.NotReported, c.Addresses[1].Category)
		s.Equal("2022-06-30", c.Addresses[1].DateReported)
		s.Equal([]models.Phone{{Type: "Mobile", Number: "9876543210"}}, c.Phones)
		s.Equal([]string{"puran@example.com"}, c.Emails)
	})

	s.Run("employment", func() {
		s.Require().Len(r.EmploymentInformation, 1)
		s.Equal("Salaried", r.EmploymentInformation[0].Occupation)
		s.Equal("85,000", r.EmploymentInformation[0].Income)
		s.Equal("2024-01-31", r.EmploymentInformation[0].DateReported)
	})

	s.Run("accounts", func() {
		s.Require().Len(r.Accounts, 2)

		open := r.Accounts[0]
		s.Equal("HDFC BANK", open.LenderName)
		s.Equal("Individual", open.Ownership)
		s.Equal(mapper.NoAmount, open.CreditLimit)
		s.Equal("25,000", open.CurrentBalance)
		s.Equal("1,500", open.OverdueAmount)
		s.Equal("2022-04-10", open.Dates.Opened)
		s.Nil(open.Dates.Closed)
		s.Equal("150,000", open.Collateral.Value)
		s.Equal("Property", open.Collateral.Type)
		s.Equal(mapper.NotReported, open.Collateral.SuitFiled)
		s.Equal([]models.PaymentHistory{
			{Month: "2024-01", DaysPastDue: "030", AssetClassification: "Special Mention Account"},
			{Month: "2023-12", DaysPastDue: "000", AssetClassification: "Standard"},
			{Month: "2023-11", DaysPastDue: mapper.Unavailable, AssetClassification: mapper.NotReported},
		}, open.PaymentHistory)

		closed := r.Accounts[1]
		s.Equal("Individual", closed.Ownership)
		s.Equal("50,000", closed.CreditLimit)
		s.Equal(mapper.NoAmount, closed.OverdueAmount)
		s.Require().NotNil(closed.Dates.Closed)
		s.Equal("2023-07-15", *closed.Dates.Closed)
		s.Equal(mapper.NoAmount, closed.Collateral.Value)
		s.Equal("2,000", closed.Collateral.WrittenOffTotal)
		s.Equal("1,800", closed.Collateral.SettlementAmount)
		s.Empty(closed.PaymentHistory)
	})

	s.Run("enquiries", func() {
		s.Equal([]models.Enquiry{
			{LenderName: "BAJAJ FINANCE", EnquiryDate: "2023-12-20", Purpose: "Consumer Loan"},
		}, r.Enquiries)
	})

	s.Run("summary prefers bureau aggregates but sums overdue", func() {
		s.Equal(models.Summary{
			TotalAccounts:         5,
			ActiveAccounts:        3,
			ClosedAccounts:        2,
			TotalOverdueAmount:    1500,
			TotalSanctionedAmount: 500000,
			TotalCurrentBalance:   30000,
		}, r.Summary)
	})
}

func (s *BuilderSuite) TestFlatReport() {
	r := Build(*NewRawPayload(bureau.Experian, s.flat), Context{})

	s.Run("header", func() {
		s.Equal("Experian", r.Header.BureauName)
		s.Equal("EXP-778899", r.Header.ControlNumber)
		s.Equal("2024-03-05", r.Header.ReportDate)
		s.Require().NotNil(r.Header.CreditScore)
		s.Equal(741, *r.Header.CreditScore)
	})

	s.Run("personal information", func() {
		p := r.PersonalInformation
		s.Equal("ANITA SHARMA", p.FullName)
		s.Equal("1990-11-02", p.DateOfBirth)
		s.Require().Len(p.Identifications, 2)
		s.Equal(mapper.Unavailable, p.Identifications[0].IssueDate)
		s.Equal("2018-05-12", p.Identifications[1].IssueDate)
		s.Equal("2028-05-11", p.Identifications[1].ExpiryDate)
	})

	s.Run("single address object is a one element group", func() {
		s.Equal([]models.Address{{
			Address:      "221B LAKE VIEW, PUNE, 411001",
			Category:     "Home",
			Status:       "Rented",
			DateReported: "2024-02-29",
		}}, r.ContactInformation.Addresses)
	})

	s.Run("phones and emails", func() {
		s.Equal([]models.Phone{
			{Type: "Mobile", Number: "9123456780"},
			{Type: "Office", Number: "02024567890"},
		}, r.ContactInformation.Phones)
		s.Equal([]string{"anita@example.com", "a.sharma@example.org"}, r.ContactInformation.Emails)
	})

	s.Run("accounts", func() {
		s.Require().Len(r.Accounts, 2)
		s.Equal("Joint", r.Accounts[0].Ownership)
		s.Equal("600,000", r.Accounts[0].CreditLimit)
		s.Equal("3,000", r.Accounts[0].OverdueAmount)
		s.Equal([]models.PaymentHistory{
			{Month: "2024-02", DaysPastDue: "000", AssetClassification: "Standard"},
			{Month: "2024-01", DaysPastDue: mapper.Unavailable, AssetClassification: mapper.NotReported},
		}, r.Accounts[0].PaymentHistory)

		s.Equal("12,500.5", r.Accounts[1].CurrentBalance)
		s.Require().NotNil(r.Accounts[1].Dates.Closed)
		s.Equal("2023-12-31", *r.Accounts[1].Dates.Closed)
		s.NotNil(r.Accounts[1].PaymentHistory)
		s.Empty(r.Accounts[1].PaymentHistory)
	})

	s.Run("summary derived from accounts", func() {
		s.Equal(models.Summary{
			TotalAccounts:         2,
			ActiveAccounts:        1,
			ClosedAccounts:        1,
			TotalOverdueAmount:    3000,
			TotalSanctionedAmount: 675000,
			TotalCurrentBalance:   432500.5,
		}, r.Summary)
	})

	s.Run("employment absent", func() {
		s.NotNil(r.EmploymentInformation)
		s.Empty(r.EmploymentInformation)
	})
}

func (s *BuilderSuite) TestDegradedPayloads() {
	cases := []struct {
		name     string
		code     bureau.Code
		data     string
		wantName string
	}{
		{"empty object flat", bureau.CIBIL, `{}`, "TransUnion CIBIL"},
		{"empty object crif", bureau.CRIF, `{}`, "CRIF High Mark"},
		{"invalid json", bureau.CRIF, `{"data":`, "CRIF High Mark"},
		{"empty bytes", bureau.Equifax, ``, "Equifax"},
		{"wrong types", bureau.Experian, `{"Accounts":null,"CreditScore":true,"Gender":{"x":1}}`, "Experian"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			var r models.UnifiedCreditReport
			s.NotPanics(func() {
				r = Build(*NewRawPayload(tc.code, []byte(tc.data)), Context{})
			})

			s.Equal(tc.wantName, r.Header.BureauName)
			s.Equal(mapper.NotReported, r.Header.ControlNumber)
			s.Equal(mapper.Unavailable, r.Header.ReportDate)
			s.Nil(r.Header.CreditScore)
			s.Equal(mapper.NotReported, r.PersonalInformation.FullName)
			s.Equal(mapper.Unavailable, r.PersonalInformation.DateOfBirth)
			s.Equal(mapper.NotReported, r.PersonalInformation.Gender)
			s.Equal(models.Summary{}, r.Summary)

			raw, err := json.Marshal(r)
			s.Require().NoError(err)
			s.NotContains(string(raw), "null,")
			s.Contains(string(raw), `"credit_score":null`)
		})
	}
}

func (s *BuilderSuite) TestContextFallbacks() {
	rc := Context{
		ID:           "rep-42",
		FullName:     "Ravi Kumar",
		PAN:          "ABCDE1234F",
		DateOfBirth:  "01-01-1990",
		MobileNumber: " 9000000000 ",
		Gender:       "Male",
		CreatedAt:    time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
		Identifiers: []models.Identification{
			{Type: "Passport", Number: "P7654321", IssueDate: "03-02-2015"},
		},
	}

	for _, code := range []bureau.Code{bureau.CRIF, bureau.CIBIL} {
		s.Run(code.String(), func() {
			r := Build(*NewRawPayload(code, []byte(`{}`)), rc)

			s.Equal("rep-42", r.Header.ControlNumber)
			s.Equal("2024-01-05", r.Header.ReportDate)
			s.Equal("Ravi Kumar", r.PersonalInformation.FullName)
			s.Equal("1990-01-01", r.PersonalInformation.DateOfBirth)
			s.Equal("Male", r.PersonalInformation.Gender)
			s.Equal([]models.Identification{
				{Type: "PAN", Number: "ABCDE1234F", IssueDate: mapper.Unavailable, ExpiryDate: mapper.Unavailable},
				{Type: "Passport", Number: "P7654321", IssueDate: "2015-02-03", ExpiryDate: mapper.Unavailable},
			}, r.PersonalInformation.Identifications)
			s.Equal([]models.Phone{{Type: "Mobile", Number: "9000000000"}}, r.ContactInformation.Phones)
		})
	}
}

func TestRecognize(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Variant
		matched bool
	}{
		{"crif header", `{"data":{"credit_report":{"HEADER":{}}}}`, VariantCRIF, true},
		{"flat score", `{"CreditScore":700}`, VariantFlat, true},
		{"flat report number", `{"ReportNumber":"X"}`, VariantFlat, true},
		{"unknown", `{"foo":1}`, "", false},
		{"invalid", `not json`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Recognize([]byte(tt.data))
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildVariant_ExplicitVariantWins(t *testing.T) {
	r := BuildVariant(VariantFlat, *NewRawPayload(bureau.CRIF, []byte(`{"CreditScore":"701"}`)), Context{})
	require.NotNil(t, r.Header.CreditScore)
	assert.Equal(t, 701, *r.Header.CreditScore)
	assert.Equal(t, "CRIF High Mark", r.Header.BureauName)
}

func TestSummarize(t *testing.T) {
	closedOn := "2023-01-01"
	accounts := []models.Account{
		{},
		{Dates: models.AccountDates{Closed: &closedOn}},
		{},
	}
	figures := []accountFigures{
		{sanctioned: f(100), balance: f(40), overdue: f(5)},
		{sanctioned: f(200), balance: nil, overdue: nil},
		{sanctioned: nil, balance: f(10), overdue: f(7)},
	}

	t.Run("derived", func(t *testing.T) {
		got := summarize(accounts, figures, nil)
		assert.Equal(t, models.Summary{
			TotalAccounts:         3,
			ActiveAccounts:        2,
			ClosedAccounts:        1,
			TotalOverdueAmount:    12,
			TotalSanctionedAmount: 300,
			TotalCurrentBalance:   50,
		}, got)
	})

	t.Run("supplied closed only computes active", func(t *testing.T) {
		got := summarize(accounts, figures, &suppliedSummary{total: i(10), closed: i(4)})
		assert.Equal(t, 10, got.TotalAccounts)
		assert.Equal(t, 4, got.ClosedAccounts)
		assert.Equal(t, 6, got.ActiveAccounts)
	})

	t.Run("supplied active larger than total floors closed at zero", func(t *testing.T) {
		got := summarize(accounts, figures, &suppliedSummary{total: i(2), active: i(3)})
		assert.Equal(t, 3, got.ActiveAccounts)
		assert.Equal(t, 0, got.ClosedAccounts)
	})

	t.Run("supplied amounts never override overdue", func(t *testing.T) {
		got := summarize(accounts, figures, &suppliedSummary{sanctioned: f(999), balance: f(888)})
		assert.Equal(t, 999.0, got.TotalSanctionedAmount)
		assert.Equal(t, 888.0, got.TotalCurrentBalance)
		assert.Equal(t, 12.0, got.TotalOverdueAmount)
		assert.Equal(t, 3, got.TotalAccounts)
	})
}

func TestParseCombinedHistory(t *testing.T) {
	t.Run("caps at 36 months", func(t *testing.T) {
		cells := make([]string, 0, 40)
		for range 40 {
			cells = append(cells, "Jan:2020,000/STD")
		}
		got := parseCombinedHistory(strings.Join(cells, "|"))
		assert.Len(t, got, models.MaxPaymentHistoryMonths)
	})

	t.Run("unknown month passes through", func(t *testing.T) {
		got := parseCombinedHistory("Q1 2020,010/SUB")
		require.Len(t, got, 1)
		assert.Equal(t, "Q1 2020", got[0].Month)
		assert.Equal(t, "010", got[0].DaysPastDue)
		assert.Equal(t, "Substandard", got[0].AssetClassification)
	})

	t.Run("blank", func(t *testing.T) {
		got := parseCombinedHistory("")
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestNewRawPayload_CopiesData(t *testing.T) {
	data := []byte(`{"CreditScore":700}`)
	p := NewRawPayload(bureau.Experian, data)
	data[2] = 'X'
	assert.JSONEq(t, `{"CreditScore":700}`, string(p.Data))
}

func f(v float64) *float64 { return &v }

func i(v int) *int { return &v }

func (s *BuilderSuite) TestCRIFScore() {
	s.Equal(782, *CRIFScore(s.crif))
	s.Equal(705, *CRIFScore([]byte(`{"data":{"credit_report":{"SCORES":{"SCORE":[{"SCORE-VALUE":"n/a"},{"SCORE-VALUE":"705"}]}}}}`)))
	s.Nil(CRIFScore([]byte(`{"data":{"credit_score":"pending"}}`)))
	s.Nil(CRIFScore(nil))
}
