package report

import (
	"strings"

	"github.com/tidwall/gjson"

	"creditlens/internal/report/mapper"
	"creditlens/internal/report/models"
)

// first returns the first existing node among the given keys of r. Vendors
// using the flat layout disagree on a handful of key names.
func first(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// decodeFlat reads the flat key/value layout where every section is a
// top-level key and repeating groups are arrays (or bare objects).
func decodeFlat(p RawPayload, root gjson.Result, rc Context) decoded {
	d := decoded{
		header:     flatHeader(p, root, rc),
		personal:   flatPersonal(root, rc),
		contact:    flatContact(root, rc),
		employment: flatEmployment(root),
		enquiries:  flatEnquiries(root),
		supplied:   flatSummary(root),
	}
	d.accounts, d.figures = flatAccounts(root)
	return d
}

func flatHeader(p RawPayload, root gjson.Result, rc Context) models.Header {
	score := mapper.Int(root.Get("CreditScore"))
	if score == nil {
		score = mapper.Int(root.Get("CreditScore.Score"))
	}
	return models.Header{
		BureauName:    mapper.TextOr(mapper.Scalar(root.Get("BureauName")), p.Bureau.DisplayName()),
		ControlNumber: mapper.TextOr(mapper.Scalar(first(root, "ReportNumber", "ControlNumber")), rc.ID),
		ReportDate:    orDate(mapper.DateOf(root.Get("ReportDate")), contextReportDate(rc)),
		CreditScore:   score,
	}
}

func flatPersonal(root gjson.Result, rc Context) models.PersonalInformation {
	name := mapper.Scalar(first(root, "Name", "FullName"))
	if strings.TrimSpace(name) == "" {
		name = strings.Join(strings.Fields(mapper.Scalar(root.Get("FirstName"))+" "+mapper.Scalar(root.Get("LastName"))), " ")
	}

	ids := make([]models.Identification, 0)
	for _, id := range mapper.Seq(root.Get("Identifications")) {
		ids = append(ids, models.Identification{
			Type:       mapper.Text(id.Get("IdType")),
			Number:     mapper.Text(id.Get("IdNumber")),
			IssueDate:  mapper.DateOf(id.Get("IssueDate")),
			ExpiryDate: mapper.DateOf(id.Get("ExpirationDate")),
		})
	}
	if len(ids) == 0 {
		ids = contextIdentifications(mapper.Scalar(root.Get("PAN")), rc)
	}

	dob := mapper.Scalar(first(root, "DateOfBirth", "DOB"))
	if strings.TrimSpace(dob) == "" {
		dob = rc.DateOfBirth
	}

	return models.PersonalInformation{
		FullName:        mapper.TextOr(name, rc.FullName),
		DateOfBirth:     mapper.NormalizeDate(dob),
		Gender:          mapper.TextOr(mapper.Scalar(root.Get("Gender")), rc.Gender),
		Identifications: ids,
	}
}

func flatContact(root gjson.Result, rc Context) models.ContactInformation {
	c := models.ContactInformation{
		Addresses: make([]models.Address, 0),
		Phones:    make([]models.Phone, 0),
		Emails:    make([]string, 0),
	}
	for _, a := range mapper.Seq(root.Get("Addresses")) {
		text := mapper.Scalar(a.Get("Address"))
		if strings.TrimSpace(text) == "" {
			var parts []string
			for _, k := range []string{"AddressLine1", "AddressLine2", "AddressLine3", "City", "State", "PinCode"} {
				if v := strings.TrimSpace(mapper.Scalar(a.Get(k))); v != "" {
					parts = append(parts, v)
				}
			}
			text = strings.Join(parts, ", ")
		}
		c.Addresses = append(c.Addresses, models.Address{
			Address:      mapper.TextOr(text),
			Category:     mapper.Term(mapper.Text(a.Get("Category"))),
			Status:       mapper.Text(first(a, "Status", "ResidenceCode")),
			DateReported: mapper.DateOf(a.Get("DateReported")),
		})
	}
	for _, ph := range mapper.Seq(root.Get("Phones")) {
		c.Phones = append(c.Phones, models.Phone{
			Type:   mapper.Term(mapper.Text(ph.Get("PhoneType"))),
			Number: mapper.Text(first(ph, "Number", "PhoneNumber")),
		})
	}
	if len(c.Phones) == 0 && strings.TrimSpace(rc.MobileNumber) != "" {
		c.Phones = append(c.Phones, models.Phone{Type: "Mobile", Number: strings.TrimSpace(rc.MobileNumber)})
	}
	seen := make(map[string]struct{})
	for _, e := range mapper.Seq(root.Get("Emails")) {
		if e.IsObject() {
			c.Emails = appendEmail(c.Emails, seen, mapper.Scalar(e.Get("EmailAddress")))
			continue
		}
		c.Emails = appendEmail(c.Emails, seen, mapper.Scalar(e))
	}
	return c
}

func flatEmployment(root gjson.Result) []models.Employment {
	out := make([]models.Employment, 0)
	for _, e := range mapper.Seq(root.Get("Employment")) {
		out = append(out, models.Employment{
			AccountType:     mapper.Text(e.Get("AccountType")),
			DateReported:    mapper.DateOf(e.Get("DateReported")),
			Occupation:      mapper.Text(e.Get("Occupation")),
			Income:          mapper.Amount(e.Get("Income")),
			Frequency:       mapper.Text(e.Get("Frequency")),
			IncomeIndicator: mapper.Text(e.Get("IncomeIndicator")),
		})
	}
	return out
}

func flatAccounts(root gjson.Result) ([]models.Account, []accountFigures) {
	accounts := make([]models.Account, 0)
	figures := make([]accountFigures, 0)
	for _, a := range mapper.Seq(root.Get("Accounts")) {
		f := accountFigures{
			sanctioned: mapper.Number(first(a, "HighCredit", "SanctionAmount", "CreditLimit")),
			balance:    mapper.Number(first(a, "Balance", "CurrentBalance")),
			overdue:    mapper.Number(first(a, "OverdueAmount", "PastDueAmount")),
		}
		accounts = append(accounts, models.Account{
			LenderName:     mapper.Text(first(a, "Institution", "MemberName")),
			AccountType:    mapper.Text(a.Get("AccountType")),
			AccountNumber:  mapper.Text(a.Get("AccountNumber")),
			Ownership:      mapper.Term(mapper.Text(a.Get("OwnershipType"))),
			CreditLimit:    mapper.Amount(first(a, "CreditLimit", "HighCredit")),
			CurrentBalance: mapper.FormatAmount(f.balance),
			OverdueAmount:  mapper.FormatAmount(f.overdue),
			Dates: models.AccountDates{
				Opened:      mapper.DateOf(a.Get("DateOpened")),
				Closed:      mapper.OptionalDateOf(a.Get("DateClosed")),
				LastPayment: mapper.DateOf(a.Get("LastPaymentDate")),
				Reported:    mapper.DateOf(a.Get("DateReported")),
			},
			PaymentHistory: historyOf(a.Get("PaymentHistory")),
			Collateral: models.Collateral{
				Value:               mapper.Amount(a.Get("CollateralValue")),
				Type:                mapper.Text(a.Get("CollateralType")),
				SuitFiled:           mapper.Text(a.Get("SuitFiled")),
				WrittenOffTotal:     mapper.Amount(a.Get("WriteOffAmount")),
				WrittenOffPrincipal: mapper.Amount(a.Get("WriteOffPrincipal")),
				SettlementAmount:    mapper.Amount(a.Get("SettlementAmount")),
			},
		})
		figures = append(figures, f)
	}
	return accounts, figures
}

func flatEnquiries(root gjson.Result) []models.Enquiry {
	out := make([]models.Enquiry, 0)
	for _, e := range mapper.Seq(root.Get("Enquiries")) {
		out = append(out, models.Enquiry{
			LenderName:  mapper.Text(first(e, "Institution", "MemberName")),
			EnquiryDate: mapper.DateOf(first(e, "Date", "EnquiryDate")),
			Purpose:     mapper.Text(e.Get("Purpose")),
		})
	}
	return out
}

func flatSummary(root gjson.Result) *suppliedSummary {
	s := root.Get("Summary")
	if !s.IsObject() {
		return nil
	}
	return &suppliedSummary{
		total:      mapper.Int(s.Get("TotalAccounts")),
		active:     mapper.Int(s.Get("ActiveAccounts")),
		closed:     mapper.Int(s.Get("ClosedAccounts")),
		sanctioned: mapper.Number(first(s, "TotalSanctionedAmount", "TotalHighCredit")),
		balance:    mapper.Number(first(s, "TotalBalanceAmount", "TotalCurrentBalance")),
	}
}
