package report

import (
	"strings"

	"github.com/tidwall/gjson"

	"creditlens/internal/report/mapper"
	"creditlens/internal/report/models"
)

// crifIdentityGroups lists the PERSONAL-INFO-VARIATION groups that carry
// identity documents, with the label used in the unified report.
var crifIdentityGroups = []struct {
	key   string
	label string
}{
	{"PAN-VARIATIONS", "PAN"},
	{"VOTER-ID-VARIATIONS", "Voter ID"},
	{"PASSPORT-VARIATIONS", "Passport"},
	{"DRIVING-LICENSE-VARIATIONS", "Driving Licence"},
	{"UID-VARIATIONS", "Aadhaar"},
	{"RATION-CARD-VARIATIONS", "Ration Card"},
}

// decodeCRIF reads the nested CRIF document rooted at data.credit_report.
// Dates arrive as DD-MM-YYYY and repeating groups may be bare objects.
func decodeCRIF(p RawPayload, root gjson.Result, rc Context) decoded {
	data := root.Get("data")
	cr := data.Get("credit_report")
	req := cr.Get("REQUEST")
	variations := cr.Get("PERSONAL-INFO-VARIATION")

	d := decoded{
		header:     crifHeader(p, data, cr, rc),
		personal:   crifPersonal(data, req, variations, rc),
		contact:    crifContact(data, variations, rc),
		employment: crifEmployment(cr),
		enquiries:  crifEnquiries(cr),
		supplied:   crifSummary(cr),
	}
	d.accounts, d.figures = crifAccounts(cr)
	return d
}

func crifHeader(p RawPayload, data, cr gjson.Result, rc Context) models.Header {
	h := cr.Get("HEADER")
	return models.Header{
		BureauName:    p.Bureau.DisplayName(),
		ControlNumber: mapper.TextOr(mapper.Scalar(h.Get("REPORT-ID")), rc.ID),
		ReportDate:    orDate(mapper.DateOf(h.Get("DATE-OF-ISSUE")), contextReportDate(rc)),
		CreditScore:   crifScore(data, cr),
	}
}

// CRIFScore reads the bureau score from a CRIF document, preferring the
// top-level credit_score over the SCORES block. It returns nil when neither
// holds a number.
func CRIFScore(data []byte) *int {
	d := parse(data).Get("data")
	return crifScore(d, d.Get("credit_report"))
}

func crifScore(data, cr gjson.Result) *int {
	if score := mapper.Int(data.Get("credit_score")); score != nil {
		return score
	}
	for _, s := range mapper.Seq(cr.Get("SCORES.SCORE")) {
		if score := mapper.Int(s.Get("SCORE-VALUE")); score != nil {
			return score
		}
	}
	return nil
}

func crifPersonal(data, req, variations gjson.Result, rc Context) models.PersonalInformation {
	name := strings.Join(strings.Fields(strings.Join([]string{
		mapper.Scalar(data.Get("first_name")),
		mapper.Scalar(data.Get("middle_name")),
		mapper.Scalar(data.Get("last_name")),
	}, " ")), " ")

	dob := mapper.TextOr(mapper.Scalar(data.Get("dob")), mapper.Scalar(req.Get("DOB")), rc.DateOfBirth)
	if dob == mapper.NotReported {
		dob = ""
	}

	ids := make([]models.Identification, 0)
	seen := make(map[string]struct{})
	for _, g := range crifIdentityGroups {
		for _, v := range mapper.Seq(variations.Get(g.key + ".VARIATION")) {
			number := mapper.Text(v.Get("VALUE"))
			if number == mapper.NotReported {
				continue
			}
			key := g.label + "|" + strings.ToUpper(number)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			ids = append(ids, models.Identification{
				Type:       g.label,
				Number:     number,
				IssueDate:  mapper.Unavailable,
				ExpiryDate: mapper.Unavailable,
			})
		}
	}
	if len(ids) == 0 {
		ids = contextIdentifications(mapper.TextOr(mapper.Scalar(data.Get("pan")), mapper.Scalar(req.Get("PAN"))), rc)
	}

	return models.PersonalInformation{
		FullName:        mapper.TextOr(name, mapper.Scalar(req.Get("NAME")), rc.FullName),
		DateOfBirth:     mapper.NormalizeDate(dob),
		Gender:          mapper.TextOr(mapper.Scalar(data.Get("gender")), mapper.Scalar(req.Get("GENDER")), rc.Gender),
		Identifications: ids,
	}
}

func crifContact(data, variations gjson.Result, rc Context) models.ContactInformation {
	c := models.ContactInformation{
		Addresses: make([]models.Address, 0),
		Phones:    make([]models.Phone, 0),
		Emails:    make([]string, 0),
	}
	for _, v := range mapper.Seq(variations.Get("ADDRESS-VARIATIONS.VARIATION")) {
		c.Addresses = append(c.Addresses, models.Address{
			Address:      mapper.Text(v.Get("VALUE")),
			Category:     mapper.Text(v.Get("TYPE")),
			Status:       mapper.Text(v.Get("STATUS")),
			DateReported: mapper.DateOf(v.Get("REPORTED-DATE")),
		})
	}
	for _, v := range mapper.Seq(variations.Get("PHONE-NUMBER-VARIATIONS.VARIATION")) {
		number := mapper.Text(v.Get("VALUE"))
		if number == mapper.NotReported {
			continue
		}
		c.Phones = append(c.Phones, models.Phone{
			Type:   mapper.Term(mapper.Text(v.Get("TYPE"))),
			Number: number,
		})
	}
	if len(c.Phones) == 0 {
		if m := mapper.TextOr(mapper.Scalar(data.Get("mobile")), rc.MobileNumber); m != mapper.NotReported {
			c.Phones = append(c.Phones, models.Phone{Type: "Mobile", Number: m})
		}
	}
	seen := make(map[string]struct{})
	for _, v := range mapper.Seq(variations.Get("EMAIL-VARIATIONS.VARIATION")) {
		c.Emails = appendEmail(c.Emails, seen, mapper.Scalar(v.Get("VALUE")))
	}
	return c
}

func crifEmployment(cr gjson.Result) []models.Employment {
	out := make([]models.Employment, 0)
	for _, e := range mapper.Seq(cr.Get("EMPLOYMENT-DETAILS.EMPLOYMENT-DETAIL")) {
		out = append(out, models.Employment{
			AccountType:     mapper.Text(e.Get("ACCT-TYPE")),
			DateReported:    mapper.DateOf(e.Get("DATE-REPORTED")),
			Occupation:      mapper.Text(e.Get("OCCUPATION")),
			Income:          mapper.Amount(e.Get("INCOME")),
			Frequency:       mapper.Text(e.Get("INCOME-FREQUENCY")),
			IncomeIndicator: mapper.Text(e.Get("INCOME-INDICATOR")),
		})
	}
	return out
}

func crifAccounts(cr gjson.Result) ([]models.Account, []accountFigures) {
	accounts := make([]models.Account, 0)
	figures := make([]accountFigures, 0)
	for _, resp := range mapper.Seq(cr.Get("RESPONSES.RESPONSE")) {
		loan := resp.Get("LOAN-DETAILS")
		security := gjson.Result{}
		if groups := mapper.Seq(loan.Get("SECURITY-DETAILS.SECURITY-DETAIL")); len(groups) > 0 {
			security = groups[0]
		}

		sanctioned := mapper.Number(loan.Get("DISBURSED-AMT"))
		if sanctioned == nil {
			sanctioned = mapper.Number(loan.Get("CREDIT-LIMIT"))
		}
		f := accountFigures{
			sanctioned: sanctioned,
			balance:    mapper.Number(loan.Get("CURRENT-BAL")),
			overdue:    mapper.Number(loan.Get("OVERDUE-AMT")),
		}

		accounts = append(accounts, models.Account{
			LenderName:     mapper.Text(loan.Get("CREDIT-GUARANTOR")),
			AccountType:    mapper.Text(loan.Get("ACCT-TYPE")),
			AccountNumber:  mapper.Text(loan.Get("ACCT-NUMBER")),
			Ownership:      mapper.Term(mapper.Text(loan.Get("OWNERSHIP-IND"))),
			CreditLimit:    mapper.Amount(loan.Get("CREDIT-LIMIT")),
			CurrentBalance: mapper.FormatAmount(f.balance),
			OverdueAmount:  mapper.FormatAmount(f.overdue),
			Dates: models.AccountDates{
				Opened:      mapper.DateOf(loan.Get("DISBURSED-DT")),
				Closed:      mapper.OptionalDateOf(loan.Get("CLOSED-DATE")),
				LastPayment: mapper.DateOf(loan.Get("LAST-PAYMENT-DATE")),
				Reported:    mapper.DateOf(loan.Get("DATE-REPORTED")),
			},
			PaymentHistory: parseCombinedHistory(mapper.Scalar(loan.Get("COMBINED-PAYMENT-HISTORY"))),
			Collateral: models.Collateral{
				Value:               mapper.Amount(security.Get("SECURITY-VALUE")),
				Type:                mapper.Text(security.Get("SECURITY-TYPE")),
				SuitFiled:           mapper.Text(loan.Get("SUIT-FILED-WILFUL-DEFAULT")),
				WrittenOffTotal:     mapper.Amount(loan.Get("WRITE-OFF-AMT")),
				WrittenOffPrincipal: mapper.Amount(loan.Get("PRINCIPAL-WRITE-OFF-AMT")),
				SettlementAmount:    mapper.Amount(loan.Get("SETTLEMENT-AMT")),
			},
		})
		figures = append(figures, f)
	}
	return accounts, figures
}

func crifEnquiries(cr gjson.Result) []models.Enquiry {
	out := make([]models.Enquiry, 0)
	for _, h := range mapper.Seq(cr.Get("INQUIRY-HISTORY.HISTORY")) {
		out = append(out, models.Enquiry{
			LenderName:  mapper.Text(h.Get("MEMBER-NAME")),
			EnquiryDate: mapper.DateOf(h.Get("INQUIRY-DATE")),
			Purpose:     mapper.Text(h.Get("PURPOSE")),
		})
	}
	return out
}

func crifSummary(cr gjson.Result) *suppliedSummary {
	s := cr.Get("ACCOUNTS-SUMMARY.PRIMARY-ACCOUNTS-SUMMARY")
	if !s.IsObject() {
		return nil
	}
	return &suppliedSummary{
		total:      mapper.Int(s.Get("PRIMARY-NUMBER-OF-ACCOUNTS")),
		active:     mapper.Int(s.Get("PRIMARY-ACTIVE-NUMBER-OF-ACCOUNTS")),
		sanctioned: mapper.Number(s.Get("PRIMARY-SANCTIONED-AMOUNT")),
		balance:    mapper.Number(s.Get("PRIMARY-CURRENT-BALANCE")),
	}
}
