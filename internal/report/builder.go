package report

import (
	"strings"

	"github.com/tidwall/gjson"

	"creditlens/internal/report/mapper"
	"creditlens/internal/report/models"
)

// decoded is what every variant decoder produces. Figures are kept numeric
// alongside the formatted accounts so the summary never re-parses display text.
type decoded struct {
	header     models.Header
	personal   models.PersonalInformation
	contact    models.ContactInformation
	employment []models.Employment
	accounts   []models.Account
	figures    []accountFigures
	enquiries  []models.Enquiry
	supplied   *suppliedSummary
}

type accountFigures struct {
	sanctioned *float64
	balance    *float64
	overdue    *float64
}

// suppliedSummary holds the bureau's own aggregates; nil fields are derived.
type suppliedSummary struct {
	total      *int
	active     *int
	closed     *int
	sanctioned *float64
	balance    *float64
}

type decoder func(p RawPayload, root gjson.Result, rc Context) decoded

var decoders = map[Variant]decoder{
	VariantCRIF: decodeCRIF,
	VariantFlat: decodeFlat,
}

// Build decodes p into a unified report. Unrecognized payloads fall back to
// the bureau's default variant and come out sentinel-filled.
func Build(p RawPayload, rc Context) models.UnifiedCreditReport {
	root := parse(p.Data)
	v, ok := recognize(root)
	if !ok {
		v = DefaultVariant(p.Bureau)
	}
	return build(v, p, root, rc)
}

// BuildVariant decodes p with an explicit variant.
func BuildVariant(v Variant, p RawPayload, rc Context) models.UnifiedCreditReport {
	return build(v, p, parse(p.Data), rc)
}

func parse(data []byte) gjson.Result {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(data)
}

func build(v Variant, p RawPayload, root gjson.Result, rc Context) models.UnifiedCreditReport {
	decode, ok := decoders[v]
	if !ok {
		decode = decoders[DefaultVariant(p.Bureau)]
	}
	d := decode(p, root, rc)

	return models.UnifiedCreditReport{
		Header:                d.header,
		PersonalInformation:   d.personal,
		ContactInformation:    d.contact,
		EmploymentInformation: nonNil(d.employment),
		Accounts:              nonNil(d.accounts),
		Enquiries:             nonNil(d.enquiries),
		Summary:               summarize(d.accounts, d.figures, d.supplied),
	}
}

// summarize prefers bureau aggregates for counts, sanctioned and balance, but
// always sums account overdue amounts.
func summarize(accounts []models.Account, figures []accountFigures, supplied *suppliedSummary) models.Summary {
	closed := 0
	for _, a := range accounts {
		if a.Dates.Closed != nil {
			closed++
		}
	}
	var sanctioned, balance, overdue []*float64
	for _, f := range figures {
		sanctioned = append(sanctioned, f.sanctioned)
		balance = append(balance, f.balance)
		overdue = append(overdue, f.overdue)
	}

	s := models.Summary{
		TotalAccounts:         len(accounts),
		ActiveAccounts:        len(accounts) - closed,
		ClosedAccounts:        closed,
		TotalOverdueAmount:    mapper.Sum(overdue),
		TotalSanctionedAmount: mapper.Sum(sanctioned),
		TotalCurrentBalance:   mapper.Sum(balance),
	}
	if supplied == nil {
		return s
	}

	if supplied.total != nil {
		s.TotalAccounts = *supplied.total
	}
	switch {
	case supplied.active != nil && supplied.closed != nil:
		s.ActiveAccounts, s.ClosedAccounts = *supplied.active, *supplied.closed
	case supplied.active != nil:
		s.ActiveAccounts = *supplied.active
		s.ClosedAccounts = max(s.TotalAccounts-s.ActiveAccounts, 0)
	case supplied.closed != nil:
		s.ClosedAccounts = *supplied.closed
		s.ActiveAccounts = max(s.TotalAccounts-s.ClosedAccounts, 0)
	}
	if supplied.sanctioned != nil {
		s.TotalSanctionedAmount = *supplied.sanctioned
	}
	if supplied.balance != nil {
		s.TotalCurrentBalance = *supplied.balance
	}
	return s
}

// contextIdentifications is the identification fallback when the payload
// lists none.
func contextIdentifications(pan string, rc Context) []models.Identification {
	ids := make([]models.Identification, 0, len(rc.Identifiers)+1)
	if p := mapper.TextOr(pan, rc.PAN); p != mapper.NotReported {
		ids = append(ids, models.Identification{
			Type:       "PAN",
			Number:     p,
			IssueDate:  mapper.Unavailable,
			ExpiryDate: mapper.Unavailable,
		})
	}
	for _, id := range rc.Identifiers {
		ids = append(ids, models.Identification{
			Type:       mapper.TextOr(id.Type),
			Number:     mapper.TextOr(id.Number),
			IssueDate:  mapper.NormalizeDate(id.IssueDate),
			ExpiryDate: mapper.NormalizeDate(id.ExpiryDate),
		})
	}
	return ids
}

func contextReportDate(rc Context) string {
	if rc.CreatedAt.IsZero() {
		return mapper.Unavailable
	}
	return rc.CreatedAt.Format("2006-01-02")
}

// orDate returns the normalized date or the fallback when it is unavailable.
func orDate(d, fallback string) string {
	if d == mapper.Unavailable {
		return fallback
	}
	return d
}

// appendEmail keeps first-seen order and drops duplicates and blanks.
func appendEmail(emails []string, seen map[string]struct{}, candidate string) []string {
	e := mapper.TextOr(candidate)
	if e == mapper.NotReported {
		return emails
	}
	key := strings.ToLower(e)
	if _, dup := seen[key]; dup {
		return emails
	}
	seen[key] = struct{}{}
	return append(emails, e)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
