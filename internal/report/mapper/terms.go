package mapper

import "strings"

// terms maps vendor vocabulary onto the labels used in unified reports.
var terms = map[string]string{
	// field names
	"OverdueAmount":   "Overdue Amount",
	"HighCredit":      "High Credit",
	"CreditLimit":     "Credit Limit",
	"CurrentBalance":  "Current Balance",
	"SanctionAmount":  "Sanctioned Amount",
	"WriteOffAmount":  "Written-off Amount",
	"SettlementAmt":   "Settlement Amount",
	"DateOpened":      "Date Opened",
	"DateClosed":      "Date Closed",
	"LastPaymentDate": "Last Payment Date",
	"DateReported":    "Date Reported",

	// asset classification
	"STD": "Standard",
	"SMA": "Special Mention Account",
	"SUB": "Substandard",
	"DBT": "Doubtful",
	"LSS": "Loss",
	"XXX": NotReported,

	// ownership
	"INDV": "Individual",
	"JOIN": "Joint",
	"GUAR": "Guarantor",
	"AUTH": "Authorised User",

	// contact categories
	"H": "Home",
	"O": "Office",
	"M": "Mobile",
	"P": "Permanent",
}

// Term translates a vendor term to its canonical label. Exact matches win,
// then an upper-case match; unknown terms come back unchanged.
func Term(s string) string {
	if label, ok := terms[s]; ok {
		return label
	}
	if label, ok := terms[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return label
	}
	return s
}
