package crif

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"creditlens/internal/provider"
)

const (
	sandboxMinScore = 650
	sandboxMaxScore = 850
	crifDate        = "02-01-2006"
)

var sandboxLenders = []string{"HDFC BANK", "ICICI BANK", "AXIS BANK", "STATE BANK OF INDIA", "KOTAK MAHINDRA BANK"}

var sandboxAccountTypes = []string{"Personal Loan", "Credit Card", "Auto Loan", "Consumer Loan"}

// SandboxReport generates a CRIF-shaped document for req. The same applicant
// always gets the same score and accounts; only the report ID and dates move.
func SandboxReport(req provider.Request, now time.Time) []byte {
	sum := blake2b.Sum256([]byte(req.PAN + "|" + req.FullName))
	rng := rand.New(rand.NewPCG(binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])))

	score := sandboxMinScore + rng.IntN(sandboxMaxScore-sandboxMinScore+1)
	issued := now.Format(crifDate)

	n := 1 + rng.IntN(3)
	responses := make([]map[string]any, 0, n)
	active := 0
	var sanctioned, balance int
	for i := range n {
		amount := 50000 + rng.IntN(20)*25000
		bal := amount * rng.IntN(90) / 100
		opened := now.AddDate(-1-rng.IntN(5), -rng.IntN(12), 0)
		loan := map[string]any{
			"CREDIT-GUARANTOR":         sandboxLenders[rng.IntN(len(sandboxLenders))],
			"ACCT-TYPE":                sandboxAccountTypes[rng.IntN(len(sandboxAccountTypes))],
			"ACCT-NUMBER":              fmt.Sprintf("XXXX%04d", rng.IntN(10000)),
			"OWNERSHIP-IND":            "Individual",
			"DISBURSED-AMT":            fmt.Sprint(amount),
			"CURRENT-BAL":              fmt.Sprint(bal),
			"OVERDUE-AMT":              "0",
			"DISBURSED-DT":             opened.Format(crifDate),
			"DATE-REPORTED":            now.AddDate(0, 0, -rng.IntN(30)).Format(crifDate),
			"COMBINED-PAYMENT-HISTORY": sandboxHistory(now),
		}
		if bal == 0 {
			loan["CLOSED-DATE"] = now.AddDate(0, -1-i, 0).Format(crifDate)
		} else {
			active++
		}
		sanctioned += amount
		balance += bal
		responses = append(responses, map[string]any{"LOAN-DETAILS": loan})
	}

	doc := map[string]any{
		"status": "SUCCESS",
		"data": map[string]any{
			"credit_score": fmt.Sprint(score),
			"dob":          req.DateOfBirth,
			"pan":          req.PAN,
			"mobile":       req.MobileNumber,
			"gender":       req.Gender,
			"credit_report": map[string]any{
				"HEADER": map[string]any{
					"REPORT-ID":     "SANDBOX-" + uuid.NewString(),
					"DATE-OF-ISSUE": issued,
				},
				"REQUEST": map[string]any{
					"NAME": strings.ToUpper(req.FullName),
					"DOB":  req.DateOfBirth,
					"PAN":  req.PAN,
				},
				"PERSONAL-INFO-VARIATION": map[string]any{
					"PAN-VARIATIONS": map[string]any{
						"VARIATION": map[string]any{"VALUE": req.PAN, "REPORTED-DATE": issued},
					},
					"PHONE-NUMBER-VARIATIONS": map[string]any{
						"VARIATION": map[string]any{"VALUE": req.MobileNumber, "TYPE": "M"},
					},
				},
				"SCORES": map[string]any{
					"SCORE": map[string]any{"SCORE-VALUE": fmt.Sprint(score)},
				},
				"ACCOUNTS-SUMMARY": map[string]any{
					"PRIMARY-ACCOUNTS-SUMMARY": map[string]any{
						"PRIMARY-NUMBER-OF-ACCOUNTS":        fmt.Sprint(n),
						"PRIMARY-ACTIVE-NUMBER-OF-ACCOUNTS": fmt.Sprint(active),
						"PRIMARY-SANCTIONED-AMOUNT":         fmt.Sprint(sanctioned),
						"PRIMARY-CURRENT-BALANCE":           fmt.Sprint(balance),
					},
				},
				"RESPONSES": map[string]any{"RESPONSE": responses},
			},
		},
	}
	out, _ := json.Marshal(doc)
	return out
}

func sandboxHistory(now time.Time) string {
	var b []byte
	for i := range 6 {
		m := now.AddDate(0, -i, 0)
		b = fmt.Appendf(b, "%s:%d,000/STD|", m.Format("Jan"), m.Year())
	}
	return string(b)
}
