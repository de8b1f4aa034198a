package report

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"creditlens/internal/report/mapper"
	"creditlens/internal/report/models"
)

// parseCombinedHistory reads the compact "Mon:YYYY,DPD/ASSET|..." grid, most
// recent month first, keeping at most 36 months.
func parseCombinedHistory(s string) []models.PaymentHistory {
	out := make([]models.PaymentHistory, 0)
	for _, cell := range strings.Split(s, "|") {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		month, status, _ := strings.Cut(cell, ",")
		dpd, asset, _ := strings.Cut(status, "/")
		out = append(out, paymentMonth(month, dpd, asset))
		if len(out) == models.MaxPaymentHistoryMonths {
			break
		}
	}
	return out
}

// historyOf accepts either a list of month objects or the compact string form.
func historyOf(r gjson.Result) []models.PaymentHistory {
	if r.Type == gjson.String {
		return parseCombinedHistory(r.Str)
	}
	out := make([]models.PaymentHistory, 0)
	for _, m := range mapper.Seq(r) {
		if !m.IsObject() {
			continue
		}
		out = append(out, paymentMonth(
			m.Get("Month").String(),
			m.Get("DaysPastDue").String(),
			m.Get("AssetClassification").String(),
		))
		if len(out) == models.MaxPaymentHistoryMonths {
			break
		}
	}
	return out
}

func paymentMonth(month, dpd, asset string) models.PaymentHistory {
	dpd = strings.TrimSpace(dpd)
	if dpd == "" || strings.EqualFold(dpd, "XXX") {
		dpd = mapper.Unavailable
	}
	asset = strings.TrimSpace(asset)
	return models.PaymentHistory{
		Month:               normalizeMonth(month),
		DaysPastDue:         dpd,
		AssetClassification: mapper.TextOr(mapper.Term(asset)),
	}
}

// normalizeMonth turns "Jan:2023" or "01-2023" into "2023-01"; anything else
// passes through.
func normalizeMonth(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return mapper.Unavailable
	}
	for _, layout := range []string{"Jan:2006", "01-2006", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01")
		}
	}
	return s
}
