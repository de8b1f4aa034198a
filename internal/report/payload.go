// Package report turns raw bureau payloads into unified credit reports.
//
// Each payload shape is a Variant with its own decoder. Decoders never fail:
// absent or malformed data degrades field by field to the sentinels defined in
// the mapper package.
package report

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"

	"creditlens/internal/bureau"
	"creditlens/internal/report/models"
)

// RawPayload is a bureau response as stored, tagged with the bureau that
// produced it. Treat Data as read-only.
type RawPayload struct {
	Bureau bureau.Code
	Data   json.RawMessage
}

// NewRawPayload copies data so the payload cannot be mutated by the caller.
func NewRawPayload(code bureau.Code, data []byte) *RawPayload {
	cp := make([]byte, len(data))
	copy(cp, data)
	return &RawPayload{Bureau: code, Data: cp}
}

// Context carries the report identity used when a payload omits it.
type Context struct {
	ID           string
	FullName     string
	PAN          string
	DateOfBirth  string
	MobileNumber string
	Gender       string
	CreatedAt    time.Time
	Identifiers  []models.Identification
}

// Variant names a payload shape.
type Variant string

const (
	// VariantCRIF is the nested, XML-derived CRIF document.
	VariantCRIF Variant = "crif"
	// VariantFlat is the flat vendor key/value layout.
	VariantFlat Variant = "flat"
)

// Recognize identifies the payload shape from a characteristic key.
func Recognize(data []byte) (Variant, bool) {
	return recognize(parse(data))
}

func recognize(root gjson.Result) (Variant, bool) {
	switch {
	case root.Get("data.credit_report.HEADER").Exists():
		return VariantCRIF, true
	case root.Get("CreditScore").Exists(), root.Get("Accounts").Exists(), root.Get("ReportNumber").Exists():
		return VariantFlat, true
	default:
		return "", false
	}
}

// DefaultVariant is the shape assumed for a bureau when the payload carries no
// recognizable marker.
func DefaultVariant(code bureau.Code) Variant {
	if code == bureau.CRIF {
		return VariantCRIF
	}
	return VariantFlat
}
