// Package records is the keyed report record store. A report row carries the
// applicant's identity, the purchased bureau list and, per bureau, a score
// column and a raw payload column.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"creditlens/internal/bureau"
)

// Identity and entitlement columns.
const (
	ColumnID              = "id"
	ColumnFullName        = "full_name"
	ColumnPAN             = "pan_number"
	ColumnDateOfBirth     = "date_of_birth"
	ColumnMobileNumber    = "mobile_number"
	ColumnGender          = "gender"
	ColumnCreatedAt       = "created_at"
	ColumnSelectedBureaus = "selected_bureaus"
)

// Store reads and partially updates report rows.
type Store interface {
	// GetColumns returns the requested columns of one report. Returns
	// sentinel.ErrNotFound when the report does not exist.
	GetColumns(ctx context.Context, reportID string, columns []string) (Record, error)
	// UpdateColumns writes the given columns and leaves the rest untouched.
	UpdateColumns(ctx context.Context, reportID string, rec Record) error
}

// Record is a partial report row keyed by column name. Stores normalize
// values: scores are *int, raw columns json.RawMessage, selected_bureaus
// []string, created_at time.Time, everything else string. SQL NULL is nil.
type Record map[string]any

// BureauColumns lists every score and raw column in bureau priority order.
func BureauColumns() []string {
	cols := make([]string, 0, 2*len(bureau.Codes()))
	for _, code := range bureau.Codes() {
		cols = append(cols, code.ScoreColumn(), code.RawDataColumn())
	}
	return cols
}

// IdentityColumns lists the columns needed to build a report context and
// resolve entitlements.
func IdentityColumns() []string {
	return []string{
		ColumnID,
		ColumnFullName,
		ColumnPAN,
		ColumnDateOfBirth,
		ColumnMobileNumber,
		ColumnGender,
		ColumnCreatedAt,
		ColumnSelectedBureaus,
	}
}

type columnKind int

const (
	kindText columnKind = iota
	kindScore
	kindRaw
	kindList
	kindTime
)

var columnKinds = func() map[string]columnKind {
	kinds := map[string]columnKind{
		ColumnID:              kindText,
		ColumnFullName:        kindText,
		ColumnPAN:             kindText,
		ColumnDateOfBirth:     kindText,
		ColumnMobileNumber:    kindText,
		ColumnGender:          kindText,
		ColumnCreatedAt:       kindTime,
		ColumnSelectedBureaus: kindList,
	}
	for _, code := range bureau.Codes() {
		kinds[code.ScoreColumn()] = kindScore
		kinds[code.RawDataColumn()] = kindRaw
	}
	return kinds
}()

// ValidColumn reports whether col is a known report column.
func ValidColumn(col string) bool {
	_, ok := columnKinds[col]
	return ok
}

func validateColumns(cols []string) error {
	if len(cols) == 0 {
		return fmt.Errorf("no columns requested")
	}
	for _, c := range cols {
		if !ValidColumn(c) {
			return fmt.Errorf("unknown column %q", c)
		}
	}
	return nil
}

// Score returns the bureau score, nil when absent or NULL.
func (r Record) Score(code bureau.Code) *int {
	return scoreValue(r[code.ScoreColumn()])
}

// RawData returns the raw bureau payload, nil when absent or NULL.
func (r Record) RawData(code bureau.Code) json.RawMessage {
	return rawValue(r[code.RawDataColumn()])
}

// Text returns a text column, "" when absent or NULL.
func (r Record) Text(col string) string {
	s, _ := r[col].(string)
	return s
}

// SelectedBureaus returns the entitlement list.
func (r Record) SelectedBureaus() []string {
	return listValue(r[ColumnSelectedBureaus])
}

// CreatedAt returns the report creation time, zero when absent.
func (r Record) CreatedAt() time.Time {
	t, _ := r[ColumnCreatedAt].(time.Time)
	return t
}

// Project returns a copy of r restricted to cols. Missing columns map to nil.
func (r Record) Project(cols []string) Record {
	out := make(Record, len(cols))
	for _, c := range cols {
		out[c] = r[c]
	}
	return out
}

// WithScore sets the score and raw payload columns of one bureau.
func (r Record) WithScore(code bureau.Code, score *int, raw json.RawMessage) Record {
	if score == nil {
		r[code.ScoreColumn()] = nil
	} else {
		s := *score
		r[code.ScoreColumn()] = &s
	}
	if raw == nil {
		r[code.RawDataColumn()] = nil
	} else {
		r[code.RawDataColumn()] = raw
	}
	return r
}

func scoreValue(v any) *int {
	switch t := v.(type) {
	case *int:
		if t == nil {
			return nil
		}
		s := *t
		return &s
	case int:
		return &t
	case int64:
		s := int(t)
		return &s
	case float64:
		s := int(math.Round(t))
		return &s
	default:
		return nil
	}
}

func rawValue(v any) json.RawMessage {
	switch t := v.(type) {
	case json.RawMessage:
		if len(t) == 0 {
			return nil
		}
		return t
	case []byte:
		if len(t) == 0 {
			return nil
		}
		return json.RawMessage(t)
	case string:
		if t == "" {
			return nil
		}
		return json.RawMessage(t)
	default:
		return nil
	}
}

func listValue(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []bureau.Code:
		out := make([]string, len(t))
		for i, c := range t {
			out[i] = c.String()
		}
		return out
	default:
		return nil
	}
}
