// Package bureau defines the four credit bureaus, the entitlement predicate
// that gates access to them, and score aggregation across them.
package bureau

import (
	"fmt"
	"strings"
)

// Code identifies a credit bureau. Values are lower-case and double as the
// prefix/suffix of the record store columns ({code}_score, raw_{code}_data).
type Code string

const (
	CIBIL    Code = "cibil"
	Experian Code = "experian"
	Equifax  Code = "equifax"
	CRIF     Code = "crif"
)

// priority is the fixed order used to pick a default bureau.
var priority = []Code{CIBIL, Experian, Equifax, CRIF}

var displayNames = map[Code]string{
	CIBIL:    "TransUnion CIBIL",
	Experian: "Experian",
	Equifax:  "Equifax",
	CRIF:     "CRIF High Mark",
}

// Codes returns all bureaus in priority order. The slice is a copy.
func Codes() []Code {
	return append([]Code(nil), priority...)
}

// ParseCode accepts any casing and surrounding whitespace.
func ParseCode(s string) (Code, error) {
	c := Code(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown bureau %q", s)
	}
	return c, nil
}

func (c Code) Valid() bool {
	_, ok := displayNames[c]
	return ok
}

func (c Code) String() string {
	return string(c)
}

// DisplayName is the bureau's brand name as printed on report headers.
func (c Code) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return strings.ToUpper(string(c))
}

// ScoreColumn is the record store column holding the bureau score.
func (c Code) ScoreColumn() string {
	return string(c) + "_score"
}

// RawDataColumn is the record store column holding the raw bureau payload.
func (c Code) RawDataColumn() string {
	return "raw_" + string(c) + "_data"
}
