// Package provider defines the remote bureau call: the applicant request, the
// raw response, the normalized error taxonomy and an optional response cache
// in front of any Fetcher.
package provider

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"creditlens/internal/bureau"
)

var panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

// Request carries the applicant details a bureau needs to locate a file.
type Request struct {
	FullName     string `json:"fullName"`
	PAN          string `json:"panNumber"`
	MobileNumber string `json:"mobileNumber"`
	DateOfBirth  string `json:"dateOfBirth,omitempty"`
	Gender       string `json:"gender,omitempty"`
}

// Normalize trims fields and upper-cases the PAN.
func (r Request) Normalize() Request {
	return Request{
		FullName:     strings.Join(strings.Fields(r.FullName), " "),
		PAN:          strings.ToUpper(strings.TrimSpace(r.PAN)),
		MobileNumber: strings.TrimSpace(r.MobileNumber),
		DateOfBirth:  strings.TrimSpace(r.DateOfBirth),
		Gender:       strings.TrimSpace(r.Gender),
	}
}

// Validate checks the mandatory fields of a normalized request.
func (r Request) Validate() error {
	switch {
	case r.FullName == "":
		return fmt.Errorf("full name is required")
	case !panPattern.MatchString(r.PAN):
		return fmt.Errorf("pan number %q is malformed", r.PAN)
	case r.MobileNumber == "":
		return fmt.Errorf("mobile number is required")
	}
	return nil
}

// Response is a bureau payload as received, plus the score read from it.
type Response struct {
	Bureau    bureau.Code     `json:"bureau"`
	Score     *int            `json:"score"`
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
	Sandbox   bool            `json:"sandbox"`
}

// Fetcher pulls a fresh report from one bureau.
type Fetcher interface {
	Bureau() bureau.Code
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// CacheKey derives the response cache key for an applicant. The PAN is
// digested so it never appears in the key space.
func CacheKey(code bureau.Code, pan string) string {
	sum := blake2b.Sum256([]byte(strings.ToUpper(strings.TrimSpace(pan))))
	return "creditlens:vendor:" + code.String() + ":" + hex.EncodeToString(sum[:16])
}
