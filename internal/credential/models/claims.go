package models

import (
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	id "zeropass/pkg/domain"
	dErrors "zeropass/pkg/domain-errors"
)

type DocumentType string

const (
	DocumentPassport       DocumentType = "passport"
	DocumentNationalID     DocumentType = "national_id"
	DocumentDriversLicense DocumentType = "drivers_license"
)

func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentPassport, DocumentNationalID, DocumentDriversLicense:
		return true
	}
	return false
}

const dateLayout = "2006-01-02"

// Claims are the identity attributes a user submits for KYC. They live only
// for the duration of a request.
type Claims struct {
	FullName     string
	DateOfBirth  time.Time
	Country      string
	DocumentType DocumentType
}

// NewClaims validates raw claim values against now.
func NewClaims(fullName, dateOfBirth, country, documentType string, now time.Time) (Claims, error) {
	name := strings.Join(strings.Fields(fullName), " ")
	if name == "" {
		return Claims{}, dErrors.New(dErrors.CodeValidation, "full_name is required")
	}
	dob, err := time.Parse(dateLayout, strings.TrimSpace(dateOfBirth))
	if err != nil {
		return Claims{}, dErrors.New(dErrors.CodeValidation, "date_of_birth must be YYYY-MM-DD")
	}
	if dob.After(now) {
		return Claims{}, dErrors.New(dErrors.CodeValidation, "date_of_birth is in the future")
	}
	if !id.IsOver18(dob, now) {
		return Claims{}, dErrors.New(dErrors.CodePolicyViolation, "applicant must be at least 18 years old")
	}
	cc := strings.ToUpper(strings.TrimSpace(country))
	if !isAlpha2(cc) {
		return Claims{}, dErrors.New(dErrors.CodeValidation, "country must be an ISO 3166 alpha-2 code")
	}
	doc := DocumentType(strings.ToLower(strings.TrimSpace(documentType)))
	if !doc.IsValid() {
		return Claims{}, dErrors.New(dErrors.CodeValidation, "document_type must be passport, national_id or drivers_license")
	}
	return Claims{FullName: name, DateOfBirth: dob, Country: cc, DocumentType: doc}, nil
}

// Digest is the hex SHA3-256 of the canonical claim string. Names compare
// case-insensitively.
func (c Claims) Digest() string {
	canonical := strings.Join([]string{
		strings.ToLower(c.FullName),
		c.DateOfBirth.Format(dateLayout),
		c.Country,
		string(c.DocumentType),
	}, "|")
	sum := sha3.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func isAlpha2(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
