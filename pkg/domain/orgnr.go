package domain

import (
	"errors"
	"regexp"
	"strings"
)

// OrgNumber is a validated Norwegian organization number, the canonical key
// for a company across the registry, the cache and the CRM.
//
// Invariants:
//   - Exactly nine digits
//   - The ninth digit is the modulus-11 check digit of the first eight
type OrgNumber struct {
	value string
}

var orgNumberPattern = regexp.MustCompile(`^\d{9}$`)

var checkWeights = [8]int{3, 2, 7, 6, 5, 4, 3, 2}

// ErrInvalidOrgNumber indicates the value is not a well-formed organization number.
var ErrInvalidOrgNumber = errors.New("invalid organization number: must be 9 digits with a valid check digit")

// ParseOrgNumber validates and wraps an organization number. Spaces are
// stripped first, so "923 609 016" is accepted.
func ParseOrgNumber(value string) (OrgNumber, error) {
	v := strings.ReplaceAll(strings.TrimSpace(value), " ", "")
	if !orgNumberPattern.MatchString(v) {
		return OrgNumber{}, ErrInvalidOrgNumber
	}
	if !validCheckDigit(v) {
		return OrgNumber{}, ErrInvalidOrgNumber
	}
	return OrgNumber{value: v}, nil
}

// MustOrgNumber creates an OrgNumber, panicking if invalid.
// Use only in tests or when the value is known to be valid.
func MustOrgNumber(value string) OrgNumber {
	n, err := ParseOrgNumber(value)
	if err != nil {
		panic(err)
	}
	return n
}

// LooksLikeOrgNumber reports whether value is shaped like an organization
// number, without checking the check digit.
func LooksLikeOrgNumber(value string) bool {
	return orgNumberPattern.MatchString(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
}

func (n OrgNumber) String() string {
	return n.value
}

func (n OrgNumber) IsZero() bool {
	return n.value == ""
}

// RegistryURL is the public Brønnøysund lookup page for this organization.
func (n OrgNumber) RegistryURL() string {
	return "https://virksomhet.brreg.no/nb/oppslag/enheter/" + n.value
}

func validCheckDigit(v string) bool {
	sum := 0
	for i, w := range checkWeights {
		sum += int(v[i]-'0') * w
	}
	rem := sum % 11
	check := 0
	if rem != 0 {
		check = 11 - rem
	}
	// A computed check digit of 10 means the number can never be issued.
	if check == 10 {
		return false
	}
	return int(v[8]-'0') == check
}

// CompanyIdentity links a resolved organization number to the CRM record
// it was resolved for. The organization number is immutable once set.
type CompanyIdentity struct {
	OrgNumber OrgNumber
	RecordID  string
}
