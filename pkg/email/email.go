// Package email classifies company email addresses.
package email

import (
	"net/mail"
	"strings"
)

// ProviderClass describes who hosts a mailbox.
type ProviderClass string

const (
	// ProviderFree is a consumer webmail service (gmail.com, hotmail.com, ...).
	ProviderFree ProviderClass = "free"
	// ProviderCustom is a mailbox on the company's own domain.
	ProviderCustom ProviderClass = "custom"
	// ProviderUnknown means no usable address was available.
	ProviderUnknown ProviderClass = "unknown"
)

// freeDomains are consumer webmail domains common among Norwegian small businesses.
var freeDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"hotmail.com":    {},
	"hotmail.no":     {},
	"live.no":        {},
	"live.com":       {},
	"outlook.com":    {},
	"msn.com":        {},
	"yahoo.com":      {},
	"yahoo.no":       {},
	"icloud.com":     {},
	"me.com":         {},
	"online.no":      {},
	"start.no":       {},
	"frisurf.no":     {},
	"c2i.net":        {},
}

// Domain returns the lower-cased domain part of an address, or "" when the
// address cannot be parsed.
func Domain(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	if parsed, err := mail.ParseAddress(address); err == nil {
		address = parsed.Address
	}
	at := strings.LastIndexByte(address, '@')
	if at <= 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

// IsFreeDomain reports whether domain belongs to a consumer webmail provider.
func IsFreeDomain(domain string) bool {
	_, ok := freeDomains[strings.ToLower(strings.TrimSpace(domain))]
	return ok
}

// Classify returns the provider class of an address.
func Classify(address string) ProviderClass {
	d := Domain(address)
	switch {
	case d == "":
		return ProviderUnknown
	case IsFreeDomain(d):
		return ProviderFree
	default:
		return ProviderCustom
	}
}
