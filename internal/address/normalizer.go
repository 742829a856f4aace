// Package address maps human-entered phone numbers onto messaging network
// addresses.
//
// Brazilian mobile numbers exist on the network in both the legacy 8-digit
// and the current 9-digit form, and which one an account was registered with
// cannot be known without asking the network. Candidates therefore returns
// every plausible form, most likely first, for the sender to probe in order.
package address

import (
	"strings"
	"unicode"
)

// DefaultDomain is the address domain for individual accounts.
const DefaultDomain = "s.whatsapp.net"

const (
	brazilCountryCode = "55"
	groupSuffix       = "@g.us"
	broadcastSuffix   = "@broadcast"
)

// Normalizer builds address candidates for a fixed domain.
type Normalizer struct {
	Domain string
}

// NewNormalizer returns a Normalizer for domain, or DefaultDomain when empty.
func NewNormalizer(domain string) Normalizer {
	domain = strings.TrimPrefix(strings.TrimSpace(domain), "@")
	if domain == "" {
		domain = DefaultDomain
	}
	return Normalizer{Domain: domain}
}

// Candidates returns the ordered candidate addresses for raw. The address
// built from the digits as given always comes first. An input without digits
// yields no candidates.
func (n Normalizer) Candidates(raw string) []string {
	digits := Digits(raw)
	if digits == "" {
		return nil
	}

	candidates := []string{n.Address(digits)}
	if alt, ok := alternateBrazilianMobile(digits); ok {
		candidates = append(candidates, n.Address(alt))
	}
	return candidates
}

// Address formats digits as an address in the normalizer's domain.
func (n Normalizer) Address(digits string) string {
	domain := n.Domain
	if domain == "" {
		domain = DefaultDomain
	}
	return digits + "@" + domain
}

// alternateBrazilianMobile returns the other-length form of a Brazilian
// mobile number: 55 + 2-digit area code + 8 or 9 digit subscriber.
func alternateBrazilianMobile(digits string) (string, bool) {
	if !strings.HasPrefix(digits, brazilCountryCode) {
		return "", false
	}
	if len(digits) != 12 && len(digits) != 13 {
		return "", false
	}

	area := digits[2:4]
	subscriber := digits[4:]

	switch {
	case len(subscriber) == 9 && subscriber[0] == '9':
		return brazilCountryCode + area + subscriber[1:], true
	case len(subscriber) == 8:
		return brazilCountryCode + area + "9" + subscriber, true
	default:
		return "", false
	}
}

// Digits strips every non-digit character from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsGroup reports whether addr is a group chat address.
func IsGroup(addr string) bool {
	return strings.HasSuffix(addr, groupSuffix)
}

// IsBroadcast reports whether addr is a broadcast list or status address.
func IsBroadcast(addr string) bool {
	return strings.HasSuffix(addr, broadcastSuffix)
}

// PhoneFromAddress returns the user part of addr, without domain or device suffix.
func PhoneFromAddress(addr string) string {
	user, _, _ := strings.Cut(addr, "@")
	user, _, _ = strings.Cut(user, ":")
	return user
}
