// Package phone canonicalizes local-format phone numbers to international
// format for the gateway.
package phone

// Rule describes a national numbering plan: local numbers of LocalLength
// characters starting with TrunkPrefix get the prefix replaced by
// CountryCode.
type Rule struct {
	CountryCode string
	LocalLength int
	TrunkPrefix byte
}

// DefaultRule is the South African plan: 10-digit local numbers with a
// leading zero become 27-prefixed.
func DefaultRule() Rule {
	return Rule{CountryCode: "27", LocalLength: 10, TrunkPrefix: '0'}
}

// Normalizer rewrites local-format numbers to international format.
// The zero value uses DefaultRule.
type Normalizer struct {
	rule Rule
}

func NewNormalizer(rule Rule) Normalizer {
	if rule.CountryCode == "" {
		rule.CountryCode = DefaultRule().CountryCode
	}
	if rule.LocalLength <= 0 {
		rule.LocalLength = DefaultRule().LocalLength
	}
	if rule.TrunkPrefix == 0 {
		rule.TrunkPrefix = DefaultRule().TrunkPrefix
	}
	return Normalizer{rule: rule}
}

// Normalize replaces the trunk prefix with the country code when the input
// matches the rule, and returns any other input unchanged. It performs no
// digit validation and is idempotent.
func (n Normalizer) Normalize(raw string) string {
	rule := n.rule
	if rule.LocalLength == 0 {
		rule = DefaultRule()
	}
	if len(raw) != rule.LocalLength || raw[0] != rule.TrunkPrefix {
		return raw
	}
	return rule.CountryCode + raw[1:]
}
