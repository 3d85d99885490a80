package fraud

import "regexp"

// pattern is one scam/solicitation signature, matched against lowercased
// text.
type pattern struct {
	name string
	re   *regexp.Regexp
}

// suspiciousPatterns is ordered: the first profilePatternCount entries are
// the money-transfer signatures also applied to profile bios.
var suspiciousPatterns = []pattern{
	{"money_transfer", regexp.MustCompile(`envo(?:i|y)(?:e|ez|er)?\s*(?:de\s+l'|d'|de\s+)?argent`)},
	{"western_union", regexp.MustCompile(`western\s*union`)},
	{"moneygram", regexp.MustCompile(`money\s*gram`)},
	{"credit_card", regexp.MustCompile(`carte\s*(?:de\s*)?cr[eé]dit`)},
	{"account_number", regexp.MustCompile(`num[eé]ro\s*(?:de\s*)?compte`)},
	{"crypto", regexp.MustCompile(`bitcoin|crypto`)},
	{"investment", regexp.MustCompile(`investis`)},
	{"inheritance", regexp.MustCompile(`h[eé]ritage`)},
	{"lottery", regexp.MustCompile(`loterie`)},
	{"winner", regexp.MustCompile(`gagnant`)},
	{"dollar_amount", regexp.MustCompile(`\$\d+`)},
	{"euro_amount", regexp.MustCompile(`€\d+`)},
	{"urgency", regexp.MustCompile(`urgent|maintenant|imm[eé]diatement`)},
	{"secret", regexp.MustCompile(`secret`)},
	{"off_platform", regexp.MustCompile(`whatsapp|telegram|viber`)},
	{"phone_number", regexp.MustCompile(`\+\d{10,}`)},
}

const profilePatternCount = 5
