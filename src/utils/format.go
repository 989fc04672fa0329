package utils

import (
	"fmt"
	"strings"
)

// NormalizePhone strips formatting from a Brazilian phone number and
// drops the leading 55 country code when present. The result is the
// digits-only form used as the participant lookup key.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) >= 12 && strings.HasPrefix(digits, "55") {
		digits = digits[2:]
	}
	return digits
}

// FormatPhone renders a normalized phone as (DD) NNNNN-NNNN. Inputs that
// are not 10 or 11 digits are returned unchanged.
func FormatPhone(phone string) string {
	digits := NormalizePhone(phone)
	switch len(digits) {
	case 11:
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:7], digits[7:])
	case 10:
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:6], digits[6:])
	default:
		return phone
	}
}

// NormalizeCPF strips formatting from a CPF, keeping digits only.
func NormalizeCPF(cpf string) string {
	var b strings.Builder
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF checks the two CPF verification digits.
func ValidCPF(cpf string) bool {
	digits := NormalizeCPF(cpf)
	if len(digits) != 11 {
		return false
	}
	allSame := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}
	check := func(limit int) int {
		sum := 0
		for i := 0; i < limit; i++ {
			sum += int(digits[i]-'0') * (limit + 1 - i)
		}
		rest := sum * 10 % 11
		if rest == 10 {
			rest = 0
		}
		return rest
	}
	if check(9) != int(digits[9]-'0') {
		return false
	}
	return check(10) == int(digits[10]-'0')
}
