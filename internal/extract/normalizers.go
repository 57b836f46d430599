package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var reNonDigit = regexp.MustCompile(`\D`)

func onlyDigits(value string) string {
	return reNonDigit.ReplaceAllString(value, "")
}

var reNormalizeSpace = regexp.MustCompile(`\s{2,}`)

func normalizeSpace(value string) string {
	return strings.TrimSpace(reNormalizeSpace.ReplaceAllString(value, " "))
}

// parseDate converts a dd/mm/yyyy (or dd-mm-yy, dd.mm.yyyy, ...) capture to
// an ISO 8601 date string.
func parseDate(value string) (string, bool) {
	cleaned := strings.NewReplacer("-", "/", ".", "/").Replace(strings.TrimSpace(value))
	for _, layout := range []string{"2/1/2006", "2/1/06"} {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// parseAmount converts a pt-BR currency capture ("1.234,56") to a canonical
// fixed-point decimal string ("1234.56").
func parseAmount(value string) (string, bool) {
	cleaned := strings.TrimSpace(value)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', 2, 64), true
}

func amountValue(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	return v, err == nil
}

// parsePhone canonicalizes a Brazilian phone capture to dial digits with the
// country code, the form messaging links (wa.me/<digits>) expect.
func parsePhone(value string) (string, bool) {
	digits := onlyDigits(value)
	digits = strings.TrimPrefix(digits, "0")
	switch {
	case (len(digits) == 12 || len(digits) == 13) && strings.HasPrefix(digits, "55"):
		return digits, true
	case len(digits) == 10 || len(digits) == 11:
		return "55" + digits, true
	}
	return "", false
}

// parseYears bounds-checks an integer capture; out-of-range captures are
// treated as no match, not as a hard error.
func parseYears(value string, min, max int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < min || n > max {
		return 0, false
	}
	return n, true
}

// isValidCPF runs the CPF check-digit algorithm over an 11-digit string.
func isValidCPF(digits string) bool {
	if len(digits) != 11 || allSame(digits) {
		return false
	}
	for i := 9; i < 11; i++ {
		total := 0
		for pos := 0; pos < i; pos++ {
			total += int(digits[pos]-'0') * (i + 1 - pos)
		}
		check := (total * 10) % 11
		if check == 10 {
			check = 0
		}
		if check != int(digits[i]-'0') {
			return false
		}
	}
	return true
}

var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// isValidCNPJ runs the CNPJ check-digit algorithm over a 14-digit string.
func isValidCNPJ(digits string) bool {
	if len(digits) != 14 || allSame(digits) {
		return false
	}
	check := func(weights []int) int {
		total := 0
		for i, w := range weights {
			total += int(digits[i]-'0') * w
		}
		rem := total % 11
		if rem < 2 {
			return 0
		}
		return 11 - rem
	}
	return int(digits[12]-'0') == check(cnpjWeights1) && int(digits[13]-'0') == check(cnpjWeights2)
}

func allSame(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

func formatCPF(d string) string {
	return fmt.Sprintf("%s.%s.%s-%s", d[:3], d[3:6], d[6:9], d[9:])
}

func formatCNPJ(d string) string {
	return fmt.Sprintf("%s.%s.%s/%s-%s", d[:2], d[2:5], d[5:8], d[8:12], d[12:])
}
