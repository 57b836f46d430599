package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/paperflow/constants"
	"github.com/joseph-ayodele/paperflow/internal/search"
)

// A Rule ties one declared field to a pattern and a normalizer. Rules for a
// field run in declared order; the first whose Match fires and whose Assign
// accepts the capture wins. An Assign returning false (malformed capture) is
// a plain no-match: later rules for the field still run, other fields are
// unaffected.
type Rule struct {
	Field  string
	Match  func(text string) (string, bool)
	Assign func(f *Fields, raw string) bool
}

var (
	reDueDate = regexp.MustCompile(`(?i)(vencimento|vcto|vencto|data de vencimento)\D{0,20}([0-3]?\d[./-][01]?\d[./-](?:\d{4}|\d{2}))`)
	reIssue   = regexp.MustCompile(`(?i)(emissao|data de emissao)\D{0,20}([0-3]?\d[./-][01]?\d[./-](?:\d{4}|\d{2}))`)

	reAmountLabel = regexp.MustCompile(`(?i)(valor(?: do documento)?|valor cobrado|valor a pagar|total)\D{0,20}([0-9.]+,[0-9]{2})`)
	reAmount      = regexp.MustCompile(`[0-9]{1,3}(?:\.[0-9]{3})*,[0-9]{2}`)
	reInterest    = regexp.MustCompile(`(?i)(juros)\D{0,20}([0-9.]+,[0-9]{2})`)
	reFine        = regexp.MustCompile(`(?i)(multa)\D{0,20}([0-9.]+,[0-9]{2})`)

	reCPF  = regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b|\b\d{11}\b`)
	reCNPJ = regexp.MustCompile(`\b\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}\b|\b\d{14}\b`)

	// The leading \b keeps the pattern from latching onto the tail of a
	// longer digit run (barcodes, digitable lines, CNPJs).
	rePhone = regexp.MustCompile(`\b(?:\+?55[\s.-]?)?\(?0?\d{2}\)?[\s.-]?9?\d{4}[\s.-]?\d{4}\b`)

	reAgeLabel  = regexp.MustCompile(`(?i)idade\D{0,10}(\d{1,3})`)
	reAgeYears  = regexp.MustCompile(`(?i)\b(\d{1,2})\s*anos de idade\b`)
	reExpYears  = regexp.MustCompile(`(?i)\b(\d{1,2})\s*anos? de experiencia\b`)
	reExpLabel  = regexp.MustCompile(`(?i)experiencia(?: profissional)?\D{0,20}(\d{1,2})\s*anos?\b`)
	reAmountCtx = []string{"valor", "total", "a pagar", "pagar", "documento"}

	// Boleto digitable line (47/48 digits in banker grouping) and raw
	// 44-digit barcode candidates.
	reLine47    = regexp.MustCompile(`\b(\d{5})\.(\d{5})\s+(\d{5})\.(\d{6})\s+(\d{5})\.(\d{6})\s+(\d)\s+(\d{14})\b`)
	reLine48    = regexp.MustCompile(`\b(\d{12})[\s.]+(\d{12})[\s.]+(\d{12})[\s.]+(\d{12})\b`)
	reLineLoose = regexp.MustCompile(`(?:\d[\s.-]?){44,48}`)

	// Line-oriented label sets for the named-party and address fields.
	// Labels and values are compared against folded, lowercased lines.
	addressLabels   = []string{"endereco de cobranca", "endereco", "cobranca"}
	addressKeywords = []string{
		"rua", "avenida", "av ", "av.", "alameda", "travessa",
		"rodovia", "estrada", "praca", "logradouro", "lote", "quadra",
	}

	payeeLabels = []string{"cedente", "beneficiario", "favorecido", "recebedor"}
	payerLabels = []string{"sacado", "pagador", "cliente"}

	// Lines carrying these terms are boleto form furniture, not names.
	payeeSkipTerms = []string{
		"autenticacao mecanica", "beneficiario", "data do documento",
		"nosso numero", "local de pagamento", "numero do documento",
		"recibo do pagador", "agencia", "banco", "carteira", "vencimento",
		"valor", "pagamento", "sacado", "pagador", "cliente", "cpf", "cnpj",
		"i.e.", "ie:", "inscricao estadual",
	}

	instructionKeywords = []string{
		"instrucao", "instrucoes", "juros", "multa", "protesto",
		"apos", "nao receber", "nao aceitar",
	}

	reCompanySuffix = regexp.MustCompile(`(?i)\b([a-z][\w .&-]{3,}(?:s\.a\.?|s/a|ltda|eireli|epp|mei|me))\b`)

	reDocNumber = []*regexp.Regexp{
		regexp.MustCompile(`(?i)nosso numero\D{0,10}([0-9A-Z/.-]{4,})`),
		regexp.MustCompile(`(?i)numero do documento\D{0,10}([0-9A-Z/.-]{4,})`),
		regexp.MustCompile(`(?i)numero da conta\D{0,10}(\d{6,})`),
		regexp.MustCompile(`(?i)nfs-e\D{0,10}([0-9A-Z/.-]{4,})`),
		regexp.MustCompile(`(?i)fatura\D{0,10}([0-9A-Z/.-]{4,})`),
		regexp.MustCompile(`(?i)documento\D{0,10}([0-9A-Z/.-]{4,})`),
	}
)

// group returns a Match over one capture group of a pattern.
func group(re *regexp.Regexp, n int) func(string) (string, bool) {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		return m[n], true
	}
}

func setString(set func(*Fields, string)) func(*Fields, string) bool {
	return func(f *Fields, raw string) bool {
		set(f, raw)
		return true
	}
}

func viaAmount(set func(*Fields, string)) func(*Fields, string) bool {
	return func(f *Fields, raw string) bool {
		v, ok := parseAmount(raw)
		if !ok {
			return false
		}
		set(f, v)
		return true
	}
}

func viaDate(set func(*Fields, string)) func(*Fields, string) bool {
	return func(f *Fields, raw string) bool {
		v, ok := parseDate(raw)
		if !ok {
			return false
		}
		set(f, v)
		return true
	}
}

func viaYears(min, max int, set func(*Fields, int)) func(*Fields, string) bool {
	return func(f *Fields, raw string) bool {
		n, ok := parseYears(raw, min, max)
		if !ok {
			return false
		}
		set(f, n)
		return true
	}
}

// Rules is the ordered extraction table. Adding a field means adding entries
// here; nothing else in the pipeline changes.
var Rules = []Rule{
	{constants.FieldDueDate, group(reDueDate, 2), viaDate(func(f *Fields, v string) { f.DueDate = v })},
	{constants.FieldIssueDate, group(reIssue, 2), viaDate(func(f *Fields, v string) { f.IssueDate = v })},

	{constants.FieldAmount, group(reAmountLabel, 2), viaAmount(func(f *Fields, v string) { f.Amount = v })},
	{constants.FieldAmount, matchAmountByContext, setString(func(f *Fields, v string) { f.Amount = v })},
	{constants.FieldInterestAmount, group(reInterest, 2), viaAmount(func(f *Fields, v string) { f.InterestAmount = v })},
	{constants.FieldFineAmount, group(reFine, 2), viaAmount(func(f *Fields, v string) { f.FineAmount = v })},

	{constants.FieldDigitableLine, matchDigitableLine, setString(func(f *Fields, v string) { f.DigitableLine = v })},
	{constants.FieldBarcode, matchBarcode, setString(func(f *Fields, v string) { f.Barcode = v })},

	{constants.FieldCPF, matchCPF, setString(func(f *Fields, v string) { f.CPF = v })},
	{constants.FieldCNPJ, matchCNPJ, setString(func(f *Fields, v string) { f.CNPJ = v })},
	{constants.FieldDocumentNumber, matchDocumentNumber, setString(func(f *Fields, v string) { f.DocumentNumber = v })},

	{constants.FieldPayeeName, matchPayeeName, setString(func(f *Fields, v string) { f.PayeeName = v })},
	{constants.FieldPayerName, matchPayerName, setString(func(f *Fields, v string) { f.PayerName = v })},
	{constants.FieldBillingAddress, matchBillingAddress, setString(func(f *Fields, v string) { f.BillingAddress = v })},
	{constants.FieldInstructions, matchInstructions, setString(func(f *Fields, v string) { f.Instructions = v })},

	{constants.FieldContactPhone, group(rePhone, 0), func(f *Fields, raw string) bool {
		v, ok := parsePhone(raw)
		if !ok {
			return false
		}
		f.ContactPhone = v
		return true
	}},

	{constants.FieldAgeYears, group(reAgeLabel, 1), viaYears(14, 99, func(f *Fields, n int) { f.AgeYears = &n })},
	{constants.FieldAgeYears, group(reAgeYears, 1), viaYears(14, 99, func(f *Fields, n int) { f.AgeYears = &n })},
	{constants.FieldExperienceYears, group(reExpYears, 1), viaYears(0, 60, func(f *Fields, n int) { f.ExperienceYears = &n })},
	{constants.FieldExperienceYears, group(reExpLabel, 1), viaYears(0, 60, func(f *Fields, n int) { f.ExperienceYears = &n })},
}

// Extract applies the rule table to raw text and returns the clean record
// plus a per-field match report. No field's absence blocks any other field.
func Extract(text string) (Fields, Report) {
	folded := search.Fold(text)
	var fields Fields
	matched := make(map[string]bool, len(constants.FieldKeys))
	for _, rule := range Rules {
		if matched[rule.Field] {
			continue
		}
		raw, ok := rule.Match(folded)
		if !ok {
			continue
		}
		if rule.Assign(&fields, raw) {
			matched[rule.Field] = true
		}
	}
	return fields, buildReport(matched)
}

// matchAmountByContext is the fallback amount heuristic: prefer the largest
// amount on lines carrying payment context words, then the largest anywhere.
func matchAmountByContext(text string) (string, bool) {
	best := func(candidates []string) (string, bool) {
		var out string
		var outV float64
		for _, c := range candidates {
			v, ok := amountValue(c)
			if !ok {
				continue
			}
			if out == "" || v > outV {
				if s, ok := parseAmount(c); ok {
					out, outV = s, v
				}
			}
		}
		return out, out != ""
	}

	var contextual []string
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		hasCtx := false
		for _, term := range reAmountCtx {
			if strings.Contains(lower, term) {
				hasCtx = true
				break
			}
		}
		if hasCtx {
			contextual = append(contextual, reAmount.FindAllString(line, -1)...)
		}
	}
	if v, ok := best(contextual); ok {
		return v, true
	}
	return best(reAmount.FindAllString(text, -1))
}

func matchCPF(text string) (string, bool) {
	for _, m := range reCPF.FindAllString(text, -1) {
		digits := onlyDigits(m)
		if isValidCPF(digits) {
			return formatCPF(digits), true
		}
	}
	return "", false
}

func matchCNPJ(text string) (string, bool) {
	for _, m := range reCNPJ.FindAllString(text, -1) {
		digits := onlyDigits(m)
		if isValidCNPJ(digits) {
			return formatCNPJ(digits), true
		}
	}
	return "", false
}

// lineCandidates collects unique digit strings that look like a digitable
// line (47/48) or barcode (44), preserving discovery order.
func lineCandidates(text string) []string {
	var candidates []string
	seen := make(map[string]struct{})
	add := func(digits string) {
		if _, dup := seen[digits]; dup {
			return
		}
		seen[digits] = struct{}{}
		candidates = append(candidates, digits)
	}
	for _, m := range reLine47.FindAllStringSubmatch(text, -1) {
		digits := strings.Join(m[1:], "")
		if len(digits) == 47 {
			add(digits)
		}
	}
	for _, m := range reLine48.FindAllStringSubmatch(text, -1) {
		digits := strings.Join(m[1:], "")
		if len(digits) == 48 {
			add(digits)
		}
	}
	for _, line := range strings.Split(text, "\n") {
		for _, m := range reLineLoose.FindAllString(line, -1) {
			digits := onlyDigits(m)
			if len(digits) == 44 || len(digits) == 47 || len(digits) == 48 {
				add(digits)
			}
		}
	}
	return candidates
}

func matchDigitableLine(text string) (string, bool) {
	for _, c := range lineCandidates(text) {
		if len(c) == 47 || len(c) == 48 {
			return c, true
		}
	}
	return "", false
}

func matchBarcode(text string) (string, bool) {
	for _, c := range lineCandidates(text) {
		if len(c) == 44 {
			return c, true
		}
	}
	return "", false
}

var reAnySpace = regexp.MustCompile(`\s+`)

// matchDocumentNumber walks the labeled patterns in priority order, skipping
// captures that are too short or that are really a CPF/CNPJ.
func matchDocumentNumber(text string) (string, bool) {
	compact := reAnySpace.ReplaceAllString(text, " ")
	for _, re := range reDocNumber {
		m := re.FindStringSubmatch(text)
		if m == nil {
			m = re.FindStringSubmatch(compact)
		}
		if m == nil {
			continue
		}
		value := normalizeSpace(m[1])
		digits := onlyDigits(value)
		if len(value) < 5 || len(digits) < 5 {
			continue
		}
		if isValidCPF(digits) || isValidCNPJ(digits) {
			continue
		}
		return value, true
	}
	return "", false
}

func textLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func containsAny(value string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(value, term) {
			return true
		}
	}
	return false
}

// findLabeledValue returns the text after a label on the same line, or the
// whole following line when the label stands alone. Skip terms reject values
// that are themselves form labels.
func findLabeledValue(lines []string, labels, skip []string) (string, bool) {
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, label := range labels {
			idx := strings.Index(lower, label)
			if idx == -1 {
				continue
			}
			value := strings.Trim(line[idx+len(label):], " :-\t")
			if value != "" && !containsAny(strings.ToLower(value), skip) {
				return normalizeSpace(value), true
			}
			if i+1 < len(lines) {
				next := normalizeSpace(lines[i+1])
				if next != "" && !containsAny(strings.ToLower(next), skip) {
					return next, true
				}
			}
		}
	}
	return "", false
}

// looksLikeName filters candidates for the party-name fields: long enough,
// mostly letters, and not a line of boleto form furniture.
func looksLikeName(value string) bool {
	if len(strings.TrimSpace(value)) < 6 {
		return false
	}
	if containsAny(strings.ToLower(value), payeeSkipTerms) {
		return false
	}
	letters, digits := 0, 0
	for _, r := range value {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	if letters < 3 {
		return false
	}
	return digits == 0 || digits < letters
}

func matchBillingAddress(text string) (string, bool) {
	lines := textLines(text)
	if v, ok := findLabeledValue(lines, addressLabels, nil); ok {
		return v, true
	}
	for _, line := range lines {
		if !containsAny(strings.ToLower(line), addressKeywords) {
			continue
		}
		if !strings.ContainsAny(line, "0123456789") {
			continue
		}
		return normalizeSpace(line), true
	}
	return "", false
}

// matchPayeeName walks a chain of heuristics: labeled value, lines following
// a label, lines preceding a "cnpj matriz" marker, then any line ending in a
// company suffix.
func matchPayeeName(text string) (string, bool) {
	lines := textLines(text)
	if v, ok := findLabeledValue(lines, payeeLabels, payeeSkipTerms); ok && looksLikeName(v) {
		return v, true
	}

	lowers := make([]string, len(lines))
	for i, line := range lines {
		lowers[i] = strings.ToLower(line)
	}
	for i, lower := range lowers {
		if !containsAny(lower, payeeLabels) {
			continue
		}
		for off := 1; off <= 3 && i+off < len(lines); off++ {
			if candidate := normalizeSpace(lines[i+off]); looksLikeName(candidate) {
				return candidate, true
			}
		}
	}
	for i, lower := range lowers {
		if !strings.Contains(lower, "cnpj matriz") {
			continue
		}
		for back := 1; back <= 3 && i-back >= 0; back++ {
			if candidate := normalizeSpace(lines[i-back]); looksLikeName(candidate) {
				return candidate, true
			}
		}
	}
	for _, line := range lines {
		if m := reCompanySuffix.FindStringSubmatch(line); m != nil {
			if candidate := normalizeSpace(m[1]); looksLikeName(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

func matchPayerName(text string) (string, bool) {
	return findLabeledValue(textLines(text), payerLabels, nil)
}

// matchInstructions collects every line carrying an instruction keyword,
// deduplicated in document order, joined with " | ".
func matchInstructions(text string) (string, bool) {
	var selected []string
	seen := make(map[string]struct{})
	for _, line := range textLines(text) {
		if !containsAny(strings.ToLower(line), instructionKeywords) {
			continue
		}
		v := normalizeSpace(line)
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		selected = append(selected, v)
	}
	if len(selected) == 0 {
		return "", false
	}
	return strings.Join(selected, " | "), true
}
