package extract

import (
	"encoding/json"

	"github.com/joseph-ayodele/paperflow/constants"
)

// Fields is the typed extraction record. Every field is optional: a field the
// rules did not match is omitted from the marshaled JSON, never emitted as a
// null placeholder. Marshaling is deterministic, so reprocessing identical
// text with an identical rule set yields byte-identical JSON.
type Fields struct {
	DueDate         string `json:"due_date,omitempty"`
	IssueDate       string `json:"issue_date,omitempty"`
	Amount          string `json:"amount,omitempty"`
	InterestAmount  string `json:"interest_amount,omitempty"`
	FineAmount      string `json:"fine_amount,omitempty"`
	DigitableLine   string `json:"digitable_line,omitempty"`
	Barcode         string `json:"barcode,omitempty"`
	CPF             string `json:"cpf,omitempty"`
	CNPJ            string `json:"cnpj,omitempty"`
	DocumentNumber  string `json:"document_number,omitempty"`
	PayeeName       string `json:"payee_name,omitempty"`
	PayerName       string `json:"payer_name,omitempty"`
	BillingAddress  string `json:"billing_address,omitempty"`
	Instructions    string `json:"instructions,omitempty"`
	ContactPhone    string `json:"contact_phone,omitempty"`
	AgeYears        *int   `json:"age_years,omitempty"`
	ExperienceYears *int   `json:"experience_years,omitempty"`
}

// Marshal is the canonical serialization committed to storage.
func (f Fields) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

// TextValues returns the textual field values that feed the search blob,
// in declared order.
func (f Fields) TextValues() []string {
	var out []string
	for _, v := range []string{
		f.DueDate, f.IssueDate, f.Amount,
		f.DigitableLine, f.Barcode,
		f.CPF, f.CNPJ, f.DocumentNumber,
		f.PayeeName, f.PayerName, f.BillingAddress, f.Instructions,
		f.ContactPhone,
	} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Report records which declared fields matched during one extraction pass.
type Report struct {
	Matched []string
	Missing []string
}

func buildReport(matched map[string]bool) Report {
	var rep Report
	for _, key := range constants.FieldKeys {
		if matched[key] {
			rep.Matched = append(rep.Matched, key)
		} else {
			rep.Missing = append(rep.Missing, key)
		}
	}
	return rep
}
