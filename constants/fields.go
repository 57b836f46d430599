package constants

// Declared extraction field keys. These are the only keys that may appear in
// extracted_json; a field that did not match is omitted, never null.
const (
	FieldDueDate         = "due_date"
	FieldIssueDate       = "issue_date"
	FieldAmount          = "amount"
	FieldInterestAmount  = "interest_amount"
	FieldFineAmount      = "fine_amount"
	FieldDigitableLine   = "digitable_line"
	FieldBarcode         = "barcode"
	FieldCPF             = "cpf"
	FieldCNPJ            = "cnpj"
	FieldDocumentNumber  = "document_number"
	FieldPayeeName       = "payee_name"
	FieldPayerName       = "payer_name"
	FieldBillingAddress  = "billing_address"
	FieldInstructions    = "instructions"
	FieldContactPhone    = "contact_phone"
	FieldAgeYears        = "age_years"
	FieldExperienceYears = "experience_years"
)

// FieldKeys lists every declared field in a stable order.
var FieldKeys = []string{
	FieldDueDate,
	FieldIssueDate,
	FieldAmount,
	FieldInterestAmount,
	FieldFineAmount,
	FieldDigitableLine,
	FieldBarcode,
	FieldCPF,
	FieldCNPJ,
	FieldDocumentNumber,
	FieldPayeeName,
	FieldPayerName,
	FieldBillingAddress,
	FieldInstructions,
	FieldContactPhone,
	FieldAgeYears,
	FieldExperienceYears,
}
