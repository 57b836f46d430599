package export

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/paperflow/internal/entity"
	"github.com/joseph-ayodele/paperflow/internal/extract"
)

// Service produces XLSX bytes for document exports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// DocumentsXLSX returns an XLSX workbook (as bytes) for the given documents,
// one row per document with the extracted fields flattened into columns.
func (s *Service) DocumentsXLSX(docs []*entity.Document) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Documents"
	// Rename the default sheet so the workbook carries no empty extras.
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Filename",
		"Status",
		"OCR Used",
		"Due Date",
		"Issue Date",
		"Amount",
		"Interest",
		"Fine",
		"CPF",
		"CNPJ",
		"Document Number",
		"Payee",
		"Payer",
		"Billing Address",
		"Instructions",
		"Contact Phone",
		"Age",
		"Experience (years)",
		"Uploaded At",
		"Processed At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, doc := range docs {
		fields := extract.Fields{}
		if doc.Extracted != nil {
			fields = *doc.Extracted
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, doc.OriginalFilename)
		write(2, string(doc.Status))
		write(3, doc.OCRUsed)
		write(4, fields.DueDate)
		write(5, fields.IssueDate)
		write(6, fields.Amount)
		write(7, fields.InterestAmount)
		write(8, fields.FineAmount)
		write(9, fields.CPF)
		write(10, fields.CNPJ)
		write(11, fields.DocumentNumber)
		write(12, fields.PayeeName)
		write(13, fields.PayerName)
		write(14, fields.BillingAddress)
		write(15, fields.Instructions)
		write(16, fields.ContactPhone)
		write(17, intOrBlank(fields.AgeYears))
		write(18, intOrBlank(fields.ExperienceYears))
		write(19, doc.UploadedAt.Format(time.RFC3339))
		if doc.ProcessedAt != nil {
			write(20, doc.ProcessedAt.Format(time.RFC3339))
		} else {
			write(20, "")
		}

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 36) // filename
	_ = f.SetColWidth(sheet, "D", "E", 12) // dates
	_ = f.SetColWidth(sheet, "F", "H", 12) // amounts
	_ = f.SetColWidth(sheet, "I", "K", 20) // identifiers
	_ = f.SetColWidth(sheet, "L", "O", 28) // names, address, instructions
	_ = f.SetColWidth(sheet, "S", "T", 22) // timestamps

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(docs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func intOrBlank(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
