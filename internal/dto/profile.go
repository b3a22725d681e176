package dto

// Ledger export formats.
const (
	LedgerFormatJSON = "json"
	LedgerFormatCSV  = "csv"
	LedgerFormatPDF  = "pdf"
)

// ProfileQuery optionally scopes profile reads to one subject.
type ProfileQuery struct {
	SubjectID int64  `form:"subjectId" validate:"gte=0"`
	Format    string `form:"format" validate:"omitempty,oneof=json csv pdf"`
}

// LedgerExport is a rendered ledger statement.
type LedgerExport struct {
	Filename    string
	ContentType string
	Body        []byte
}
