package dto

// AuditQuery filters the audit trail listing.
type AuditQuery struct {
	Resource string `form:"resource"`
	Limit    int    `form:"limit" validate:"gte=0,lte=500"`
}
