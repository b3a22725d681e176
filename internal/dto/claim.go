package dto

// SubmitClaimRequest carries the evidence attached by a student.
type SubmitClaimRequest struct {
	Evidence string `json:"evidence" validate:"max=4000"`
}

// DecideClaimRequest captures a teacher decision. Approve is required so an
// omitted field is not read as a rejection.
type DecideClaimRequest struct {
	Approve *bool  `json:"approve" validate:"required"`
	Note    string `json:"note" validate:"max=2000"`
}

// ClaimQuery filters the claims listing of a subject.
type ClaimQuery struct {
	StudentUserID int64 `form:"studentId"`
}
