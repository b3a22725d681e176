package dto

// CreateSubjectRequest payload for creating a subject.
type CreateSubjectRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// CreateBadgeRequest payload for creating a catalog badge.
type CreateBadgeRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description" validate:"max=2000"`
	ExpValue     int    `json:"expValue" validate:"gte=0"`
	IsRepeatable bool   `json:"isRepeatable"`
}
