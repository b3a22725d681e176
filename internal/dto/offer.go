package dto

// OfferRequest is shared by publish and update. The reward set is always sent in full.
type OfferRequest struct {
	Title            string  `json:"title" validate:"required,max=200"`
	Description      string  `json:"description" validate:"max=4000"`
	RequiresApproval bool    `json:"requiresApproval"`
	BadgeIDs         []int64 `json:"badgeIds" validate:"dive,gt=0"`
}
