package model

type TeamMember struct {
	ID    int64  `json:"id"`
	Email string `json:"email" validate:"required"`
	Role  Role   `json:"role" validate:"required,oneof=admin member"`
}

type TeamStats struct {
	TotalMembers int `json:"total_members"`
	Admins       int `json:"admins"`
	Members      int `json:"members"`
}
