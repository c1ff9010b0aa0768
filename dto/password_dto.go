package dto

type ChangeMyPasswordDTO struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
}

// ResetPasswordDTO completes a forced reset. The user is identified the same
// way as on login.
type ResetPasswordDTO struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=72"`
}
