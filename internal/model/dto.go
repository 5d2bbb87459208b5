package model

type BlobCleanupJob struct {
	StoredName string `json:"stored_name"`
	FileID     string `json:"file_id"`
	OwnerID    string `json:"owner_id"`
	Attempt    int    `json:"attempt"`
}

type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Token    string `json:"token"`
}

type ProfileUpdate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SettingsUpdate accepts allowedFileTypes either as a JSON array or as a
// comma separated string.
type SettingsUpdate struct {
	MaxFileSize      float64     `json:"maxFileSize"`
	AllowedFileTypes interface{} `json:"allowedFileTypes"`
}

type UploadResponse struct {
	FileID   string             `json:"fileId"`
	Filename string             `json:"filename"`
	Data     NormalizedWorkbook `json:"data"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
