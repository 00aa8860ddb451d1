package model

// UploadOptions carries the optional multipart form fields accepted
// alongside the file on POST /api/upload.
type UploadOptions struct {
	Title    string `json:"title" validate:"omitempty,max=200"`
	Separate bool   `json:"separate"`
}

// UploadResponse confirms job creation for an accepted upload.
type UploadResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}
