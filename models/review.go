package models

import "time"

// Review indexes one uploaded review file. Path is relative to the upload
// backend (a path under the uploads directory, or an object name in a bucket).
type Review struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	EventName    string    `json:"eventName"`
	Mime         string    `json:"mime"`
	Size         int64     `json:"size"`
	Path         string    `json:"path"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
