package model

// StoredFile is what the file storage endpoint returns for each upload.
// Nothing else about an upload is ever kept.
type StoredFile struct {
	Filename     string `json:"filename" binding:"required,max=255"`
	OriginalName string `json:"originalName" binding:"omitempty,max=255"`
	URL          string `json:"url" binding:"required,max=1024"`
}
