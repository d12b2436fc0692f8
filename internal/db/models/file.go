// Package models defines the persisted records of the content workflow.
package models

import "time"

// File kind constants.
const (
	FileTypeVideo = "video"
	FileTypePhoto = "photo"
)

// File represents one stored piece of media. Product and Flavor stay
// nil until the owner classifies the file.
type File struct {
	ID        int64     `db:"id"`
	FileID    string    `db:"file_id"`
	FileType  string    `db:"file_type"`
	Caption   string    `db:"caption"`
	Product   *string   `db:"product"`
	Flavor    *string   `db:"flavor"`
	Views     int64     `db:"views"`
	ThumbID   *string   `db:"thumb_id"`
	CreatedAt time.Time `db:"created_at"`
}

// NewFile creates an unclassified File with the given media details.
// thumbID may be empty when the upload carried no thumbnail.
func NewFile(fileID, fileType, caption, thumbID string) *File {
	f := &File{
		FileID:    fileID,
		FileType:  fileType,
		Caption:   caption,
		CreatedAt: time.Now(),
	}
	if thumbID != "" {
		f.ThumbID = &thumbID
	}
	return f
}

// Classified reports whether both tags have been assigned.
func (f *File) Classified() bool {
	return f.Product != nil && f.Flavor != nil
}
