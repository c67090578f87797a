package files

import (
	"path/filepath"
	"strings"
)

// DefaultMimeType is used for extensions missing from the lookup table.
const DefaultMimeType = "application/octet-stream"

var mimeTypes = map[string]string{
	".txt":  "text/plain",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// MimeType returns the content type sent with a file's bytes.
// The table is closed so uploads do not depend on the host's mime database.
func MimeType(path string) string {
	if t, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return DefaultMimeType
}
