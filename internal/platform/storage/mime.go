package storage

import (
	"log"
	"mime"
	"path"
)

func init() {
	ensureMimeType(".webp", "image/webp")
	ensureMimeType(".heic", "image/heic")
	ensureMimeType(".pdf", "application/pdf")
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("storage: failed to register MIME type for %s: %v", ext, err)
	}
}

// ContentTypeFor guesses the content type from the file extension, falling back
// to the declared value and then to application/octet-stream.
func ContentTypeFor(name, declared string) string {
	if typ := mime.TypeByExtension(path.Ext(name)); typ != "" {
		return typ
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}
