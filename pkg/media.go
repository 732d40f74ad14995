package pkg

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ReportMediaTypes maps the report upload allow-list to media types.  Files
// outside the list are still forwarded; the model replies with the
// file-not-supported text for anything that is not a health report.
var ReportMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".txt":  "text/plain",
}

// MediaTypeFor picks the media type of an uploaded file from its extension
// when it is on the allow-list, and from its content otherwise.  Parameters
// such as charset are dropped.
func MediaTypeFor(name string, data []byte) string {
	if mt, ok := ReportMediaTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	mt, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return mt
}
