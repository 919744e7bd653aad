// Package filename derives filing metadata from a document's original filename.
package filename

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
)

var (
	// c000980113011140304.pdf -> 000980
	reFilerCode = regexp.MustCompile(`^c([0-9A-Z]{6})`)
	// c000980113011140304.pdf -> 114 / 03 / 04
	reDateCode = regexp.MustCompile(`(\d{3})(\d{2})(\d{2})\.[[:alnum:]]+$`)
)

// ExtractFilerCode returns the six character filer code that follows the
// leading "c" marker. When the id does not match, the id itself is returned.
func ExtractFilerCode(id string) string {
	m := reFilerCode.FindStringSubmatch(id)
	if m == nil {
		return id
	}
	return m[1]
}

// ExtractUploadDate turns the trailing YYYMMDD segment (minguo year) into
// "{year}年{month}月{day}日" with leading zeros dropped from month and day.
// Ids without the segment yield constants.UnknownDate.
func ExtractUploadDate(id string) string {
	m := reDateCode.FindStringSubmatch(id)
	if m == nil {
		slog.Warn("filename.upload_date.no_match", "document_id", id)
		return constants.UnknownDate
	}
	month := strings.TrimLeft(m[2], "0")
	day := strings.TrimLeft(m[3], "0")
	return fmt.Sprintf("%s年%s月%s日", m[1], month, day)
}

// Fields computes both derived fields for id.
func Fields(id string) entity.FilenameFields {
	return entity.FilenameFields{
		FilerCode:  ExtractFilerCode(id),
		UploadDate: ExtractUploadDate(id),
	}
}
