// Package upload moves document bytes to where the stage services can read
// them and reports the upload session id they were filed under.
package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
)

// Uploader sends one document. sessionHint is the upload session id the
// operator session already holds, or "" before the first upload.
type Uploader interface {
	Upload(ctx context.Context, sessionHint, name string, r io.Reader) (entity.UploadReceipt, error)
}

// AllowedExt reports whether name has an accepted extension.
func AllowedExt(name string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(filepath.Ext(name))]
	return ok
}

// ValidateName rejects empty names, names with path separators and names
// without an accepted extension. The name is the document id, so it is used
// exactly as given.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty file name", common.ErrInvalidInput)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: file name %q must not contain a path", common.ErrInvalidInput, name)
	}
	if !AllowedExt(name) {
		return fmt.Errorf("%w: unsupported extension for %q", common.ErrInvalidInput, name)
	}
	return nil
}
