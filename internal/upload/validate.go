package upload

import (
	"errors"
	"strings"
)

// MaxFileSize is the largest spreadsheet accepted, in bytes.
const MaxFileSize = 10 * 1024 * 1024

// Validation errors. The proxy and the client report the same text.
var (
	ErrNoFile   = errors.New("no file received")
	ErrTooLarge = errors.New("the file is too large, maximum 10MB allowed")
	ErrNotExcel = errors.New("only Excel files are allowed (.xlsx, .xls)")
	ErrBusy     = errors.New("an upload is already in progress")
)

// ExcelMIMETypes are the content types accepted without looking at the name.
var ExcelMIMETypes = []string{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-excel",
}

// IsExcel reports whether a file looks like a spreadsheet by content type or
// by its .xlsx/.xls extension.
func IsExcel(name, contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, allowed := range ExcelMIMETypes {
		if ct == allowed {
			return true
		}
	}
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls")
}

// Validate checks a file before it is sent anywhere. A zero maxSize means
// MaxFileSize.
func Validate(name, contentType string, size, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	switch {
	case name == "":
		return ErrNoFile
	case size > maxSize:
		return ErrTooLarge
	case !IsExcel(name, contentType):
		return ErrNotExcel
	}
	return nil
}
