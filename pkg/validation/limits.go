package validation

import (
	"fmt"

	dErrors "legitify/pkg/domain-errors"
)

const (
	// MaxFileSize is the largest credential payload accepted, in bytes.
	MaxFileSize = 5 << 20

	// MaxBodySize bounds JSON bodies. Payloads travel base64 encoded, which
	// grows them by a third, plus room for attributes.
	MaxBodySize = MaxFileSize*4/3 + 64*1024

	MaxEmailLength       = 255
	MaxNameLength        = 200
	MaxFileNameLength    = 255
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxOrgNameLength     = 120
)

// CheckStringLength fails when value is longer than max bytes.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckPayloadSize fails with CodeInvalidInput for empty payloads and
// payloads above max bytes.
func CheckPayloadSize(size, max int) error {
	if size == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "file is empty")
	}
	if size > max {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("file exceeds max size of %d bytes", max))
	}
	return nil
}
