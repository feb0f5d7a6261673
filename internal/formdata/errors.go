// Package formdata extracts and decodes the positional form payload embedded
// in a public form page.
package formdata

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// PayloadVar is the page variable holding the form payload.
const PayloadVar = "FB_PUBLIC_LOAD_DATA_"

// ErrSchemaNotFound is returned when the page has no payload assignment.
var ErrSchemaNotFound = eris.New("formdata: " + PayloadVar + " assignment not found")

// maxFragment caps the raw text kept on a parse error.
const maxFragment = 200

// SchemaParseError reports a payload literal that is not valid structured data.
type SchemaParseError struct {
	Fragment string
	Offset   int64
	Err      error
}

func (e *SchemaParseError) Error() string {
	return fmt.Sprintf("formdata: parse %s at offset %d: %v (near %q)", PayloadVar, e.Offset, e.Err, e.Fragment)
}

func (e *SchemaParseError) Unwrap() error {
	return e.Err
}

func newParseError(literal string, offset int64, err error) *SchemaParseError {
	return &SchemaParseError{Fragment: fragmentAt(literal, offset), Offset: offset, Err: err}
}

// fragmentAt returns up to maxFragment bytes of s around offset.
func fragmentAt(s string, offset int64) string {
	start := int(offset) - maxFragment/2
	if start < 0 {
		start = 0
	}
	end := start + maxFragment
	if end > len(s) {
		end = len(s)
	}
	if start > end {
		start = end
	}
	return s[start:end]
}
