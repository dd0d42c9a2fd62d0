package assembler

import (
	"errors"
	"fmt"
)

// ErrMissingMasterData is wrapped by every MissingMasterDataError.
var ErrMissingMasterData = errors.New("missing master data")

// Master data kinds.
const (
	KindManufacturer = "manufacturer"
	KindBuyerAddress = "buyer address"
)

// MissingMasterDataError aborts an Entry whose line references a reference
// record that does not exist or cannot be used.
type MissingMasterDataError struct {
	Kind   string
	Key    string
	Reason string
}

func (e *MissingMasterDataError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Key, e.Reason)
}

func (e *MissingMasterDataError) Unwrap() error {
	return ErrMissingMasterData
}

// LineError is a line-local failure. The line is skipped and generation
// continues with the next one.
type LineError struct {
	Invoice    string
	Line       int
	PartNumber string
	Err        error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("invoice %s line %d (part %s): %v", e.Invoice, e.Line, e.PartNumber, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
