package types

import "errors"

// Entry store errors.
var (
	ErrDuplicateKey = errors.New("key already exists in namespace")
	ErrNotFound     = errors.New("entry not found")
	ErrInvalidKey   = errors.New("key must not be empty")
)

// Load, import and generation errors.
var (
	ErrStructural   = errors.New("malformed partition")
	ErrImportFormat = errors.New("CSV must contain key,type,encoding,value columns")
	ErrValidation   = errors.New("invalid value")
	ErrGenerate     = errors.New("partition generation failed")
	ErrNoData       = errors.New("no entries")
)

// Workspace errors.
var (
	ErrNoSession = errors.New("workspace has no session")
)

// IsUserError reports whether err is caused by user input rather than by the
// system. The CLI uses it to choose an exit code.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrDuplicateKey, ErrNotFound, ErrInvalidKey, ErrImportFormat,
		ErrValidation, ErrNoData, ErrNoSession, ErrStructural,
		ErrPartitionSize, ErrFormatVersion, ErrLogLevel,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
