package logengine

import (
	"fmt"

	"go.uber.org/multierr"
)

// fmtErrorf prefixes every engine-originated error the same way the
// source does, so stderr diagnostics and returned errors read
// consistently.
func fmtErrorf(format string, args ...any) error {
	return fmt.Errorf("logengine: "+format, args...)
}

// combineErrors folds possibly-nil errors from a shutdown path (sync
// failure, close failure, worker-join timeout) into one multierr
// value instead of a hand-rolled string join.
func combineErrors(errs ...error) error {
	return multierr.Combine(errs...)
}
