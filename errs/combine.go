package errs

import "go.uber.org/multierr"

// CombineReleaseErrors aggregates the errors produced by releasing each
// instance variable of a dropped cell block. Most releases produce no
// error at all (releasing a value is infallible for every Kind except
// when a release hook itself invokes a handler that fails); when more
// than one instance variable's release hook fails, every failure is
// kept rather than silently discarding all but the first.
func CombineReleaseErrors(errs ...error) error {
	return multierr.Combine(errs...)
}
