// Package common holds the small cross-cutting primitives shared by every
// native engine package: the module-pause guard and the reentrancy guard
// described in spec.md §5.
package common

import "errors"

// ErrModulePaused is returned by Guard when the named module has been
// administratively paused.
var ErrModulePaused = errors.New("native: module paused")

// PauseView reports whether a named module ("pool" or "flashloan") is
// currently paused. The Engine Facade accepts one through SetPauses and
// threads it down into native/pool and native/flashloan; the per-pool
// circuit breaker is the separate Pool.Paused flag.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard aborts with ErrModulePaused if p reports module as paused. A nil
// PauseView or empty module name is always permissive, matching the
// teacher's native/common/guard.go.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
