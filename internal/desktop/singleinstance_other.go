//go:build !windows

package desktop

// EnsureSingleInstance always returns true outside Windows. macOS app
// bundles are single-instance already.
func EnsureSingleInstance() bool {
	return true
}
