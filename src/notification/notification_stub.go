//go:build !windows

package notification

// Message boxes are Windows-only; the log line is all other platforms get.
func showMessageBox(title, message string, isError bool) {}
