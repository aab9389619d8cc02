// Package notification shows modal messages for events the user must see
// even when no console is attached.
package notification

import "log"

// ShowInfo displays an informational message box and returns when it is closed.
func ShowInfo(title, message string) {
	log.Printf("%s: %s", title, message)
	showMessageBox(title, message, false)
}

// ShowBlockingError displays an error message box and returns when it is closed.
func ShowBlockingError(title, message string) {
	log.Printf("ERROR %s: %s", title, message)
	showMessageBox(title, message, true)
}
