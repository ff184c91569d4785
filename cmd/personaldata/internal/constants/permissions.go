package constants

import "os"

// Permissions for paths created at startup.
const (
	// DirPermissions is used for the log directory (rwxr-xr-x).
	// Used in: preflight/preflight.go
	DirPermissions os.FileMode = 0755

	// FilePermissions is used for the log file (rw-r--r--).
	// Used in: preflight/preflight.go
	FilePermissions os.FileMode = 0644
)
