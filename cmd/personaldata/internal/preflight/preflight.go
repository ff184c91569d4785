// Package preflight prepares the paths the program writes to before any
// record is logged.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/thalib/personaldata/cmd/personaldata/internal/constants"
)

// FileCheck represents a required file or directory
type FileCheck struct {
	Path      string
	IsDir     bool
	FailFatal bool // If true, failure to create is returned as an error
}

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Path    string
	Exists  bool
	Created bool
	Error   error
}

// LogFileChecks returns the checks for a log file and its directory. An
// empty path needs no checks.
func LogFileChecks(path string) []FileCheck {
	if path == "" {
		return nil
	}
	return []FileCheck{
		{Path: filepath.Dir(path), IsDir: true, FailFatal: true},
		{Path: path, IsDir: false, FailFatal: true},
	}
}

// ValidateAndCreate checks if required files and directories exist
// and creates them if they don't. Returns results for all checks and the
// first fatal error.
func ValidateAndCreate(checks []FileCheck) ([]CheckResult, error) {
	results := make([]CheckResult, 0, len(checks))
	var fatal error

	for _, check := range checks {
		result := run(check)
		if result.Error != nil && check.FailFatal && fatal == nil {
			fatal = result.Error
		}
		results = append(results, result)
	}

	return results, fatal
}

func run(check FileCheck) CheckResult {
	result := CheckResult{Path: check.Path}

	info, err := os.Stat(check.Path)
	switch {
	case err == nil:
		result.Exists = true
		if check.IsDir && !info.IsDir() {
			result.Error = fmt.Errorf("path exists but is not a directory: %s", check.Path)
		} else if !check.IsDir && info.IsDir() {
			result.Error = fmt.Errorf("path exists but is a directory: %s", check.Path)
		}

	case os.IsNotExist(err):
		if check.IsDir {
			err = os.MkdirAll(check.Path, constants.DirPermissions)
		} else {
			err = touch(check.Path)
		}
		if err != nil {
			result.Error = fmt.Errorf("failed to create %s: %w", check.Path, err)
		} else {
			result.Created = true
		}

	default:
		result.Error = fmt.Errorf("failed to check path %s: %w", check.Path, err)
	}

	return result
}

// touch creates an empty file and its parent directory. O_EXCL ensures an
// existing file is never truncated.
func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return err
	}
	return f.Close()
}
