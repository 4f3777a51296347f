package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jstanley9/ravrf"
)

// suffix is the one recognized file extension. A path with no suffix gets
// it appended; any other suffix is rejected.
const suffix = ".ravrf"

// resolvePath validates and normalizes a user-supplied path per §6: the file
// name must not start with a dot, the suffix must be absent (in which case
// ".ravrf" is appended) or exactly ".ravrf".
func resolvePath(path string) (string, error) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return "", ravrf.NewError(ravrf.BadPath, "file name cannot start with a dot", nil)
	}

	ext := filepath.Ext(base)
	switch ext {
	case "":
		return path + suffix, nil
	case suffix:
		return path, nil
	default:
		return "", ravrf.NewError(ravrf.BadPath, "file suffix must be "+suffix+" or absent", nil)
	}
}

// statExisting reports whether path exists, and if so whether it is a
// regular file. It returns ravrf.NotAFile if the path exists but isn't one.
func statExisting(path string) (exists bool, err error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return false, nil
		}
		return false, ravrf.NewError(ravrf.IO, "stat", statErr)
	}
	if !info.Mode().IsRegular() {
		return true, ravrf.NewError(ravrf.NotAFile, path, nil)
	}
	return true, nil
}
