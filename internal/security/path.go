package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrPathTraversal   = errors.New("path traversal detected")
	ErrAbsolutePath    = errors.New("absolute paths are not allowed")
	ErrReservedName    = errors.New("reserved filename not allowed")
	ErrInvalidFileName = errors.New("invalid file name")
)

// reservedName reports device names Windows refuses as files, with or
// without an extension.
func reservedName(base string) bool {
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	switch stem {
	case "con", "prn", "aux", "nul":
		return true
	}
	if len(stem) == 4 && (strings.HasPrefix(stem, "com") || strings.HasPrefix(stem, "lpt")) {
		return stem[3] >= '1' && stem[3] <= '9'
	}
	return false
}

// ValidateSavePath accepts relative paths that stay below the directory they
// are joined to.
func ValidateSavePath(path string) error {
	if filepath.IsAbs(path) {
		return ErrAbsolutePath
	}
	if strings.Contains(path, "..") || !filepath.IsLocal(path) {
		return ErrPathTraversal
	}

	base := filepath.Base(path)
	if reservedName(base) {
		return ErrReservedName
	}
	if strings.HasPrefix(base, "-") {
		return fmt.Errorf("%w: leading hyphen", ErrInvalidFileName)
	}
	return nil
}

// ValidateFileName accepts a single plain path element, as served from a
// flat directory.
func ValidateFileName(name string) error {
	switch {
	case name == "" || name == "." || name == "..":
		return ErrInvalidFileName
	case strings.ContainsAny(name, "/\\\x00"), strings.Contains(name, ".."):
		return ErrPathTraversal
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: hidden files are not served", ErrInvalidFileName)
	case reservedName(name):
		return ErrReservedName
	}
	return nil
}

// DirName replaces every character outside [A-Za-z0-9] with an underscore.
func DirName(name string) string {
	if name == "" {
		return "project"
	}
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, name)
}
