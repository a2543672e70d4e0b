package errors

import (
	"strings"
	"unicode"
)

// ValidateNodeID validates a node identifier from an external tree payload.
// It rejects IDs that could be used for path traversal or injection attacks.
//
// The validation rules are intentionally conservative:
//   - No empty IDs
//   - No control characters
//   - No path traversal sequences (.., //)
//   - No null bytes or backslashes
//   - Maximum length of 500 characters
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidTree, "node id cannot be empty")
	}

	if len(id) > 500 {
		return New(ErrCodeInvalidTree, "node id too long (max 500 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidTree, "node id contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidTree, "node id contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidatePath validates a file path within a repository for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	// Check for null bytes and control characters
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	// Must not be absolute path
	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	// Check for path traversal
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	// No backslashes (potential Windows path injection)
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// validExportFormats lists the supported snapshot export formats.
var validExportFormats = map[string]struct{}{
	"svg":  {},
	"png":  {},
	"dot":  {},
	"json": {},
}

// ValidateExportFormat validates a snapshot export format name.
func ValidateExportFormat(format string) error {
	if format == "" {
		return New(ErrCodeInvalidFormat, "export format cannot be empty")
	}
	if _, ok := validExportFormats[strings.ToLower(format)]; !ok {
		return New(ErrCodeInvalidFormat, "unsupported export format: %q (svg, png, dot, json)", format)
	}
	return nil
}

// ValidateSHA validates a git commit SHA reference: full or abbreviated
// hexadecimal, at least 4 characters.
func ValidateSHA(sha string) error {
	if len(sha) < 4 || len(sha) > 64 {
		return New(ErrCodeInvalidInput, "invalid commit sha length: %q", sha)
	}
	for _, r := range sha {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		if !isHex {
			return New(ErrCodeInvalidInput, "invalid commit sha: %q", sha)
		}
	}
	return nil
}
