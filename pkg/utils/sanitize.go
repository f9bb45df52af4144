package utils

import (
	"regexp"
	"strings"
	"unicode"
)

// --- Filename Sanitization ---
var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`) // Characters invalid in Windows/Unix filenames
var consecutiveUnderscores = regexp.MustCompile(`_+`)                  // Pattern to replace multiple underscores with one
const maxFilenameLength = 100                                          // Max length for sanitized filenames

// SanitizeFilename cleans a string to be safe for use as a filename component
func SanitizeFilename(name string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(name, "_")       // Replace invalid chars with underscore
	sanitized = consecutiveUnderscores.ReplaceAllString(sanitized, "_") // Collapse multiple underscores
	sanitized = strings.Trim(sanitized, "_ ")                           // Remove leading/trailing underscores or spaces

	if len(sanitized) > maxFilenameLength {
		sanitized = sanitized[:maxFilenameLength]
		sanitized = strings.Trim(sanitized, "_ ")
	}

	if sanitized == "" {
		sanitized = "untitled"
	}
	return sanitized
}

// AppFolderName builds the per-app output folder name "<clean name>_<country>"
// Only letters, digits and "._- " survive from the app name; spaces become underscores
func AppFolderName(appName, country string) string {
	if appName == "" {
		appName = "App"
	}
	var b strings.Builder
	for _, r := range appName {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._- ", r) {
			b.WriteRune(r)
		}
	}
	clean := strings.ReplaceAll(b.String(), " ", "_")
	if len(clean) > maxFilenameLength {
		clean = clean[:maxFilenameLength]
	}
	if clean == "" {
		clean = "App"
	}
	return clean + "_" + strings.ToLower(country)
}
