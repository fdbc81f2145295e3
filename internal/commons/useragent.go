package commons

import (
	"runtime"
	"strings"
)

// UserAgent builds a User-Agent following the Wikimedia policy:
// "archivist/<version> (<contact>) Go/<go version>".
func UserAgent(version, contact string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		version = "dev"
	}
	goVersion := strings.TrimPrefix(runtime.Version(), "go")
	parts := []string{"archivist/" + version}
	if contact = strings.TrimSpace(contact); contact != "" {
		parts = append(parts, "("+contact+")")
	}
	parts = append(parts, "Go/"+goVersion)
	return strings.Join(parts, " ")
}
