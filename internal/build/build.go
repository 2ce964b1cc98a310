// Package build holds values injected at link time.
package build

import "strings"

var (
	Version = "dev"
	AppName = "Licensor"
	Slug    = ""
)

func init() {
	if Slug == "" {
		Slug = strings.ToLower(AppName)
	}
}
