// Package assets embeds the default corpus documents shipped with the server.
package assets

import "embed"

//go:embed general.json music.json animals.json
var FS embed.FS

// Corpus returns the raw document for a theme name ("general", ...).
func Corpus(name string) ([]byte, error) {
	return FS.ReadFile(name + ".json")
}
