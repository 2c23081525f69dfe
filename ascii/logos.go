// Package ascii provides the bundled ASCII art logos and the color directive
// processor that turns their $n markers into terminal color sequences.
package ascii

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// NotFound is returned by Logo for an identifier with no bundled art.
const NotFound = "Logo not found"

//go:embed logos/*.txt
var bundled embed.FS

// logos maps a distro identifier (the file name without .txt) to its art.
// It is built once at package init and never written again.
var logos = loadLogos(bundled)

func loadLogos(fsys fs.FS) map[string]string {
	table := make(map[string]string)
	entries, err := fs.ReadDir(fsys, "logos")
	if err != nil {
		return table
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".txt" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join("logos", name))
		if err != nil {
			continue
		}
		table[strings.TrimSuffix(name, ".txt")] = string(data)
	}
	return table
}

// Logo returns the raw art for a distro identifier such as "ubuntu" or
// "windows_11". The text still carries its $n color markers; pass it
// through Colorize before display.
//
// Returns NotFound when the identifier has no bundled art.
func Logo(id string) string {
	if art, ok := logos[id]; ok {
		return art
	}
	return NotFound
}

// IDs lists every identifier with bundled art, sorted.
func IDs() []string {
	ids := make([]string, 0, len(logos))
	for id := range logos {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
