package graph

import (
	"path/filepath"

	"github.com/c360studio/archspec/extract"
)

// CollectEntries extracts import facts for the given relative file paths
// under root, producing the entries Build consumes. Files with no facts
// still appear so their modules are registered.
func CollectEntries(root string, files []string) []Entry {
	entries := make([]Entry, 0, len(files))
	for _, rel := range files {
		if rel == "" {
			continue
		}
		entries = append(entries, Entry{
			File:    rel,
			Imports: extract.Facts(filepath.Join(root, filepath.FromSlash(rel))),
		})
	}
	return entries
}
