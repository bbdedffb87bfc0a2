// Package main provides libraryctl, the administrative command line for the
// library server. It opens the same database and search index as the server
// and runs maintenance tasks against them.
//
// Usage:
//
//	libraryctl --db-path ~/LibraryServer/library.db stats
//	libraryctl seed
//	libraryctl overdue --json
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
