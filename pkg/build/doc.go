// Package build renders the pages of a documentation site into an output
// directory. Each page's output is hashed and recorded in a SQLite manifest, so
// repeated builds only rewrite the files whose content actually changed. Files
// are replaced atomically; a reader never observes a half-written page.
package build
