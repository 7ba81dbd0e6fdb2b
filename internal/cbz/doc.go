// Package cbz writes comic book archives.
//
// An archive is a zip file holding one JPEG entry per page. It is streamed
// into a memory-mapped temporary file pre-sized to an upper bound of the
// final length. Commit truncates the file to the bytes actually written and
// renames it over the destination, so an interrupted or failed write never
// replaces a previously valid archive. On failure the temporary file is left
// in place for inspection.
package cbz
