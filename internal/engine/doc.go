// Package engine turns one primary container, plus the HD containers found
// next to it, into a comic archive.
//
// Every book runs the same merge routine. The cover is resolved first (HD
// record, then SD record), then each content page in order, taking the HD
// image when it decodes and the SD image otherwise. What happens to the
// resolved bytes depends on the Mode: ModeConvert writes a zip archive
// through internal/cbz, ModeScan only counts, and ModeCover stops once a
// cover has been written to disk. When the book has no dedicated cover, the
// first written page doubles as a standalone cover file.
//
// An Engine is shared by all workers of a run. Per-book state (mappings,
// record sets, the archive writer) never leaves the goroutine that calls Run;
// the buffer pool and the output name registry are the only shared parts.
package engine
