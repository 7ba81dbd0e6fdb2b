// Package mobi decodes Kindle container files into page record sets.
//
// A primary container (.azw, .azw3, .mobi) is a Palm database whose record 0
// carries the PalmDOC, MOBI, and EXTH headers; image records follow the text.
// An HD container (.azw.res, .azw6) holds higher-resolution copies of the same
// images in CRES records, aligned by image index with the primary file.
//
// Decoding is selective: callers state through ReadOptions which header
// fields they need, and whether a missing EXTH section is fatal. Records are
// returned as PageRecord references into the caller's mapped file; their
// bytes are only read when Load is called, into a pooled buffer.
//
// This package never interprets pixels. Image records are recognised by
// their leading signature only.
package mobi
