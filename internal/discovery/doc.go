// Package discovery enumerates the container files a run operates on.
//
// The input is either a single primary container or a directory. A directory
// is searched flat by default; recursive search is requested explicitly or by
// a trailing "*" on the path. Files are classified by extension only: primary
// containers become books, HD containers become candidates for the matcher.
package discovery
