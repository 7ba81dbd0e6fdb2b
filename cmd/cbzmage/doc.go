// Command cbzmage converts Kindle comic containers into CBZ archives.
//
// The convert, scan and cover commands share one pipeline: discover the
// primary containers under a path, pair them with HD image containers, then
// process books in parallel. Book failures are reported in the run summary
// and make the command exit non-zero without stopping other books.
package main
