// Package hdmatch associates HD image containers with primary containers.
//
// Containers are analysed once, in parallel, before any book is converted.
// The resulting Table is keyed by parent directory and is read-only
// afterwards, so workers share it without locking. Association is purely by
// directory co-location; Select then picks the container that belongs to a
// particular book when a directory holds several.
package hdmatch
