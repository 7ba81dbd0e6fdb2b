// Package preflight provides readiness checks for the filesystem paths
// cbzmage writes to.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before a convert or cover run and
//     refuses to start when a check fails, so no book is half processed into
//     an unwritable directory.
//   - The CLI "cbzmage status" command renders every Result.
//
// Checks for optional paths are skipped when the path is not configured.
package preflight
