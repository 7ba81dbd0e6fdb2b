// Package fileutil holds file helpers shared across packages.
package fileutil
