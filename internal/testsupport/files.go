package testsupport

import (
	"bytes"
	"testing"
)

// WriteFile writes size bytes of filler to path, creating parent directories.
// The content is never a valid container, so readers reject it as damaged.
func WriteFile(t testing.TB, path string, size int) {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	writeFixture(t, path, bytes.Repeat([]byte{0x42}, size))
}
