package engine

import (
	"time"

	"cbzmage/internal/hdmatch"
)

// Job is one book: a primary container and the HD containers that share its
// directory.
type Job struct {
	Primary    string
	Containers []*hdmatch.Container
}

// Result summarises one book. HdImages + SdImages always equals Pages.
type Result struct {
	Name          string    `json:"name" yaml:"name"`
	Title         string    `json:"title,omitempty" yaml:"title,omitempty"`
	HdCover       bool      `json:"hd_cover" yaml:"hd_cover"`
	SdCover       bool      `json:"sd_cover" yaml:"sd_cover"`
	FallbackCover bool      `json:"fallback_cover" yaml:"fallback_cover"`
	HdImages      int       `json:"hd_images" yaml:"hd_images"`
	SdImages      int       `json:"sd_images" yaml:"sd_images"`
	Pages         int       `json:"pages" yaml:"pages"`
	Skipped       int       `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	HDContainer   string    `json:"hd_container,omitempty" yaml:"hd_container,omitempty"`
	Archive       string    `json:"archive,omitempty" yaml:"archive,omitempty"`
	ArchiveBytes  int64     `json:"archive_bytes,omitempty" yaml:"archive_bytes,omitempty"`
	CoverFile     string    `json:"cover_file,omitempty" yaml:"cover_file,omitempty"`
	Checked       time.Time `json:"checked" yaml:"checked"`
}

// CoverSource names where the cover came from: "hd", "sd", "fallback" or
// "none".
func (r *Result) CoverSource() string {
	switch {
	case r == nil:
		return "none"
	case r.HdCover:
		return "hd"
	case r.SdCover:
		return "sd"
	case r.FallbackCover:
		return "fallback"
	default:
		return "none"
	}
}

// Empty reports whether no image was resolved at all.
func (r *Result) Empty() bool {
	return r == nil || (r.HdImages == 0 && r.SdImages == 0 && !r.HdCover && !r.SdCover)
}
