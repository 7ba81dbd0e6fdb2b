package mobi

import "bytes"

var (
	sigJPEG = []byte{0xFF, 0xD8, 0xFF}
	sigPNG  = []byte{0x89, 'P', 'N', 'G'}
	sigGIF  = []byte("GIF8")
	sigBMP  = []byte("BM")

	magicCRES        = []byte("CRES")
	placeholderHD    = []byte{0xA0, 0xA0, 0xA0, 0xA0}
	cresPrefixLength = 12
)

// ImageType returns a short name for the image encoding data starts with,
// or "" when it is not a recognised image.
func ImageType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, sigJPEG):
		return "jpeg"
	case bytes.HasPrefix(data, sigPNG):
		return "png"
	case bytes.HasPrefix(data, sigGIF):
		return "gif"
	case bytes.HasPrefix(data, sigBMP):
		return "bmp"
	default:
		return ""
	}
}

func isImageSignature(sig []byte) bool {
	return ImageType(sig) != ""
}

func isHDSlot(sig []byte) bool {
	return bytes.Equal(sig, magicCRES) || bytes.Equal(sig, placeholderHD)
}
