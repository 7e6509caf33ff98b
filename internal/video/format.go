// Package video hands rendered frames to an encoder: ffmpeg over a raw pipe
// for videos and GIFs, or PNG files for image sequences.
package video

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned for export formats no encoder handles.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format is an export container.
type Format string

const (
	MP4         Format = "mp4"
	WebM        Format = "webm"
	GIF         Format = "gif"
	MOV         Format = "mov"
	PNGSequence Format = "png_sequence"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case MP4, WebM, GIF, MOV, PNGSequence:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// SupportsAlpha reports whether the format can keep a transparent
// background.
func (f Format) SupportsAlpha() bool {
	switch f {
	case WebM, MOV, GIF, PNGSequence:
		return true
	}
	return false
}

// SupportsAudio reports whether an audio track can be muxed in.
func (f Format) SupportsAudio() bool {
	switch f {
	case MP4, WebM, MOV:
		return true
	}
	return false
}

// Audio is the soundtrack laid under an export.
type Audio struct {
	Path   string
	Offset float64 // seconds of silence before the track starts
	Volume float64
}

// Params describe one export.
type Params struct {
	Format        Format
	Width, Height int
	FPS           int
	// Bitrate in ffmpeg notation, e.g. "2.5M".
	Bitrate     string
	Transparent bool
	Audio       *Audio

	// FFmpeg is the binary to run, "ffmpeg" when empty.
	FFmpeg string
	// Encoder is the H.264 encoder for mp4, libx264 when empty.
	Encoder string
	// Quality is the constant-quality level handed to the H.264 encoder.
	Quality int
}
