package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Sink consumes frames in presentation order.
type Sink interface {
	// WriteFrame takes one frame; the sink does not retain img after
	// returning.
	WriteFrame(img *image.NRGBA) error
	// Close finalizes the output. After a failed Close nothing is left at
	// the output path.
	Close() error
	// Abort stops encoding and removes any partial output.
	Abort() error
}

// Open starts the encoder for p writing to path.
func Open(ctx context.Context, path string, p Params) (Sink, error) {
	switch p.Format {
	case PNGSequence:
		return NewPNGSequence(path, p)
	case MP4, WebM, GIF, MOV:
		return StartFFmpeg(ctx, path, p)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, p.Format)
}

// FFmpegSink pipes raw RGBA frames into an ffmpeg process. Output goes to a
// temporary file next to the target and is renamed into place on success.
type FFmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	cancel context.CancelFunc

	tmp, path string
	size      image.Point
}

// StartFFmpeg launches ffmpeg for p.
func StartFFmpeg(ctx context.Context, path string, p Params) (*FFmpegSink, error) {
	if p.Width <= 0 || p.Height <= 0 || p.FPS <= 0 {
		return nil, fmt.Errorf("invalid export geometry %dx%d@%d", p.Width, p.Height, p.FPS)
	}

	bin := p.FFmpeg
	if bin == "" {
		bin = "ffmpeg"
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".part")
	args, err := Args(p, tmp)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, bin, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	return &FFmpegSink{
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		cancel: cancel,
		tmp:    tmp,
		path:   path,
		size:   image.Pt(p.Width, p.Height),
	}, nil
}

func (s *FFmpegSink) WriteFrame(img *image.NRGBA) error {
	if img.Rect.Size() != s.size {
		return fmt.Errorf("frame size %v, encoder expects %v", img.Rect.Size(), s.size)
	}
	if err := writeRawRGBA(s.stdin, img); err != nil {
		return fmt.Errorf("write raw error: %w, output: %s", err, s.stderr.String())
	}
	return nil
}

func (s *FFmpegSink) Close() error {
	defer s.cancel()
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		os.Remove(s.tmp)
		return fmt.Errorf("ffmpeg error: %w, output: %s", err, s.stderr.String())
	}
	if err := os.Rename(s.tmp, s.path); err != nil {
		os.Remove(s.tmp)
		return err
	}
	return nil
}

func (s *FFmpegSink) Abort() error {
	s.cancel()
	s.stdin.Close()
	s.cmd.Wait()
	if err := os.Remove(s.tmp); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// writeRawRGBA writes img row by row as straight-alpha RGBA, which is what
// ffmpeg's rgba pixel format expects.
func writeRawRGBA(w io.Writer, img *image.NRGBA) error {
	rowLen := img.Rect.Dx() * 4
	if img.Stride == rowLen {
		_, err := w.Write(img.Pix[:rowLen*img.Rect.Dy()])
		return err
	}
	for y := 0; y < img.Rect.Dy(); y++ {
		off := y * img.Stride
		if _, err := w.Write(img.Pix[off : off+rowLen]); err != nil {
			return err
		}
	}
	return nil
}

// Args builds the ffmpeg command line for p writing to out.
func Args(p Params, out string) ([]string, error) {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", strconv.Itoa(p.FPS),
		"-i", "-",
	}

	audio := p.Audio != nil && p.Audio.Path != "" && p.Format.SupportsAudio()
	if audio {
		if p.Audio.Offset > 0 {
			args = append(args, "-itsoffset", formatSeconds(p.Audio.Offset))
		}
		args = append(args, "-i", p.Audio.Path, "-map", "0:v", "-map", "1:a")
		vol := p.Audio.Volume
		if vol < 0 {
			vol = 0
		}
		// apad keeps the video length authoritative under -shortest.
		args = append(args, "-af", "volume="+strconv.FormatFloat(vol, 'f', -1, 64)+",apad", "-shortest")
	}

	alpha := p.Transparent && p.Format.SupportsAlpha()

	switch p.Format {
	case MP4:
		args = append(args, "-c:v", encoderOrDefault(p.Encoder), "-pix_fmt", "yuv420p")
		args = append(args, h264Quality(p)...)
		args = append(args, "-movflags", "+faststart")
		if audio {
			args = append(args, "-c:a", "aac", "-b:a", "192k")
		}
		args = append(args, "-f", "mp4")
	case WebM:
		pix := "yuv420p"
		if alpha {
			pix = "yuva420p"
		}
		args = append(args, "-c:v", "libvpx-vp9", "-pix_fmt", pix)
		if p.Bitrate != "" {
			args = append(args, "-b:v", p.Bitrate)
		}
		if audio {
			args = append(args, "-c:a", "libopus")
		}
		args = append(args, "-f", "webm")
	case MOV:
		profile, pix := "3", "yuv422p10le"
		if alpha {
			profile, pix = "4444", "yuva444p10le"
		}
		args = append(args, "-c:v", "prores_ks", "-profile:v", profile, "-pix_fmt", pix)
		if audio {
			args = append(args, "-c:a", "pcm_s16le")
		}
		args = append(args, "-f", "mov")
	case GIF:
		args = append(args, "-filter_complex", gifFilter(p.FPS, alpha), "-loop", "0", "-f", "gif")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, p.Format)
	}

	return append(args, out), nil
}

// gifFilter generates a palette from the whole clip and dithers with it in
// one pass. GIF playback is capped at 15 fps.
func gifFilter(fps int, alpha bool) string {
	gen, use := "palettegen", "paletteuse"
	if alpha {
		gen, use = "palettegen=reserve_transparent=1", "paletteuse=alpha_threshold=128"
	}
	return fmt.Sprintf("[0:v]fps=%d,split[a][b];[a]%s[p];[b][p]%s", min(fps, 15), gen, use)
}

func encoderOrDefault(name string) string {
	if name == "" {
		return "libx264"
	}
	return name
}

// DefaultQuality is the constant-quality level used for encoder when
// Params.Quality is unset.
func DefaultQuality(encoder string) int {
	if encoderOrDefault(encoder) == "h264_nvenc" {
		return 28
	}
	return 18
}

func h264Quality(p Params) []string {
	q := p.Quality
	if q <= 0 {
		q = DefaultQuality(p.Encoder)
	}

	var args []string
	switch encoderOrDefault(p.Encoder) {
	case "h264_videotoolbox":
		// VideoToolbox has no constant-quality mode on every release; use bitrate.
	case "h264_nvenc":
		args = append(args, "-cq", strconv.Itoa(q))
	default: // libx264
		args = append(args, "-crf", strconv.Itoa(q), "-preset", "slow")
	}
	if p.Bitrate != "" {
		args = append(args, "-b:v", p.Bitrate)
	}
	return args
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
