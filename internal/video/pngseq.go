package video

import (
	"archive/tar"
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// ArchiveExt selects a zstd-compressed tar archive instead of a directory
// for PNG sequences.
const ArchiveExt = ".tar.zst"

// PNGSeqWriter writes frames as frame_000000.png, frame_000001.png, ... into
// a directory, or into a .tar.zst archive when the path carries that
// extension.
type PNGSeqWriter struct {
	path, tmp string
	n         int

	enc *png.Encoder
	buf bytes.Buffer

	// archive mode
	file *os.File
	zw   *zstd.Encoder
	tw   *tar.Writer
	now  time.Time
}

// NewPNGSequence prepares the output at path. Frames land in a temporary
// sibling until Close.
func NewPNGSequence(path string, p Params) (*PNGSeqWriter, error) {
	s := &PNGSeqWriter{
		path: path,
		tmp:  filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".part"),
		enc:  &png.Encoder{CompressionLevel: png.BestSpeed},
		now:  time.Now(),
	}

	if !strings.HasSuffix(path, ArchiveExt) {
		if entries, err := os.ReadDir(path); err == nil && len(entries) > 0 {
			return nil, fmt.Errorf("output directory %s is not empty", path)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(s.tmp, 0755); err != nil {
			return nil, err
		}
		return s, nil
	}

	f, err := os.Create(s.tmp)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		os.Remove(s.tmp)
		return nil, err
	}
	// zstd does the compressing; deflate inside the PNGs would only hide
	// redundancy from it.
	s.enc.CompressionLevel = png.NoCompression
	s.file, s.zw, s.tw = f, zw, tar.NewWriter(zw)
	return s, nil
}

// FrameName is the file name of frame i.
func FrameName(i int) string {
	return fmt.Sprintf("frame_%06d.png", i)
}

func (s *PNGSeqWriter) WriteFrame(img *image.NRGBA) error {
	s.buf.Reset()
	if err := s.enc.Encode(&s.buf, img); err != nil {
		return fmt.Errorf("encode frame %d: %w", s.n, err)
	}
	name := FrameName(s.n)
	s.n++

	if s.tw == nil {
		return os.WriteFile(filepath.Join(s.tmp, name), s.buf.Bytes(), 0644)
	}

	hdr := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(s.buf.Len()),
		ModTime: s.now,
	}
	if err := s.tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := s.tw.Write(s.buf.Bytes())
	return err
}

func (s *PNGSeqWriter) Close() error {
	if s.tw != nil {
		err := s.tw.Close()
		if cerr := s.zw.Close(); err == nil {
			err = cerr
		}
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(s.tmp)
			return fmt.Errorf("finish archive: %w", err)
		}
	}

	if err := os.Rename(s.tmp, s.path); err != nil {
		s.Abort()
		return err
	}
	return nil
}

func (s *PNGSeqWriter) Abort() error {
	if s.tw != nil {
		s.zw.Close()
		s.file.Close()
	}
	return os.RemoveAll(s.tmp)
}
