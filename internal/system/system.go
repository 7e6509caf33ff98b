// Package system probes the host: available encoders, CPU and memory, and
// media metadata through ffprobe.
package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// BestH264Encoder picks a hardware H.264 encoder when ffmpeg offers one and
// falls back to libx264. Preference: VideoToolbox (macOS), then NVENC.
func BestH264Encoder(ctx context.Context, ffmpeg string) string {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	out, err := exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(listing string) string {
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(listing, name) {
			return name
		}
	}
	return "libx264"
}

// Resources describe the host as seen at startup.
type Resources struct {
	CPUs            int
	AvailableMemory uint64 // bytes
}

// Probe reads CPU and memory figures. Anything gopsutil cannot read falls
// back to the Go runtime's view, with memory reported as unknown (0).
func Probe() Resources {
	r := Resources{CPUs: runtime.NumCPU()}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		r.CPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		r.AvailableMemory = vm.Available
	}
	return r
}

// framesPerWorker approximates the full-size buffers one worker keeps alive:
// its canvas, a transformed layer, a camera copy and its share of the
// delivery window.
const framesPerWorker = 5

// Workers sizes the render pool: one worker per CPU, capped so that the
// buffers of all workers fit in half of the available memory.
func (r Resources) Workers(width, height int) int {
	n := max(r.CPUs, 1)
	if r.AvailableMemory == 0 || width <= 0 || height <= 0 {
		return n
	}
	perWorker := uint64(width) * uint64(height) * 4 * framesPerWorker
	if byMem := int(r.AvailableMemory / 2 / perWorker); byMem < n {
		n = max(byMem, 1)
	}
	return n
}

// MediaDuration asks ffprobe for a media file's duration in seconds.
func MediaDuration(ctx context.Context, ffprobe, path string) (float64, error) {
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, ffprobe, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w, output: %s", path, err, strings.TrimSpace(string(out)))
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: unexpected output %q", path, out)
	}
	return d, nil
}

// FindLatest returns the most recently modified file in dir whose extension
// is one of exts (case-insensitive).
func FindLatest(dir string, exts ...string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExt(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if latestFile == "" || info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %s files in %s", strings.Join(exts, "/"), dir)
	}
	return latestFile, nil
}

func hasExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
