// Package engine drives a full export: frames are rendered by a worker pool
// and handed to the encoder strictly in order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/scene2video/internal/imaging"
	"github.com/ivlev/scene2video/internal/project"
	"github.com/ivlev/scene2video/internal/video"
	"github.com/ivlev/scene2video/internal/watermark"
)

// ErrNothingToExport is returned when the project yields zero frames.
var ErrNothingToExport = errors.New("project has no frames to export")

// FrameSource renders frames by index. Implementations must be safe for
// concurrent use.
type FrameSource interface {
	FrameCount() int
	RenderFrame(i int) *imaging.Canvas
}

// SinkOpener starts an encoder. video.Open is the default.
type SinkOpener func(ctx context.Context, path string, p video.Params) (video.Sink, error)

// Options describe one export.
type Options struct {
	Output       string
	Format       video.Format
	Quality      Quality
	Transparent  bool
	IncludeAudio bool
	Workers      int

	FFmpeg  string
	Encoder string
	CRF     int

	Watermark *watermark.Stamp
	// Progress receives the integer percentage of frames delivered. It is
	// called from a single goroutine, only when the value changes.
	Progress func(percent int)
}

// Stats summarize a finished export.
type Stats struct {
	Frames        int
	Width, Height int
	Elapsed       time.Duration
	FPS           float64
}

// Exporter renders a project and feeds an encoder.
type Exporter struct {
	Project *project.Project
	Frames  FrameSource
	Open    SinkOpener
	Log     zerolog.Logger

	pool *imaging.FramePool
}

// NewExporter creates an exporter writing through video.Open.
func NewExporter(p *project.Project, frames FrameSource, log zerolog.Logger) *Exporter {
	return &Exporter{
		Project: p,
		Frames:  frames,
		Open:    video.Open,
		Log:     log,
		pool:    imaging.NewFramePool(),
	}
}

type rendered struct {
	index  int
	img    *image.NRGBA
	pooled bool
}

// Run exports every frame. On error or cancellation the encoder is aborted
// and no output is left behind.
func (e *Exporter) Run(ctx context.Context, opts Options) (Stats, error) {
	start := time.Now()

	total := e.Frames.FrameCount()
	if total <= 0 {
		return Stats{}, ErrNothingToExport
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	w, h := opts.Quality.Fit(e.Project.Width, e.Project.Height)
	params := e.params(opts, w, h)

	e.Log.Info().
		Str("output", opts.Output).
		Str("format", string(opts.Format)).
		Str("quality", opts.Quality.Name).
		Int("width", w).Int("height", h).Int("fps", e.Project.FPS).
		Int("frames", total).Int("workers", workers).
		Msg("export started")

	if e.pool == nil {
		e.pool = imaging.NewFramePool()
	}
	open := e.Open
	if open == nil {
		open = video.Open
	}
	sink, err := open(ctx, opts.Output, params)
	if err != nil {
		return Stats{}, fmt.Errorf("open encoder: %w", err)
	}

	if err := e.pipeline(ctx, sink, opts, total, workers, w, h); err != nil {
		if aerr := sink.Abort(); aerr != nil {
			e.Log.Warn().Err(aerr).Msg("failed to remove partial output")
		}
		return Stats{}, err
	}
	if err := sink.Close(); err != nil {
		return Stats{}, fmt.Errorf("finish encoding: %w", err)
	}

	elapsed := time.Since(start)
	stats := Stats{
		Frames:  total,
		Width:   w,
		Height:  h,
		Elapsed: elapsed,
		FPS:     float64(total) / elapsed.Seconds(),
	}
	e.Log.Info().Dur("elapsed", elapsed).Float64("fps", stats.FPS).Msg("export finished")
	return stats, nil
}

// pipeline fans frame indices out to workers and writes their output in
// index order. At most 2×workers frames are in flight at any time.
func (e *Exporter) pipeline(ctx context.Context, sink video.Sink, opts Options, total, workers, w, h int) error {
	g, ctx := errgroup.WithContext(ctx)

	window := make(chan struct{}, 2*workers)
	jobs := make(chan int)
	results := make(chan rendered, 2*workers)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < total; i++ {
			select {
			case window <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for n := 0; n < workers; n++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				r := e.renderFrame(i, opts.Watermark, w, h)
				select {
				case results <- r:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	g.Go(func() error {
		pending := make(map[int]rendered, 2*workers)
		next, lastPercent := 0, -1
		for r := range results {
			pending[r.index] = r
			for {
				cur, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)

				err := sink.WriteFrame(cur.img)
				if cur.pooled {
					e.pool.Put(cur.img)
				}
				if err != nil {
					return fmt.Errorf("write frame %d: %w", next, err)
				}
				<-window
				next++

				if percent := next * 100 / total; percent != lastPercent {
					lastPercent = percent
					if opts.Progress != nil {
						opts.Progress(percent)
					}
				}
			}
		}
		if next < total {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("export stopped after %d of %d frames", next, total)
		}
		return nil
	})

	return g.Wait()
}

func (e *Exporter) renderFrame(i int, stamp *watermark.Stamp, w, h int) rendered {
	canvas := e.Frames.RenderFrame(i)
	if stamp != nil {
		stamp.Apply(canvas)
	}

	src := canvas.Img
	if src.Rect.Dx() == w && src.Rect.Dy() == h {
		return rendered{index: i, img: src}
	}
	dst := e.pool.Get(w, h)
	imaging.ResizeInto(dst, src)
	return rendered{index: i, img: dst, pooled: true}
}

func (e *Exporter) params(opts Options, w, h int) video.Params {
	transparent := opts.Transparent && opts.Format.SupportsAlpha()
	if opts.Transparent && !transparent {
		e.Log.Warn().Str("format", string(opts.Format)).Msg("format has no alpha channel, exporting opaque")
	}

	p := video.Params{
		Format:      opts.Format,
		Width:       w,
		Height:      h,
		FPS:         e.Project.FPS,
		Bitrate:     opts.Quality.Bitrate,
		Transparent: transparent,
		FFmpeg:      opts.FFmpeg,
		Encoder:     opts.Encoder,
		Quality:     opts.CRF,
	}

	if opts.IncludeAudio && opts.Format.SupportsAudio() && len(e.Project.Audio) > 0 {
		track := e.Project.Audio[0]
		path := track.Path
		if path != "" && !filepath.IsAbs(path) && e.Project.Root != "" {
			path = filepath.Join(e.Project.Root, path)
		}
		p.Audio = &video.Audio{Path: path, Offset: track.StartTime, Volume: track.Volume}
		if len(e.Project.Audio) > 1 {
			e.Log.Warn().Int("tracks", len(e.Project.Audio)).Msg("only the first audio track is exported")
		}
	}
	return p
}
