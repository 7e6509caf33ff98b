package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/scene2video/internal/assets"
	"github.com/ivlev/scene2video/internal/config"
	"github.com/ivlev/scene2video/internal/engine"
	"github.com/ivlev/scene2video/internal/logging"
	"github.com/ivlev/scene2video/internal/project"
	"github.com/ivlev/scene2video/internal/scene"
	"github.com/ivlev/scene2video/internal/system"
	"github.com/ivlev/scene2video/internal/text"
	"github.com/ivlev/scene2video/internal/timeline"
	"github.com/ivlev/scene2video/internal/video"
	"github.com/ivlev/scene2video/internal/watermark"
)

// Default locations used when -project or -output are omitted.
const (
	projectsDir = "input/projects"
	outputDir   = "output"
)

const usage = `usage: scene2video <command> [flags]

commands:
  render   export a project to video, GIF or PNG frames
  preview  render a single frame of one scene to PNG
  probe    show the detected encoder and worker sizing
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(os.Args[2:])
	case "preview":
		err = runPreview(os.Args[2:])
	case "probe":
		err = runProbe(os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "[-] %v\n", err)
		os.Exit(1)
	}
}

// setup loads the config and builds the logger shared by every command.
func setup(cfgPath string) (config.Config, zerolog.Logger, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, zerolog.Nop(), nil, err
	}
	log, closer, err := logging.Open(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return config.Config{}, zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	return cfg, log, func() { closer.Close() }, nil
}

// loadProject reads and compiles a project file, picking the newest project
// in input/projects when path is empty.
func loadProject(path string, log zerolog.Logger) (*project.Project, error) {
	if path == "" {
		latest, err := system.FindLatest(projectsDir, ".yaml", ".yml")
		if err != nil {
			return nil, fmt.Errorf("%w. Pass -project or put a project in %s/", err, projectsDir)
		}
		path = latest
		log.Info().Str("project", path).Msg("using latest project")
	}

	p, err := project.Read(path)
	if err != nil {
		return nil, err
	}
	if err := p.Compile(log); err != nil {
		return nil, fmt.Errorf("invalid project %s: %w", path, err)
	}
	return p, nil
}

// newTimeline wires the asset cache, text and scene renderers for p.
func newTimeline(p *project.Project, cfg config.Config, transparent bool, log zerolog.Logger) (*timeline.Timeline, *text.Renderer, error) {
	cache := assets.NewCache(p.Root, assets.FileDecoder{DPI: cfg.DPI}, log)
	txt, err := text.NewRenderer(cfg.FontPath)
	if err != nil {
		return nil, nil, err
	}
	return timeline.New(p, scene.New(p, cache, txt, transparent, log)), txt, nil
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	projectPtr := fs.String("project", "", "Project YAML (default: newest file in input/projects/)")
	outputPtr := fs.String("output", "", "Output path (default: generated in output/)")
	formatPtr := fs.String("format", "", "Format: mp4, webm, gif, mov, png_sequence (default from config)")
	qualityPtr := fs.String("quality", "", "Quality: low, medium, high, ultra (default from config)")
	transparentPtr := fs.Bool("transparent", false, "Transparent background (webm, mov, gif, png_sequence)")
	noAudioPtr := fs.Bool("no-audio", false, "Do not mux the project's audio track")
	workersPtr := fs.Int("workers", 0, "Render workers (0: from config, else CPU and memory)")
	configPtr := fs.String("config", "", "Config file (default: ./scene2video.yaml when present)")
	fs.Parse(args)

	cfg, log, done, err := setup(*configPtr)
	if err != nil {
		return err
	}
	defer done()

	p, err := loadProject(*projectPtr, log)
	if err != nil {
		return err
	}

	formatName := *formatPtr
	if formatName == "" {
		formatName = cfg.Format
	}
	format, err := video.ParseFormat(formatName)
	if err != nil {
		return err
	}

	qualityName := *qualityPtr
	if qualityName == "" {
		qualityName = cfg.Quality
	}
	quality, err := engine.ParseQuality(qualityName)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	encoder := cfg.VideoEncoder
	if encoder == "" && format == video.MP4 {
		encoder = system.BestH264Encoder(ctx, cfg.FFmpeg)
		if encoder != "libx264" {
			log.Info().Str("encoder", encoder).Msg("hardware acceleration detected")
		}
	}

	workers := *workersPtr
	if workers <= 0 {
		workers = cfg.Workers
	}
	if workers <= 0 {
		workers = system.Probe().Workers(p.Width, p.Height)
	}

	if total := p.TotalDuration(); total+1e-9 < p.Duration {
		log.Warn().Float64("duration", p.Duration).Float64("scenes", total).
			Msg("project outlasts its scenes, the last frame is held")
	}

	includeAudio := !*noAudioPtr && len(p.Audio) > 0
	if includeAudio && format.SupportsAudio() {
		checkAudio(ctx, p, cfg, log)
	}

	transparent := *transparentPtr && format.SupportsAlpha()
	tl, txt, err := newTimeline(p, cfg, transparent, log)
	if err != nil {
		return err
	}

	var stamp *watermark.Stamp
	if cfg.Watermark.Enabled {
		stamp, err = watermark.New(watermark.Options{
			URL:     cfg.Watermark.URL,
			Caption: cfg.Watermark.Caption,
			Size:    cfg.Watermark.Size,
			Margin:  cfg.Watermark.Margin,
			Opacity: cfg.Watermark.Opacity,
		}, txt)
		if err != nil {
			return fmt.Errorf("watermark: %w", err)
		}
	}

	output := *outputPtr
	if output == "" {
		output = defaultOutput(p, format)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return err
	}

	exp := engine.NewExporter(p, tl, log)
	stats, err := exp.Run(ctx, engine.Options{
		Output:       output,
		Format:       format,
		Quality:      quality,
		Transparent:  *transparentPtr,
		IncludeAudio: includeAudio,
		Workers:      workers,
		FFmpeg:       cfg.FFmpeg,
		Encoder:      encoder,
		CRF:          cfg.CRF,
		Watermark:    stamp,
		Progress: func(percent int) {
			fmt.Printf("\r[>] Rendering: %3d%%", percent)
		},
	})
	fmt.Println()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("[+++] Done: %s (%d frames, %dx%d, %.1f fps)\n", output, stats.Frames, stats.Width, stats.Height, stats.FPS)
	return nil
}

// checkAudio reports an audio track that runs past the end of the video; it
// is cut at the last frame.
func checkAudio(ctx context.Context, p *project.Project, cfg config.Config, log zerolog.Logger) {
	path := p.Audio[0].Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.Root, path)
	}
	d, err := system.MediaDuration(ctx, cfg.FFprobe, path)
	if err != nil {
		log.Warn().Err(err).Msg("could not read audio duration")
		return
	}
	if end := p.Audio[0].StartTime + d; end > p.Duration {
		log.Info().Float64("audio_end", end).Float64("duration", p.Duration).Msg("audio is cut at the end of the video")
	}
}

// defaultOutput names the export after the project and the current time.
func defaultOutput(p *project.Project, format video.Format) string {
	name := strings.ReplaceAll(strings.TrimSpace(p.Name), " ", "_")
	if name == "" {
		name = "project"
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	base := fmt.Sprintf("%s_%s", name, timestamp)
	if format != video.PNGSequence {
		base += "." + string(format)
	}
	return filepath.Join(outputDir, base)
}

func runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	projectPtr := fs.String("project", "", "Project YAML (default: newest file in input/projects/)")
	scenePtr := fs.Int("scene", 0, "Scene position on the timeline")
	framePtr := fs.Int("frame", 0, "Frame number within the scene")
	outputPtr := fs.String("output", "preview.png", "Output PNG")
	transparentPtr := fs.Bool("transparent", false, "Transparent background")
	configPtr := fs.String("config", "", "Config file (default: ./scene2video.yaml when present)")
	fs.Parse(args)

	cfg, log, done, err := setup(*configPtr)
	if err != nil {
		return err
	}
	defer done()

	p, err := loadProject(*projectPtr, log)
	if err != nil {
		return err
	}
	tl, _, err := newTimeline(p, cfg, *transparentPtr, log)
	if err != nil {
		return err
	}

	canvas, err := tl.Preview(*scenePtr, *framePtr)
	if err != nil {
		return err
	}

	f, err := os.Create(*outputPtr)
	if err != nil {
		return err
	}
	if err := png.Encode(f, canvas.Img); err != nil {
		f.Close()
		os.Remove(*outputPtr)
		return fmt.Errorf("encode preview: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("[+] Preview saved: %s\n", *outputPtr)
	return nil
}

func runProbe(args []string) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	configPtr := fs.String("config", "", "Config file (default: ./scene2video.yaml when present)")
	fs.Parse(args)

	cfg, _, done, err := setup(*configPtr)
	if err != nil {
		return err
	}
	defer done()

	res := system.Probe()
	fmt.Printf("[*] H.264 encoder: %s\n", system.BestH264Encoder(context.Background(), cfg.FFmpeg))
	fmt.Printf("[*] CPUs: %d | Available memory: %d MiB\n", res.CPUs, res.AvailableMemory>>20)
	for _, name := range []string{"low", "medium", "high", "ultra"} {
		q := engine.Qualities[name]
		fmt.Printf("[*] Workers for %-6s (%dx%d): %d\n", name, q.Width, q.Height, res.Workers(q.Width, q.Height))
	}
	return nil
}
