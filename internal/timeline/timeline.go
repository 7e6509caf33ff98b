// Package timeline maps project time onto scenes and renders frames.
package timeline

import (
	"fmt"
	"math"

	"github.com/ivlev/scene2video/internal/imaging"
	"github.com/ivlev/scene2video/internal/project"
	"github.com/ivlev/scene2video/internal/scene"
)

// Locate finds the scene playing at project time t and the time within it.
// Scenes follow each other in timeline order. Times before the start clamp
// to the first scene's first instant and times at or past the end clamp to
// the last scene's final instant. ok is false only for a project with no
// scenes.
func Locate(p *project.Project, t float64) (s *project.Scene, local float64, ok bool) {
	scenes := p.Timeline()
	if len(scenes) == 0 {
		return nil, 0, false
	}
	if t < 0 || math.IsNaN(t) {
		return scenes[0], 0, true
	}

	acc := 0.0
	for _, s := range scenes {
		if t < acc+s.Duration {
			return s, t - acc, true
		}
		acc += s.Duration
	}

	last := scenes[len(scenes)-1]
	return last, last.Duration, true
}

// Timeline renders frames of a compiled project.
type Timeline struct {
	Project *project.Project
	Scenes  *scene.Renderer
}

// New binds a scene renderer to a project.
func New(p *project.Project, r *scene.Renderer) *Timeline {
	return &Timeline{Project: p, Scenes: r}
}

// FrameCount is the number of frames an export of the project produces.
func (tl *Timeline) FrameCount() int {
	return FrameCount(tl.Project.Duration, tl.Project.FPS)
}

// FrameCount returns round(duration × fps), never negative.
func FrameCount(duration float64, fps int) int {
	n := int(math.Round(duration * float64(fps)))
	if n < 0 {
		return 0
	}
	return n
}

// RenderAt renders the frame shown at project time t.
func (tl *Timeline) RenderAt(t float64) *imaging.Canvas {
	s, local, ok := Locate(tl.Project, t)
	if !ok {
		return tl.Scenes.Blank()
	}
	return tl.Scenes.Render(s, local)
}

// RenderFrame renders frame i, shown at time i/fps.
func (tl *Timeline) RenderFrame(i int) *imaging.Canvas {
	return tl.RenderAt(float64(i) / float64(tl.Project.FPS))
}

// Preview renders frame number frame of the scene at timeline position
// index, measured from the start of that scene.
func (tl *Timeline) Preview(index, frame int) (*imaging.Canvas, error) {
	scenes := tl.Project.Timeline()
	if index < 0 || index >= len(scenes) {
		return nil, fmt.Errorf("scene %d out of range [0, %d)", index, len(scenes))
	}
	if frame < 0 {
		return nil, fmt.Errorf("frame %d must not be negative", frame)
	}
	return tl.Scenes.Render(scenes[index], float64(frame)/float64(tl.Project.FPS)), nil
}
