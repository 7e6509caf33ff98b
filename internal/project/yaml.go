package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Read loads a project file. Relative asset paths resolve against the
// file's directory.
func Read(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	p.Root = filepath.Dir(path)
	return p, nil
}

// Parse decodes a project document, filling omitted fields with defaults.
func Parse(data []byte) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Write saves a project as YAML.
func Write(p *Project, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Defaults are applied by decoding on top of pre-filled values: keys present
// in the document win, absent keys keep the default.

func (p *Project) UnmarshalYAML(n *yaml.Node) error {
	type plain Project
	v := plain{Version: "1.0", Width: 1920, Height: 1080, FPS: 30, Duration: 10}
	if err := n.Decode(&v); err != nil {
		return err
	}
	*p = Project(v)
	return nil
}

func (s *Scene) UnmarshalYAML(n *yaml.Node) error {
	type plain Scene
	v := plain{Duration: 5, BackgroundColor: "#FFFFFF", Camera: Camera{Zoom: 1}}
	if err := n.Decode(&v); err != nil {
		return err
	}
	*s = Scene(v)
	return nil
}

func (sc *SceneCharacter) UnmarshalYAML(n *yaml.Node) error {
	type plain SceneCharacter
	v := plain{Scale: 1}
	if err := n.Decode(&v); err != nil {
		return err
	}
	*sc = SceneCharacter(v)
	return nil
}

func (a *Animation) UnmarshalYAML(n *yaml.Node) error {
	type plain Animation
	v := plain{Duration: 2, SpeedMultiplier: 1, Easing: "linear"}
	if err := n.Decode(&v); err != nil {
		return err
	}
	*a = Animation(v)
	return nil
}

func (o *TextOverlay) UnmarshalYAML(n *yaml.Node) error {
	type plain TextOverlay
	v := plain{
		X:               50,
		Y:               90,
		FontSize:        24,
		FontFamily:      "Arial",
		Color:           "#FFFFFF",
		BackgroundColor: "#00000080",
		Animation:       OverlayFade,
		Duration:        3,
	}
	if err := n.Decode(&v); err != nil {
		return err
	}
	*o = TextOverlay(v)
	return nil
}

func (a *AudioTrack) UnmarshalYAML(n *yaml.Node) error {
	type plain AudioTrack
	v := plain{Volume: 1}
	if err := n.Decode(&v); err != nil {
		return err
	}
	*a = AudioTrack(v)
	return nil
}
