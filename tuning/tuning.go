// Package tuning loads named parameter presets from YAML and turns them into robot commands
package tuning

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/calvinmclean/linefollower/settings"
)

const currentVersion = 1

var ErrUnknownPreset = errors.New("unknown preset")

// File is a tuning file with any number of presets
type File struct {
	Version int               `yaml:"version"`
	Presets map[string]Preset `yaml:"presets"`
}

// Preset has a value for each setting that should change. Empty values keep the robot's current option.
type Preset struct {
	Throttle      string `yaml:"throttle,omitempty"`
	LoopPeriod    string `yaml:"loop_period,omitempty"`
	ReactionRate  string `yaml:"reaction_rate,omitempty"`
	ReactionLimit string `yaml:"reaction_limit,omitempty"`
	Display       *bool  `yaml:"display,omitempty"`
}

// Load reads and parses a tuning file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading tuning file: %w", err)
	}
	return Parse(data)
}

// Parse parses a tuning file
func Parse(data []byte) (*File, error) {
	var f File
	err := yaml.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("error parsing tuning file: %w", err)
	}

	if f.Version != currentVersion {
		return nil, fmt.Errorf("unsupported tuning file version %d", f.Version)
	}

	for name, p := range f.Presets {
		_, err = p.Commands()
		if err != nil {
			return nil, fmt.Errorf("invalid preset %q: %w", name, err)
		}
	}

	return &f, nil
}

// Preset returns a preset by name
func (f *File) Preset(name string) (Preset, error) {
	p, ok := f.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// Names returns the sorted preset names
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Presets))
	for name := range f.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Preset) values() map[settings.Field]string {
	values := map[settings.Field]string{
		settings.FieldThrottle:      p.Throttle,
		settings.FieldLoopPeriod:    p.LoopPeriod,
		settings.FieldReactionRate:  p.ReactionRate,
		settings.FieldReactionLimit: p.ReactionLimit,
	}
	if p.Display != nil {
		values[settings.FieldDisplay] = "off"
		if *p.Display {
			values[settings.FieldDisplay] = "on"
		}
	}
	return values
}

// Commands returns the set-index command for every field in the preset, in field order
func (p Preset) Commands() ([]string, error) {
	values := p.values()

	var cmds []string
	for _, f := range settings.Fields {
		v := values[f]
		if v == "" {
			continue
		}

		i, err := settings.IndexOf(f, v)
		if err != nil {
			return nil, err
		}
		if i > 9 {
			return nil, fmt.Errorf("option %d of %s cannot be sent as a single digit", i, f)
		}

		cmds = append(cmds, "W"+string(f.Key())+strconv.Itoa(i))
	}
	return cmds, nil
}
