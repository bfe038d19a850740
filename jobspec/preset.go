package jobspec

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/trainmesh/core"
)

// DefaultPreset is used when neither seeds nor a preset are given.
const DefaultPreset = "standard"

// Preset is a named seed list plus default training overrides.
type Preset struct {
	Name        string `yaml:"-"`
	Description string `yaml:"description"`
	Seeds       []int  `yaml:"seeds"`
	Params      Params `yaml:"params"`
}

// PresetSet maps preset names to presets.
type PresetSet map[string]Preset

// DefaultPresets returns the built-in presets.
func DefaultPresets() PresetSet {
	return PresetSet{
		"quick_test": {
			Name:        "quick_test",
			Description: "Quick test (3 seeds, fewer training frames)",
			Seeds:       []int{1, 2, 3},
			Params:      Params{PopSize: 5, RolloutSize: 5, NumFrames: 50000},
		},
		"standard": {
			Name:        "standard",
			Description: "Standard experiment (5 seeds)",
			Seeds:       []int{1, 2, 3, 4, 5},
		},
		"comprehensive": {
			Name:        "comprehensive",
			Description: "Comprehensive experiment (10 seeds)",
			Seeds:       []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
		"custom_seeds": {
			Name:        "custom_seeds",
			Description: "Custom seeds",
			Seeds:       []int{7, 42, 123, 456, 789},
		},
		"gpu_optimized": {
			Name:        "gpu_optimized",
			Description: "GPU optimized (5 seeds, 16G VRAM, TensorBoard enabled)",
			Seeds:       []int{1, 2, 3, 4, 5},
			Params: Params{
				PopSize:        10,
				RolloutSize:    10,
				NumFrames:      1000000,
				UseCUDA:        true,
				UseTensorBoard: true,
				LogWeights:     true,
			},
		},
	}
}

type presetFile struct {
	Presets map[string]Preset `yaml:"presets"`
}

// LoadPresets returns the built-in presets overlaid with the presets defined
// in the YAML file at path. An empty path returns the built-ins.
func LoadPresets(path string) (PresetSet, error) {
	set := DefaultPresets()
	if path == "" {
		return set, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewConfigurationError("preset_file", "cannot read %s: %v", path, err)
	}
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, core.NewConfigurationError("preset_file", "invalid YAML in %s: %v", path, err)
	}
	for name, p := range f.Presets {
		if len(p.Seeds) == 0 {
			return nil, core.NewConfigurationError("preset_file", "preset %q has no seeds", name)
		}
		if err := p.Params.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		p.Name = name
		set[name] = p
	}
	return set, nil
}

// Get returns the named preset or a ConfigurationError listing the valid names.
func (s PresetSet) Get(name string) (Preset, error) {
	p, ok := s[name]
	if !ok {
		return Preset{}, core.NewConfigurationError("preset", "unknown preset %q (available: %s)", name, strings.Join(s.Names(), ", "))
	}
	return p, nil
}

// Names returns the preset names in sorted order.
func (s PresetSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Describe prints every preset with its seeds and overrides.
func (s PresetSet) Describe(w io.Writer) {
	fmt.Fprintln(w, "Available presets:")
	for _, name := range s.Names() {
		p := s[name]
		fmt.Fprintf(w, "  %s: %s\n", name, p.Description)
		fmt.Fprintf(w, "    seeds: %v\n", p.Seeds)
		if args := p.Params.Args(); len(args) > 0 {
			fmt.Fprintf(w, "    args: %s\n", strings.Join(args, " "))
		}
		fmt.Fprintln(w)
	}
}
