package jobspec

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/trainmesh/core"
)

// DefaultLogFreq is the trainer's own default for -log_freq; the flag is only
// forwarded when a different value is requested.
const DefaultLogFreq = 10

// Reserved flags are always set by the builder and cannot be overridden.
// Keys are bare names so "-seed", "--seed" and "-seed=3" all match.
var reservedFlags = map[string]struct{}{
	"env":    {},
	"seed":   {},
	"logdir": {},
}

// Params holds the typed training overrides passed through to the trainer.
// Zero values mean "not set". Extra carries any additional pass-through flag;
// an empty value renders as a bare switch.
type Params struct {
	PopSize        int               `yaml:"popsize,omitempty" json:"popsize,omitempty"`
	RolloutSize    int               `yaml:"rollout_size,omitempty" json:"rollout_size,omitempty"`
	NumFrames      int               `yaml:"num_frames,omitempty" json:"num_frames,omitempty"`
	UseCUDA        bool              `yaml:"use_cuda,omitempty" json:"use_cuda,omitempty"`
	UseTensorBoard bool              `yaml:"use_tensorboard,omitempty" json:"use_tensorboard,omitempty"`
	TensorBoardDir string            `yaml:"tensorboard_dir,omitempty" json:"tensorboard_dir,omitempty"`
	LogWeights     bool              `yaml:"log_weights,omitempty" json:"log_weights,omitempty"`
	LogFreq        int               `yaml:"log_freq,omitempty" json:"log_freq,omitempty"`
	Extra          map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// IsZero reports whether no override is set.
func (p Params) IsZero() bool {
	return len(p.Args()) == 0
}

// Merge returns a copy of p where every field set in other overrides p.
func (p Params) Merge(other Params) Params {
	out := p
	if other.PopSize != 0 {
		out.PopSize = other.PopSize
	}
	if other.RolloutSize != 0 {
		out.RolloutSize = other.RolloutSize
	}
	if other.NumFrames != 0 {
		out.NumFrames = other.NumFrames
	}
	out.UseCUDA = p.UseCUDA || other.UseCUDA
	out.UseTensorBoard = p.UseTensorBoard || other.UseTensorBoard
	out.LogWeights = p.LogWeights || other.LogWeights
	if other.TensorBoardDir != "" {
		out.TensorBoardDir = other.TensorBoardDir
	}
	if other.LogFreq != 0 {
		out.LogFreq = other.LogFreq
	}
	out.Extra = make(map[string]string, len(p.Extra)+len(other.Extra))
	for k, v := range p.Extra {
		out.Extra[k] = v
	}
	for k, v := range other.Extra {
		out.Extra[k] = v
	}
	return out
}

// Validate checks the overrides before any argv is rendered.
func (p Params) Validate() error {
	for field, v := range map[string]int{
		"popsize":      p.PopSize,
		"rollout_size": p.RolloutSize,
		"num_frames":   p.NumFrames,
		"log_freq":     p.LogFreq,
	} {
		if v < 0 {
			return core.NewConfigurationError(field, "must not be negative, got %d", v)
		}
	}
	for k := range p.Extra {
		flag := flagName(k)
		if strings.Trim(flag, "-") == "" {
			return core.NewConfigurationError("extra", "empty flag name")
		}
		if _, ok := reservedFlags[bareFlag(flag)]; ok {
			return core.NewConfigurationError("extra", "flag %s is set by the orchestrator", flag)
		}
	}
	return nil
}

func bareFlag(flag string) string {
	name := strings.TrimLeft(flag, "-")
	if i := strings.IndexByte(name, '='); i >= 0 {
		name = name[:i]
	}
	return name
}

// Args renders the overrides as ordered flag/value pairs.
func (p Params) Args() []string {
	var args []string
	for _, f := range p.flags() {
		args = append(args, f.name)
		if f.value != "" {
			args = append(args, f.value)
		}
	}
	return args
}

// Map returns the rendered overrides keyed by flag. Bare switches map to "".
func (p Params) Map() map[string]string {
	fs := p.flags()
	m := make(map[string]string, len(fs))
	for _, f := range fs {
		m[f.name] = f.value
	}
	return m
}

type flagValue struct {
	name  string
	value string
}

func (p Params) flags() []flagValue {
	var fs []flagValue
	if p.PopSize > 0 {
		fs = append(fs, flagValue{"-popsize", strconv.Itoa(p.PopSize)})
	}
	if p.RolloutSize > 0 {
		fs = append(fs, flagValue{"-rollout_size", strconv.Itoa(p.RolloutSize)})
	}
	if p.NumFrames > 0 {
		fs = append(fs, flagValue{"-num_frames", strconv.Itoa(p.NumFrames)})
	}
	if p.UseCUDA {
		fs = append(fs, flagValue{name: "-use_cuda"})
	}
	if p.UseTensorBoard {
		fs = append(fs, flagValue{name: "-use_tensorboard"})
		if p.TensorBoardDir != "" {
			fs = append(fs, flagValue{"-tensorboard_dir", p.TensorBoardDir})
		}
		if p.LogWeights {
			fs = append(fs, flagValue{name: "-log_weights"})
		}
		if p.LogFreq > 0 && p.LogFreq != DefaultLogFreq {
			fs = append(fs, flagValue{"-log_freq", strconv.Itoa(p.LogFreq)})
		}
	}

	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fs = append(fs, flagValue{flagName(k), p.Extra[k]})
	}
	return fs
}

func flagName(k string) string {
	k = strings.TrimSpace(k)
	if strings.HasPrefix(k, "-") {
		return k
	}
	return "-" + k
}
