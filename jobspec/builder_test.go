package jobspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/trainmesh/core"
)

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder("exp", "python3", "run_pderl.py")
	specs, err := b.Build("Hopper", []int{1, 2, 3}, Params{})
	require.NoError(t, err)
	require.Len(t, specs, 3)

	for i, seed := range []int{1, 2, 3} {
		s := specs[i]
		assert.Equal(t, core.JobName("Hopper", seed), s.Name)
		assert.Equal(t, "Hopper", s.WorkloadID)
		assert.Equal(t, seed, s.Seed)
		assert.Equal(t, filepath.Join("exp", s.Name), s.WorkingDir)
	}
	assert.Equal(t, []string{
		"python3", "run_pderl.py",
		"-env", "Hopper", "-seed", "1", "-logdir", filepath.Join("exp", "Hopper_seed_1"),
	}, specs[0].Argv)
}

func TestBuilder_BuildIsPure(t *testing.T) {
	base := filepath.Join(t.TempDir(), "not-yet")
	_, err := NewBuilder(base, "trainer").Build("Hopper", []int{1}, Params{})
	require.NoError(t, err)
	_, statErr := os.Stat(base)
	assert.True(t, os.IsNotExist(statErr), "builder must not create directories")
}

func TestBuilder_AppendsOverrides(t *testing.T) {
	params := Params{PopSize: 5, UseCUDA: true, Extra: map[string]string{"novelty": "", "-mut_mag": "0.1"}}
	specs, err := NewBuilder("exp", "trainer").Build("Hopper", []int{7}, params)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"trainer", "-env", "Hopper", "-seed", "7", "-logdir", filepath.Join("exp", "Hopper_seed_7"),
		"-popsize", "5", "-use_cuda", "-mut_mag", "0.1", "-novelty",
	}, specs[0].Argv)
	assert.Equal(t, map[string]string{"-popsize": "5", "-use_cuda": "", "-mut_mag": "0.1", "-novelty": ""}, specs[0].ExtraParams)
}

func TestBuilder_ConfigurationErrors(t *testing.T) {
	b := NewBuilder("exp", "trainer")
	tests := []struct {
		name     string
		builder  *Builder
		workload string
		seeds    []int
		params   Params
		field    string
	}{
		{"empty seeds", b, "Hopper", nil, Params{}, "seeds"},
		{"duplicate seeds", b, "Hopper", []int{1, 2, 1}, Params{}, "seeds"},
		{"missing workload", b, " ", []int{1}, Params{}, "workload"},
		{"workload with separator", b, "a/b", []int{1}, Params{}, "workload"},
		{"missing executable", NewBuilder("exp"), "Hopper", []int{1}, Params{}, "executable"},
		{"negative popsize", b, "Hopper", []int{1}, Params{PopSize: -1}, "popsize"},
		{"reserved flag", b, "Hopper", []int{1}, Params{Extra: map[string]string{"seed": "3"}}, "extra"},
		{"reserved flag with double dash", b, "Hopper", []int{1}, Params{Extra: map[string]string{"--env": "Walker2d"}}, "extra"},
		{"reserved flag with inline value", b, "Hopper", []int{1}, Params{Extra: map[string]string{"-logdir=/tmp": ""}}, "extra"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build(tt.workload, tt.seeds, tt.params)
			require.Error(t, err)
			var ce *core.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestEnsureBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureBaseDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	err = EnsureBaseDir(filepath.Join(file, "sub"))
	assert.True(t, core.IsConfigurationError(err))

	assert.True(t, core.IsConfigurationError(EnsureBaseDir("")))
}

func TestParseSeeds(t *testing.T) {
	seeds, err := ParseSeeds("1,2, 3 4")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, seeds)

	_, err = ParseSeeds("")
	assert.True(t, core.IsConfigurationError(err))

	_, err = ParseSeeds("1,x")
	assert.True(t, core.IsConfigurationError(err))
}
