package process

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/trainmesh/internal/testutil"
)

func TestTool_Analyze(t *testing.T) {
	testutil.EnableTrainer(t)
	base := t.TempDir()

	err := NewTool(testutil.TrainerCommand()...).Analyze(context.Background(), base)
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(base, AnalysisLogName))
	require.NoError(t, err)
	assert.Contains(t, string(out), "analyzed "+base)
}

func TestTool_Errors(t *testing.T) {
	base := t.TempDir()
	assert.Error(t, NewTool().Analyze(context.Background(), base))
	assert.Error(t, NewTool(filepath.Join(base, "missing-tool")).Analyze(context.Background(), base))
}
