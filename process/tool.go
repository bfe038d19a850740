package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hupe1980/trainmesh/core"
)

// AnalysisLogName receives the output of the post-run reporting tool.
const AnalysisLogName = "analysis.log"

// Tool runs the external reporting/plotting collaborator as
// `<argv...> -dir <base_dir>` once the experiment has finished.
type Tool struct {
	Argv []string
}

// Interface compliance (compile-time assertion)
var _ core.ReportTool = (*Tool)(nil)

// NewTool returns a Tool for the given command prefix.
func NewTool(argv ...string) *Tool {
	return &Tool{Argv: argv}
}

// Analyze runs the tool and appends its combined output to
// <baseDir>/analysis.log.
func (t *Tool) Analyze(ctx context.Context, baseDir string) error {
	if len(t.Argv) == 0 {
		return errors.New("report tool: empty command")
	}
	f, err := os.OpenFile(filepath.Join(baseDir, AnalysisLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("report tool: open log: %w", err)
	}
	defer f.Close()

	args := append(append([]string{}, t.Argv[1:]...), "-dir", baseDir)
	cmd := exec.CommandContext(ctx, t.Argv[0], args...)
	cmd.Stdout = f
	cmd.Stderr = f
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("report tool %s: %w", t.Argv[0], err)
	}
	return f.Sync()
}
