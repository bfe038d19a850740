package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/trainmesh/core"
	"github.com/hupe1980/trainmesh/logging"
)

const (
	// FormatJSON writes experiment_report.json.
	FormatJSON = "json"
	// FormatYAML writes experiment_report.yaml.
	FormatYAML = "yaml"

	// FileBaseName is the report file name without extension.
	FileBaseName = "experiment_report"
	// DefaultArtifactPattern matches the model files a trainer writes.
	DefaultArtifactPattern = "*.pkl"
)

// Meta carries the run-level facts a report is built from.
type Meta struct {
	RunID     string
	Workload  string
	Start     time.Time
	End       time.Time
	Cancelled bool
}

// Options configures a Reporter.
type Options struct {
	Format          string
	ArtifactPattern string
	// Now stamps generated reports.
	Now    func() time.Time
	Logger logging.Logger
}

// Reporter turns results into persisted reports for one base directory.
type Reporter struct {
	baseDir string
	opts    Options
}

// New creates a Reporter writing into baseDir.
func New(baseDir string, optFns ...func(o *Options)) *Reporter {
	opts := Options{
		Format:          FormatJSON,
		ArtifactPattern: DefaultArtifactPattern,
		Now:             time.Now,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ArtifactPattern == "" {
		opts.ArtifactPattern = DefaultArtifactPattern
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	opts.Format = strings.ToLower(strings.TrimSpace(opts.Format))
	return &Reporter{baseDir: baseDir, opts: opts}
}

// BaseDir returns the directory reports are written to.
func (r *Reporter) BaseDir() string { return r.baseDir }

// Path returns the file Persist writes to.
func (r *Reporter) Path() string {
	return filepath.Join(r.baseDir, FileBaseName+"."+r.opts.Format)
}

// Generate aggregates results. Total always equals Successful + Failed.
func (r *Reporter) Generate(meta Meta, results []core.JobResult) core.ExperimentReport {
	rep := core.ExperimentReport{
		RunID:     meta.RunID,
		Timestamp: r.opts.Now().UTC(),
		Workload:  meta.Workload,
		Total:     len(results),
		Cancelled: meta.Cancelled,
		Results:   make(map[string]core.JobResult, len(results)),
	}

	var sum time.Duration
	for _, res := range results {
		if res.Success {
			rep.Successful++
		}
		sum += res.Duration
		rep.Results[res.Name] = res
	}
	rep.Failed = rep.Total - rep.Successful

	if wall := meta.End.Sub(meta.Start); wall > 0 {
		rep.TotalWallTime = wall
	}
	rep.TotalTimeHours = rep.TotalWallTime.Hours()
	if rep.Total > 0 {
		rep.AverageJobTime = sum / time.Duration(rep.Total)
	}
	return rep
}

// Encode serializes the report in the configured format.
func (r *Reporter) Encode(rep core.ExperimentReport) ([]byte, error) {
	switch r.opts.Format {
	case FormatJSON:
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, core.NewConfigurationError("report_format", "unsupported report format %q", r.opts.Format)
	}
}

// Persist writes the report atomically and returns its path.
func (r *Reporter) Persist(rep core.ExperimentReport) (string, error) {
	data, err := r.Encode(rep)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(r.baseDir, "."+FileBaseName+"-*")
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	path := r.Path()
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	r.opts.Logger.Info("Report saved", "path", path)
	return path, nil
}

// CollectArtifacts globs the working directory of every successful job for
// the artifact pattern. Successful jobs without a match are returned in
// missing; their status is left untouched.
func (r *Reporter) CollectArtifacts(specs []core.JobSpec, results []core.JobResult) (summaries []core.ArtifactSummary, missing []string) {
	ok := make(map[string]bool, len(results))
	for _, res := range results {
		ok[res.Name] = res.Success
	}
	for _, spec := range specs {
		if !ok[spec.Name] {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(spec.WorkingDir, r.opts.ArtifactPattern))
		if err != nil {
			r.opts.Logger.Warn("Artifact pattern invalid", "pattern", r.opts.ArtifactPattern, "error", err)
			return nil, nil
		}
		if len(matches) == 0 {
			r.opts.Logger.Warn("No artifacts found", "job", spec.Name, "dir", spec.WorkingDir)
			missing = append(missing, spec.Name)
			continue
		}
		files := make([]string, 0, len(matches))
		for _, m := range matches {
			files = append(files, filepath.Base(m))
		}
		sort.Strings(files)
		summaries = append(summaries, core.ArtifactSummary{Job: spec.Name, Directory: spec.WorkingDir, Files: files})
	}
	return summaries, missing
}

// Load reads a persisted report back. The encoding is chosen by extension.
func Load(path string) (core.ExperimentReport, error) {
	var rep core.ExperimentReport
	data, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &rep)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &rep)
	default:
		return rep, fmt.Errorf("unknown report extension %q", filepath.Ext(path))
	}
	if err != nil {
		return rep, fmt.Errorf("decode %s: %w", path, err)
	}
	return rep, nil
}
