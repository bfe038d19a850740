// Package config collects every tunable of a trainmesh run. Values come from
// TRAINMESH_* environment variables first; command line flags registered via
// RegisterFlags override them.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/trainmesh/core"
	"github.com/hupe1980/trainmesh/jobspec"
	"github.com/hupe1980/trainmesh/logging"
)

const (
	DefaultBaseDir    = "parallel_experiments"
	DefaultTrainer    = "python3 run_pderl.py"
	DefaultReportTool = "python3 analyze_parallel_results.py"
)

// MinIO holds the object storage settings used by the minio artifact backend.
type MinIO struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

type Config struct {
	Workload   string
	Seeds      string
	Preset     string
	PresetFile string
	MaxWorkers int
	BaseDir    string
	Trainer    string
	// ReportTool is the post-run analysis command; empty disables it.
	ReportTool      string
	GracePeriod     time.Duration
	MonitorInterval time.Duration
	ReportFormat    string
	ArtifactPattern string
	// ArtifactBackend is one of none, memory or minio.
	ArtifactBackend string
	MinIO           MinIO
	StatusAddr      string
	TraceExporter   string
	LogLevel        string
	LogFormat       string
	Yes             bool
	Params          jobspec.Params
}

func FromEnv() Config {
	return Config{
		Workload:        getenv("TRAINMESH_ENV", ""),
		Seeds:           getenv("TRAINMESH_SEEDS", ""),
		Preset:          getenv("TRAINMESH_PRESET", jobspec.DefaultPreset),
		PresetFile:      getenv("TRAINMESH_PRESET_FILE", ""),
		MaxWorkers:      getenvInt("TRAINMESH_MAX_WORKERS", 0),
		BaseDir:         getenv("TRAINMESH_LOGDIR", DefaultBaseDir),
		Trainer:         getenv("TRAINMESH_TRAINER", DefaultTrainer),
		ReportTool:      getenv("TRAINMESH_REPORT_TOOL", DefaultReportTool),
		GracePeriod:     getenvDuration("TRAINMESH_GRACE_PERIOD", 10*time.Second),
		MonitorInterval: getenvDuration("TRAINMESH_MONITOR_INTERVAL", 30*time.Second),
		ReportFormat:    getenv("TRAINMESH_REPORT_FORMAT", "json"),
		ArtifactPattern: getenv("TRAINMESH_ARTIFACT_PATTERN", "*.pkl"),
		ArtifactBackend: getenv("TRAINMESH_ARTIFACT_BACKEND", "none"),
		MinIO: MinIO{
			Endpoint:  getenv("TRAINMESH_MINIO_ENDPOINT", ""),
			AccessKey: getenv("TRAINMESH_MINIO_ACCESS_KEY", ""),
			SecretKey: getenv("TRAINMESH_MINIO_SECRET_KEY", ""),
			Bucket:    getenv("TRAINMESH_MINIO_BUCKET", "trainmesh-artifacts"),
			Prefix:    getenv("TRAINMESH_MINIO_PREFIX", ""),
			UseSSL:    getenvBool("TRAINMESH_MINIO_USE_SSL", false),
		},
		StatusAddr:    getenv("TRAINMESH_STATUS_ADDR", ""),
		TraceExporter: getenv("TRAINMESH_OTEL_EXPORTER", "none"),
		LogLevel:      getenv("TRAINMESH_LOG_LEVEL", "info"),
		LogFormat:     getenv("TRAINMESH_LOG_FORMAT", "text"),
		Yes:           getenvBool("TRAINMESH_YES", false),
		Params:        jobspec.Params{LogFreq: jobspec.DefaultLogFreq},
	}
}

// RegisterFlags binds every field to fs, using the current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Workload, "env", c.Workload, "training environment name (e.g. Hopper-v2)")
	fs.StringVar(&c.Seeds, "seeds", c.Seeds, "comma separated seed list; overrides the preset seeds")
	fs.StringVar(&c.Preset, "preset", c.Preset, "preset configuration")
	fs.StringVar(&c.PresetFile, "preset-file", c.PresetFile, "YAML file with additional presets")
	fs.IntVar(&c.MaxWorkers, "workers", c.MaxWorkers, "maximum concurrent jobs (default: CPU cores)")
	fs.StringVar(&c.BaseDir, "logdir", c.BaseDir, "base experiment directory")
	fs.StringVar(&c.Trainer, "trainer", c.Trainer, "trainer command")
	fs.StringVar(&c.ReportTool, "report-tool", c.ReportTool, "post-run analysis command (empty disables)")
	fs.DurationVar(&c.GracePeriod, "grace-period", c.GracePeriod, "time between SIGTERM and kill on cancellation")
	fs.DurationVar(&c.MonitorInterval, "monitor-interval", c.MonitorInterval, "resource sampling interval")
	fs.StringVar(&c.ReportFormat, "report-format", c.ReportFormat, "experiment report format (json|yaml)")
	fs.StringVar(&c.ArtifactPattern, "artifact-pattern", c.ArtifactPattern, "glob matching trained model files")
	fs.StringVar(&c.ArtifactBackend, "artifact-backend", c.ArtifactBackend, "artifact publishing backend (none|memory|minio)")
	fs.StringVar(&c.MinIO.Endpoint, "minio-endpoint", c.MinIO.Endpoint, "MinIO endpoint host:port")
	fs.StringVar(&c.MinIO.Bucket, "minio-bucket", c.MinIO.Bucket, "MinIO bucket")
	fs.StringVar(&c.MinIO.Prefix, "minio-prefix", c.MinIO.Prefix, "MinIO object key prefix")
	fs.BoolVar(&c.MinIO.UseSSL, "minio-ssl", c.MinIO.UseSSL, "use TLS for MinIO")
	fs.StringVar(&c.StatusAddr, "status-addr", c.StatusAddr, "serve live status on this address (disabled when empty)")
	fs.StringVar(&c.TraceExporter, "trace-exporter", c.TraceExporter, "OpenTelemetry exporter (none|stdout)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug|info|warn|error)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format (text|json)")
	fs.BoolVar(&c.Yes, "yes", c.Yes, "start without confirmation")

	fs.IntVar(&c.Params.PopSize, "popsize", c.Params.PopSize, "population size")
	fs.IntVar(&c.Params.RolloutSize, "rollout_size", c.Params.RolloutSize, "rollout size")
	fs.IntVar(&c.Params.NumFrames, "num_frames", c.Params.NumFrames, "training frames")
	fs.BoolVar(&c.Params.UseCUDA, "use_cuda", c.Params.UseCUDA, "train on CUDA")
	fs.BoolVar(&c.Params.UseTensorBoard, "use_tensorboard", c.Params.UseTensorBoard, "log to TensorBoard")
	fs.StringVar(&c.Params.TensorBoardDir, "tensorboard_dir", c.Params.TensorBoardDir, "TensorBoard directory (default: per job)")
	fs.BoolVar(&c.Params.LogWeights, "log_weights", c.Params.LogWeights, "log network weights to TensorBoard")
	fs.IntVar(&c.Params.LogFreq, "log_freq", c.Params.LogFreq, "detailed metric logging frequency")
}

// TrainerArgv splits the trainer command into argv.
func (c Config) TrainerArgv() []string { return strings.Fields(c.Trainer) }

// ReportToolArgv splits the report tool command into argv; nil when disabled.
func (c Config) ReportToolArgv() []string { return strings.Fields(c.ReportTool) }

// Validate reports the first invalid setting as a ConfigurationError.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Workload) == "" {
		return core.NewConfigurationError("env", "training environment is required")
	}
	if c.MaxWorkers < 0 {
		return core.NewConfigurationError("workers", "must not be negative, got %d", c.MaxWorkers)
	}
	if strings.TrimSpace(c.BaseDir) == "" {
		return core.NewConfigurationError("logdir", "required")
	}
	if len(c.TrainerArgv()) == 0 {
		return core.NewConfigurationError("trainer", "required")
	}
	if c.GracePeriod <= 0 {
		return core.NewConfigurationError("grace-period", "must be positive, got %s", c.GracePeriod)
	}
	if c.MonitorInterval <= 0 {
		return core.NewConfigurationError("monitor-interval", "must be positive, got %s", c.MonitorInterval)
	}
	switch strings.ToLower(c.ReportFormat) {
	case "json", "yaml":
	default:
		return core.NewConfigurationError("report-format", "unsupported format %q", c.ReportFormat)
	}
	switch strings.ToLower(c.ArtifactBackend) {
	case "none", "memory":
	case "minio":
		if strings.TrimSpace(c.MinIO.Endpoint) == "" {
			return core.NewConfigurationError("minio-endpoint", "required for the minio artifact backend")
		}
	default:
		return core.NewConfigurationError("artifact-backend", "unsupported backend %q", c.ArtifactBackend)
	}
	switch strings.ToLower(c.TraceExporter) {
	case "none", "stdout":
	default:
		return core.NewConfigurationError("trace-exporter", "unsupported exporter %q", c.TraceExporter)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return core.NewConfigurationError("log-level", "%v", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return core.NewConfigurationError("log-format", "unsupported format %q", c.LogFormat)
	}
	return nil
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
