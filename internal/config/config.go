// Package config loads sysmon settings from flags, the environment and a
// TOML file, in that order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/metrics"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultConfigFile = "/etc/sysmon.toml"
	DefaultEnvPrefix  = "SYSMON"
	DefaultInterval   = time.Second
	DefaultLogLevel   = LogLevelInfo
)

type Config struct {
	Interval time.Duration
	LogLevel LogLevel
	LogFile  string

	// CSVFile enables the CSV log when set; Stats selects its columns.
	CSVFile string
	Stats   []string

	Metrics             bool
	MetricsDB           string
	MetricsBatchSize    int
	MetricsBatchTimeout time.Duration

	ProcRoot string
	SysRoot  string
	Headless bool
	PIDFile  string

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string
}

type flagDef struct {
	key   string
	name  string
	short string
	usage string
}

var flagDefs = []flagDef{
	{"interval", "interval", "i", "Sampling interval (e.g. 1s, 500ms)"},
	{"log_level", "log-level", "", "Log level: debug, info, warning or error"},
	{"log_file", "log-file", "", "Write logs to this file instead of stderr"},
	{"csv", "log", "l", "Append the selected stats to this CSV file"},
	{"stats", "stats", "s", "Comma separated stats for the CSV log"},
	{"metrics", "metrics", "m", "Record history in a sqlite database"},
	{"metrics_db", "metrics-db", "", "Path of the metrics database"},
	{"metrics_batch_size", "metrics-batch-size", "", "Samples buffered before a database write"},
	{"metrics_batch_timeout", "metrics-batch-timeout", "", "Maximum time samples stay buffered"},
	{"proc_root", "proc-root", "", "Mount point of procfs"},
	{"sys_root", "sys-root", "", "Mount point of sysfs"},
	{"headless", "headless", "", "Do not start the terminal UI"},
	{"pid_file", "pid-file", "", "PID file guarding against concurrent runs"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("log_level", string(DefaultLogLevel))
	v.SetDefault("log_file", "")
	v.SetDefault("csv", "")
	v.SetDefault("stats", []string{})
	mc := metrics.DefaultConfig()
	v.SetDefault("metrics", mc.Enabled)
	v.SetDefault("metrics_db", mc.DBPath)
	v.SetDefault("metrics_batch_size", mc.BatchSize)
	v.SetDefault("metrics_batch_timeout", mc.BatchTimeout)
	v.SetDefault("proc_root", "/proc")
	v.SetDefault("sys_root", "/sys")
	v.SetDefault("headless", false)
	v.SetDefault("pid_file", "")
}

// NewFlagSet returns the command line flags understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringP("config", "c", "", "Path to the TOML config file")
	for _, f := range flagDefs {
		switch f.key {
		case "interval", "metrics_batch_timeout":
			fs.DurationP(f.name, f.short, 0, f.usage)
		case "metrics_batch_size":
			fs.IntP(f.name, f.short, 0, f.usage)
		case "metrics", "headless":
			fs.BoolP(f.name, f.short, false, f.usage)
		case "stats":
			fs.StringSliceP(f.name, f.short, nil, f.usage)
		default:
			fs.StringP(f.name, f.short, "", f.usage)
		}
	}

	return fs
}

// Load parses args (without the program name), reads the config file and
// the environment, and validates the result. Positional arguments are
// appended to the CSV stats. A --help request returns an error wrapping
// pflag.ErrHelp.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		configPath: os.Getenv(DefaultEnvPrefix + "_CONFIG"),
		envPrefix:  DefaultEnvPrefix,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	fs := NewFlagSet("sysmon")
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrParseFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, f := range flagDefs {
		if err := v.BindPFlag(f.key, fs.Lookup(f.name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err).WithData(f.name)
		}
	}

	configFile := o.configPath
	explicit := configFile != ""
	if flag := fs.Lookup("config"); flag.Changed {
		configFile = flag.Value.String()
		explicit = true
	}
	if configFile == "" {
		configFile = DefaultConfigFile
	}

	v.SetConfigFile(configFile)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err).WithData(configFile)
		}
		configFile = ""
	}

	interval, err := duration(v.Get("interval"))
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidInterval, err)
	}
	batchTimeout, err := duration(v.Get("metrics_batch_timeout"))
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err).WithData("metrics_batch_timeout")
	}

	cfg := &Config{
		Interval:            interval,
		LogLevel:            LogLevel(strings.ToLower(v.GetString("log_level"))),
		LogFile:             v.GetString("log_file"),
		CSVFile:             v.GetString("csv"),
		Stats:               append(splitStats(v.GetStringSlice("stats")), fs.Args()...),
		Metrics:             v.GetBool("metrics"),
		MetricsDB:           v.GetString("metrics_db"),
		MetricsBatchSize:    v.GetInt("metrics_batch_size"),
		MetricsBatchTimeout: batchTimeout,
		ProcRoot:            v.GetString("proc_root"),
		SysRoot:             v.GetString("sys_root"),
		Headless:            v.GetBool("headless"),
		PIDFile:             v.GetString("pid_file"),
		ConfigFile:          configFile,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if !c.LogLevel.IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.CSVFile != "" && len(c.Stats) == 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "CSV log requires at least one stat")
	}
	if c.Metrics && c.MetricsDB == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "metrics database path is empty")
	}

	return nil
}

// duration accepts Go duration strings and plain numbers of seconds, the
// latter being what a TOML integer or an environment variable like
// SYSMON_INTERVAL=2 produce.
func duration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		secs, err := cast.ToFloat64E(val)
		if err != nil {
			return 0, err
		}
		return time.Duration(secs * float64(time.Second)), nil
	case string:
		if secs, err := cast.ToFloat64E(val); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		return time.ParseDuration(val)
	}

	return cast.ToDurationE(v)
}

// splitStats flattens comma separated entries; a TOML array and a single
// comma separated string configure the same columns.
func splitStats(stats []string) []string {
	var out []string
	for _, s := range stats {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}
