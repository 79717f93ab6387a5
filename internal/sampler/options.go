package sampler

import (
	"codeberg.org/mutker/sysmon/internal/logger"
	"github.com/spf13/afero"
)

const (
	DefaultProcRoot = "/proc"
	DefaultSysRoot  = "/sys"
)

// Option configures a System at Init.
type Option func(*options)

type options struct {
	fs       afero.Fs
	procRoot string
	sysRoot  string
	log      logger.Logger
}

func defaultOptions() *options {
	return &options{
		fs:       afero.NewReadOnlyFs(afero.NewOsFs()),
		procRoot: DefaultProcRoot,
		sysRoot:  DefaultSysRoot,
		log:      logger.Default(),
	}
}

// WithFs reads counter files from fs instead of the host filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		if fs != nil {
			o.fs = fs
		}
	}
}

// WithRoots overrides the procfs and sysfs mount points. Empty values keep
// the defaults.
func WithRoots(procRoot, sysRoot string) Option {
	return func(o *options) {
		if procRoot != "" {
			o.procRoot = procRoot
		}
		if sysRoot != "" {
			o.sysRoot = sysRoot
		}
	}
}

// WithLogger sets the logger used for discovery and eviction events.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
