package main

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/GriffinCanCode/framecap/internal/config"
)

// options are the command-line overrides. Only flags set explicitly replace
// values from the config file and environment.
type options struct {
	configPath string
	httpAddr   string
	grpcAddr   string
	outputDir  string
	interval   time.Duration
	logLevel   string
	logFormat  string
	noWatch    bool
}

func newFlagSet(o *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("framecap", pflag.ContinueOnError)
	fs.StringVarP(&o.configPath, "config", "c", "", "path to a YAML config file")
	fs.StringVar(&o.httpAddr, "http-addr", "", "HTTP listen address (default :5000)")
	fs.StringVar(&o.grpcAddr, "grpc-addr", "", "gRPC listen address, empty string disables (default localhost:50051)")
	fs.StringVarP(&o.outputDir, "output-dir", "o", "", "directory frames are written to (default frames)")
	fs.DurationVarP(&o.interval, "interval", "i", 0, "pause between captures (default 2s)")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&o.logFormat, "log-format", "", "text or json")
	fs.BoolVar(&o.noWatch, "no-watch", false, "do not watch the output directory for external changes")
	return fs
}

// apply copies explicitly set flags onto cfg.
func (o *options) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("http-addr") {
		cfg.HTTPAddr = o.httpAddr
	}
	if fs.Changed("grpc-addr") {
		cfg.GRPCAddr = o.grpcAddr
	}
	if fs.Changed("output-dir") {
		cfg.OutputDir = o.outputDir
	}
	if fs.Changed("interval") {
		cfg.CaptureInterval = o.interval
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if o.noWatch {
		cfg.WatchOutputDir = false
	}
}
