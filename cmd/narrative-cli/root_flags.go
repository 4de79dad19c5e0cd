package main

import (
	"flag"
	"fmt"
	"os"

	"narrative-cli/internal/features"
	"narrative-cli/internal/logger"
)

// rootArgs 是子命令之前的全局参数。
type rootArgs struct {
	cfgPath   string
	logLevel  string
	overrides []string
}

func parseRootArgs(args []string) (rootArgs, []string, error) {
	fs := flag.NewFlagSet("narrative-cli", flag.ContinueOnError)
	var root rootArgs
	var overrides stringSlice
	var enable stringSlice
	var disable stringSlice
	fs.StringVar(&root.cfgPath, "config", "", "Path to config file (default ~/.narrative/config.toml)")
	fs.StringVar(&root.logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	fs.Var(&overrides, "c", "Override config value key=value (repeatable, applied before subcommand overrides)")
	fs.Var(&enable, "enable", "Enable a feature (repeatable). Equivalent to -c features.<name>=true")
	fs.Var(&disable, "disable", "Disable a feature (repeatable). Equivalent to -c features.<name>=false")
	if err := fs.Parse(args); err != nil {
		return rootArgs{}, nil, err
	}

	featureOverrides, err := buildFeatureOverrides(enable, disable)
	if err != nil {
		return rootArgs{}, nil, err
	}
	root.overrides = append([]string{}, overrides...)
	root.overrides = append(root.overrides, featureOverrides...)
	if root.logLevel != "" {
		if err := logger.SetLevel(root.logLevel); err != nil {
			return rootArgs{}, nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	return root, fs.Args(), nil
}

func prependOverrides(root []string, overrides []string) []string {
	merged := append([]string{}, root...)
	return append(merged, overrides...)
}

func buildFeatureOverrides(enable []string, disable []string) ([]string, error) {
	var overrides []string
	for _, key := range enable {
		if !features.IsKnown(key) {
			return nil, fmt.Errorf("unknown feature flag: %s", key)
		}
		overrides = append(overrides, fmt.Sprintf("features.%s=%t", key, true))
	}
	for _, key := range disable {
		if !features.IsKnown(key) {
			return nil, fmt.Errorf("unknown feature flag: %s", key)
		}
		overrides = append(overrides, fmt.Sprintf("features.%s=%t", key, false))
	}
	return overrides, nil
}

// fatalf 同时写 stderr 与日志文件；日志被重定向到文件后终端上仍能看到错误。
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "narrative-cli: "+format+"\n", args...)
	log.Fatalf(format, args...)
}
