/*
Package config provides type-safe configuration extraction from map[string]any.

# Overview

config wraps a map[string]any and provides typed accessor methods that handle
missing keys and type mismatches gracefully by returning default values.
This avoids verbose type assertions when reading YAML/JSON structures, and
the Engine method maps a configuration block onto run pipeline settings.

# Basic Usage

Create a Config from any map and extract values with defaults:

	cfg := config.New(map[string]any{
	    "max_steps": 50,
	    "log_level": "debug",
	    "metrics":   true,
	})

	steps := cfg.Int("max_steps", 0)                   // 50
	level := cfg.Level("log_level", slog.LevelInfo)    // debug
	on := cfg.Bool("metrics", false)                   // true
	missing := cfg.String("trace_path", "traces.db")   // "traces.db"

# File Loading

Load configuration from YAML or JSON files:

	cfg, err := config.FromFile("assistant.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	eng := cfg.Section("engine").Engine()

Engine reads max_steps, trace_path, event_buffer_size, log_level,
metrics, and tracing, falling back to documented defaults for anything
absent.

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation. However, if the original map is modified
externally, behavior is undefined.
*/
package config
