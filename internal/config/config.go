/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fitplan/internal/drag"
	"fitplan/internal/editstate"
	applog "fitplan/internal/log"
	"fitplan/internal/undo"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type EditorConfig struct {
	ActionGraceMs    int     `yaml:"action_grace_ms"`
	ExpandDwellMs    int     `yaml:"expand_dwell_ms"`
	ScrollEdgePx     float64 `yaml:"scroll_edge_px"`
	ScrollIntervalMs int     `yaml:"scroll_interval_ms"`
	ScrollMaxStep    float64 `yaml:"scroll_max_step"`
	NewSetRestS      int     `yaml:"new_set_rest_s"`
	NewPartName      string  `yaml:"new_part_name"`
}

type PinsConfig struct {
	AutoPromote bool `yaml:"auto_promote"`
}

type CleanupConfig struct {
	MinParts       int `yaml:"min_parts"`
	MinSetsPerPart int `yaml:"min_sets_per_part"`
}

type DraftsConfig struct {
	Path       string `yaml:"path"` // empty means drafts.sqlite next to the config file
	DebounceMs int    `yaml:"debounce_ms"`
}

type HistoryConfig struct {
	MaxDepth   int `yaml:"max_depth"`
	CoalesceMs int `yaml:"coalesce_ms"`
	MaxNodes   int `yaml:"max_nodes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editor        EditorConfig  `yaml:"editor"`
	Pins          PinsConfig    `yaml:"pins"`
	Cleanup       CleanupConfig `yaml:"cleanup"`
	Drafts        DraftsConfig  `yaml:"drafts"`
	History       HistoryConfig `yaml:"history"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			ActionGraceMs:    100,
			ExpandDwellMs:    1000,
			ScrollEdgePx:     24,
			ScrollIntervalMs: 16,
			ScrollMaxStep:    12,
			NewSetRestS:      editstate.DefaultNewContainer.RestTime,
			NewPartName:      editstate.DefaultNewContainer.PartName,
		},
		Pins:    PinsConfig{AutoPromote: true},
		Cleanup: CleanupConfig{MinParts: 1, MinSetsPerPart: 1},
		Drafts:  DraftsConfig{DebounceMs: 1500},
		History: HistoryConfig{MaxDepth: 100, CoalesceMs: 500, MaxNodes: 200000},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath  = "FITPLAN_CONFIG"
	EnvDraftsPath  = "FITPLAN_DRAFTS_PATH"
	EnvAutosaveMs  = "FITPLAN_AUTOSAVE_MS"
	EnvAutoPromote = "FITPLAN_AUTO_PROMOTE_PINS"
	EnvMinParts    = "FITPLAN_MIN_PARTS"
	EnvMinSets     = "FITPLAN_MIN_SETS_PER_PART"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "FITPLAN_LOG_LEVEL"
	EnvLogFormat = "FITPLAN_LOG_FORMAT"
	EnvLogSource = "FITPLAN_LOG_SOURCE"
	EnvLogFile   = "FITPLAN_LOG_FILE"
)

// ConfigPath returns the per-user config file path. FITPLAN_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "FitPlan")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "FitPlan")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "fitplan")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// A file that exists but does not parse is reported; the defaults are still returned.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	var perr error
	if data, err := os.ReadFile(path); err == nil {
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		} else {
			perr = fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if cfg.Drafts.Path == "" {
		cfg.Drafts.Path = filepath.Join(filepath.Dir(path), "drafts.sqlite")
	}
	applyEnvOverrides(&cfg)
	return cfg, perr
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// editor timings: zero keeps the default
	if src.Editor.ActionGraceMs > 0 {
		dst.Editor.ActionGraceMs = src.Editor.ActionGraceMs
	}
	if src.Editor.ExpandDwellMs > 0 {
		dst.Editor.ExpandDwellMs = src.Editor.ExpandDwellMs
	}
	if src.Editor.ScrollEdgePx > 0 {
		dst.Editor.ScrollEdgePx = src.Editor.ScrollEdgePx
	}
	if src.Editor.ScrollIntervalMs > 0 {
		dst.Editor.ScrollIntervalMs = src.Editor.ScrollIntervalMs
	}
	if src.Editor.ScrollMaxStep > 0 {
		dst.Editor.ScrollMaxStep = src.Editor.ScrollMaxStep
	}
	if src.Editor.NewSetRestS >= 0 {
		dst.Editor.NewSetRestS = src.Editor.NewSetRestS
	}
	if s := strings.TrimSpace(src.Editor.NewPartName); s != "" {
		dst.Editor.NewPartName = s
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Pins.AutoPromote = src.Pins.AutoPromote
	if src.Cleanup.MinParts >= 0 {
		dst.Cleanup.MinParts = src.Cleanup.MinParts
	}
	if src.Cleanup.MinSetsPerPart >= 0 {
		dst.Cleanup.MinSetsPerPart = src.Cleanup.MinSetsPerPart
	}
	if s := strings.TrimSpace(src.Drafts.Path); s != "" {
		dst.Drafts.Path = s
	}
	if src.Drafts.DebounceMs > 0 {
		dst.Drafts.DebounceMs = src.Drafts.DebounceMs
	}
	if src.History.MaxDepth >= 0 {
		dst.History.MaxDepth = src.History.MaxDepth
	}
	if src.History.CoalesceMs >= 0 {
		dst.History.CoalesceMs = src.History.CoalesceMs
	}
	if src.History.MaxNodes > 0 {
		dst.History.MaxNodes = src.History.MaxNodes
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDraftsPath)); v != "" {
		cfg.Drafts.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAutosaveMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Drafts.DebounceMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvAutoPromote)); v != "" {
		cfg.Pins.AutoPromote = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvMinParts)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Cleanup.MinParts = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMinSets)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Cleanup.MinSetsPerPart = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"drafts.path":               EnvDraftsPath,
		"drafts.debounce_ms":        EnvAutosaveMs,
		"pins.auto_promote":         EnvAutoPromote,
		"cleanup.min_parts":         EnvMinParts,
		"cleanup.min_sets_per_part": EnvMinSets,
		"logging.level":             EnvLogLevel,
		"logging.format":            EnvLogFormat,
		"logging.source":            EnvLogSource,
		"logging.file":              EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Drag converts the editor section into controller settings.
func (e EditorConfig) Drag() drag.Config {
	return drag.Config{
		ActionGrace:    ms(e.ActionGraceMs),
		ExpandDwell:    ms(e.ExpandDwellMs),
		ScrollEdge:     e.ScrollEdgePx,
		ScrollInterval: ms(e.ScrollIntervalMs),
		ScrollMaxStep:  e.ScrollMaxStep,
	}
}

// NewContainer returns the payload defaults for sets and parts created by a drop.
func (e EditorConfig) NewContainer() editstate.NewContainerDefaults {
	return editstate.NewContainerDefaults{RestTime: e.NewSetRestS, PartName: e.NewPartName}
}

func (c CleanupConfig) Floors() editstate.Floors {
	return editstate.Floors{MinParts: c.MinParts, MinSetsPerPart: c.MinSetsPerPart}
}

func (d DraftsConfig) Debounce() time.Duration { return ms(d.DebounceMs) }

func (h HistoryConfig) Undo() undo.Config {
	return undo.Config{MaxNodes: h.MaxNodes, MaxPerKey: h.MaxDepth, MinInterval: ms(h.CoalesceMs)}
}

func (l LoggingConfig) Options() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}
