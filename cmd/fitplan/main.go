/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"fitplan/internal/config"
	"fitplan/internal/crash"
	applog "fitplan/internal/log"
)

func main() {
	cfg, cerr := config.Load()
	applog.Init(cfg.Logging.Options())
	l := applog.WithComponent("cli")
	if cerr != nil {
		l.Warn("config ignored", slog.Any("err", cerr))
	}
	defer crash.Recover(&crash.Target{Dir: filepath.Dir(cfg.Drafts.Path)})

	l.Debug("start", slog.Int("args", len(os.Args)))
	if err := newRootCmd(&app{cfg: cfg}).Execute(); err != nil {
		os.Exit(1)
	}
}
