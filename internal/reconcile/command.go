/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"fitplan/internal/domain"
	applog "fitplan/internal/log"
	"fitplan/internal/schema"
)

// ErrNothingToSave is returned by Submit when the diff is empty.
var ErrNothingToSave = errors.New("reconcile: nothing to save")

// Persister writes a command batch for one session, e.g. to the server API.
// A delete removes the node together with those original descendants that
// the same batch does not re-parent.
type Persister interface {
	Persist(ctx context.Context, session domain.SeedID, cmds []Command) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, session domain.SeedID, cmds []Command) error

func (f PersisterFunc) Persist(ctx context.Context, session domain.SeedID, cmds []Command) error {
	return f(ctx, session, cmds)
}

// MarshalCommands encodes cmds as indented JSON and checks the result
// against the command schema.
func MarshalCommands(cmds []Command) ([]byte, error) {
	if cmds == nil {
		cmds = []Command{}
	}
	b, err := json.MarshalIndent(cmds, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal commands: %w", err)
	}
	if err := schema.ValidateCommands(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Submit diffs editable against original and hands a validated batch to p.
// The context passed to p carries the session seed for logging.
func Submit(ctx context.Context, p Persister, original, editable domain.Session) ([]Command, error) {
	l := applog.WithOperation(applog.WithComponent("reconcile"), "submit")
	cmds := Diff(original, editable)
	if len(cmds) == 0 {
		return nil, ErrNothingToSave
	}
	if _, err := MarshalCommands(cmds); err != nil {
		return nil, err
	}
	ctx = applog.ContextWith(ctx, slog.String("session", string(editable.SeedID)))
	n := Count(cmds)
	l.InfoContext(ctx, "persisting changes",
		slog.Int("add", n[OpAdd]),
		slog.Int("modify", n[OpModify]),
		slog.Int("delete", n[OpDelete]))
	if err := p.Persist(ctx, editable.SeedID, cmds); err != nil {
		l.ErrorContext(ctx, "persist failed", slog.Any("err", err))
		return nil, fmt.Errorf("persist session %s: %w", editable.SeedID, err)
	}
	return cmds, nil
}
