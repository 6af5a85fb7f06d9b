/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package schema embeds the JSON Schemas for session documents and mutation
// command batches and validates raw documents against them.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

// ErrInvalidDocument is returned when a document does not conform to its schema.
var ErrInvalidDocument = errors.New("schema: invalid document")

//go:embed session.schema.json
var sessionSchema []byte

//go:embed commands.schema.json
var commandsSchema []byte

// Schema bytes, e.g. for the CLI to print.
func SessionSchema() []byte  { return sessionSchema }
func CommandsSchema() []byte { return commandsSchema }

type compiled struct {
	once   sync.Once
	raw    []byte
	schema *gojsonschema.Schema
	err    error
}

func (c *compiled) get() (*gojsonschema.Schema, error) {
	c.once.Do(func() {
		c.schema, c.err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(c.raw))
	})
	return c.schema, c.err
}

var (
	session  = &compiled{raw: sessionSchema}
	commands = &compiled{raw: commandsSchema}
)

// ValidationError lists every schema violation of one document.
type ValidationError struct {
	Document string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s does not conform to schema: %s", e.Document, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDocument }

// ValidateSession checks a JSON session document.
func ValidateSession(doc []byte) error { return validate(session, "session", doc) }

// ValidateCommands checks a JSON array of mutation commands.
func ValidateCommands(doc []byte) error { return validate(commands, "command batch", doc) }

func validate(c *compiled, name string, doc []byte) error {
	s, err := c.get()
	if err != nil {
		return fmt.Errorf("compile %s schema: %w", name, err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, name, err)
	}
	if res.Valid() {
		return nil
	}
	ve := &ValidationError{Document: name}
	for _, e := range res.Errors() {
		ve.Problems = append(ve.Problems, e.String())
	}
	return ve
}
