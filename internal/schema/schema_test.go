/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package schema

import (
	"errors"
	"testing"
)

func TestValidateSession(t *testing.T) {
	good := []byte(`{"blueprintId":1,"seedId":"s","name":"Leg day","parts":[
		{"blueprintId":null,"seedId":"p","order":0,"name":"Main","sets":[
			{"blueprintId":null,"seedId":"st","order":0,"restTime":60,"timeLimit":null,"exercises":[
				{"blueprintId":null,"seedId":"e","order":0,"spec":{"goal":{"type":"reps","value":10},"load":{"type":"weight","value":40},"timeLimit":null}}
			]}
		]}
	]}`)
	if err := ValidateSession(good); err != nil {
		t.Fatalf("valid session rejected: %v", err)
	}

	cases := map[string]string{
		"empty seed":     `{"seedId":"","parts":[]}`,
		"missing parts":  `{"seedId":"s"}`,
		"negative order": `{"seedId":"s","parts":[{"seedId":"p","order":-1,"sets":[]}]}`,
		"string rest":    `{"seedId":"s","parts":[{"seedId":"p","order":0,"sets":[{"seedId":"x","order":0,"restTime":"60","exercises":[]}]}]}`,
	}
	for name, doc := range cases {
		err := ValidateSession([]byte(doc))
		if !errors.Is(err, ErrInvalidDocument) {
			t.Errorf("%s: expected ErrInvalidDocument, got %v", name, err)
		}
		var ve *ValidationError
		if errors.As(err, &ve) && len(ve.Problems) == 0 {
			t.Errorf("%s: no problems listed", name)
		}
	}
}

func TestValidateCommands(t *testing.T) {
	good := []byte(`[
		{"op":"delete","level":"part","seedId":"p9","blueprintId":9},
		{"op":"modify","level":"part","seedId":"p","blueprintId":1,"order":0,"part":{"name":"Main"},"children":[
			{"op":"add","level":"set","seedId":"s","parentSeedId":"p","order":1,"set":{"restTime":30,"timeLimit":null}}
		]}
	]`)
	if err := ValidateCommands(good); err != nil {
		t.Fatalf("valid batch rejected: %v", err)
	}

	bad := map[string]string{
		"unknown op":           `[{"op":"upsert","level":"part","seedId":"p"}]`,
		"modify without id":    `[{"op":"modify","level":"part","seedId":"p","order":0}]`,
		"delete of unsaved":    `[{"op":"delete","level":"set","seedId":"s","blueprintId":null}]`,
		"nested add w/o order": `[{"op":"modify","level":"part","seedId":"p","blueprintId":1,"order":0,"children":[{"op":"add","level":"set","seedId":"s"}]}]`,
		"not json":             `[{`,
	}
	for name, doc := range bad {
		if err := ValidateCommands([]byte(doc)); !errors.Is(err, ErrInvalidDocument) {
			t.Errorf("%s: expected ErrInvalidDocument, got %v", name, err)
		}
	}
}
