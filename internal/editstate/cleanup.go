/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editstate

import (
	"errors"

	"fitplan/internal/domain"
)

// Floors are the minimum counts a cleanup pass must leave behind.
type Floors struct {
	MinParts       int `yaml:"minParts" json:"minParts"`
	MinSetsPerPart int `yaml:"minSetsPerPart" json:"minSetsPerPart"`
}

// Cleanup lists the containers a cleanup pass removes.
type Cleanup struct {
	Sets  []domain.SeedID
	Parts []domain.SeedID
}

func (c Cleanup) Empty() bool { return len(c.Sets) == 0 && len(c.Parts) == 0 }

// EmptyContainers finds sets without exercises and parts left without any
// non-empty set. A part whose sets are all empty is removed as a whole,
// together with those sets, as long as MinParts parts remain. Surviving parts
// keep at least MinSetsPerPart sets.
func EmptyContainers(s domain.Session, f Floors) Cleanup {
	var out Cleanup
	removableParts := len(s.Parts) - f.MinParts
	for _, p := range s.Parts {
		var empty []domain.SeedID
		for _, st := range p.Sets {
			if len(st.Exercises) == 0 {
				empty = append(empty, st.SeedID)
			}
		}
		if len(empty) == len(p.Sets) && removableParts > 0 {
			removableParts--
			out.Sets = append(out.Sets, empty...)
			out.Parts = append(out.Parts, p.SeedID)
			continue
		}
		room := len(p.Sets) - f.MinSetsPerPart
		if room <= 0 {
			continue
		}
		if room < len(empty) {
			// Keep the earliest empty sets to honour the floor.
			empty = empty[len(empty)-room:]
		}
		out.Sets = append(out.Sets, empty...)
	}
	return out
}

// Prune applies EmptyContainers. Sets inside removed parts go with their part.
func Prune(s domain.Session, f Floors) (domain.Session, Cleanup, error) {
	c := EmptyContainers(s, f)
	out := s
	var err error
	for _, seed := range c.Parts {
		if out, err = DeleteNode(out, seed); err != nil {
			return s, Cleanup{}, err
		}
	}
	for _, seed := range c.Sets {
		out, err = DeleteNode(out, seed)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return s, Cleanup{}, err
		}
	}
	return out, c, nil
}
