/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fitplan/internal/domain"
	"fitplan/internal/schema"
)

const BackupsDirName = "backups"

// ErrUnsupportedFormat is returned for documents that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("storage: unsupported document format")

type format int

const (
	formatJSON format = iota
	formatYAML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

// ReadSession loads a session document, checks it against the session schema
// and the tree invariants.
func ReadSession(path string) (domain.Session, error) {
	f, err := formatOf(path)
	if err != nil {
		return domain.Session{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Session{}, fmt.Errorf("read session: %w", err)
	}
	return DecodeSession(b, f == formatYAML)
}

// DecodeSession parses a JSON (or YAML when yamlDoc is set) session document.
func DecodeSession(b []byte, yamlDoc bool) (domain.Session, error) {
	if yamlDoc {
		var err error
		if b, err = yamlToJSON(b); err != nil {
			return domain.Session{}, err
		}
	}
	if err := schema.ValidateSession(b); err != nil {
		return domain.Session{}, err
	}
	var s domain.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return domain.Session{}, fmt.Errorf("parse session: %w", err)
	}
	if err := s.Validate(); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

// OpenSession is ReadSession falling back to the newest backup when the
// document itself cannot be read or parsed. fromBackup reports the fallback.
func OpenSession(path string) (s domain.Session, fromBackup bool, err error) {
	s, err = ReadSession(path)
	if err == nil || errors.Is(err, ErrUnsupportedFormat) {
		return s, false, err
	}
	bak, berr := latestBackup(path)
	if berr != nil {
		return domain.Session{}, false, fmt.Errorf("%w; backup attempt: %v", err, berr)
	}
	b, berr := os.ReadFile(bak)
	if berr != nil {
		return domain.Session{}, false, fmt.Errorf("%w; read latest backup: %v", err, berr)
	}
	f, _ := formatOf(path)
	s, berr = DecodeSession(b, f == formatYAML)
	if berr != nil {
		return domain.Session{}, false, fmt.Errorf("%w; parse latest backup: %v", err, berr)
	}
	return s, true, nil
}

// WriteSession writes s transactionally. A previous document at path is
// copied to a timestamped backup first.
func WriteSession(path string, s domain.Session) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if f == formatYAML {
		if data, err = jsonToYAML(data); err != nil {
			return err
		}
	} else {
		data = append(data, '\n')
	}

	dir := filepath.Dir(path)
	if _, statErr := os.Stat(path); statErr == nil {
		bdir := filepath.Join(dir, BackupsDirName)
		if err := os.MkdirAll(bdir, 0o755); err != nil {
			return fmt.Errorf("ensure backups dir: %w", err)
		}
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current session: %w", cerr)
		}
	}

	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp session: %w", werr)
	}
	// Windows cannot rename over an existing file.
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace session: %w", rerr)
	}
	return nil
}

func yamlToJSON(b []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml session: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml session: %w", err)
	}
	return out, nil
}

func jsonToYAML(b []byte) ([]byte, error) {
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml session: %w", err)
	}
	return out, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sf.Close()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// latestBackup returns the newest backup of the document at path.
func latestBackup(path string) (string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return "", fmt.Errorf("read backups dir: %w", err)
	}
	base := filepath.Base(path)
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, base+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return "", errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	return candidates[len(candidates)-1], nil
}
