// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const powerDropFileName = "power-drop"

// powerDropStore is component C: a tiny two-valued file recording whether
// the last observed transition was an unexpected PS loss.
type powerDropStore struct {
	path string
}

func newPowerDropStore(stateDir string) *powerDropStore {
	return &powerDropStore{path: filepath.Join(stateDir, powerDropFileName)}
}

// initialize creates the state directory if missing and the file with
// literal "No" if missing. Write errors are logged by the caller, not
// returned as fatal — a failed write here is non-fatal to the transition.
func (s *powerDropStore) initialize() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("powercontrol: create state dir: %w", err)
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return s.writeToken("No")
	} else if err != nil {
		return err
	}
	return nil
}

func (s *powerDropStore) writeToken(token string) error {
	return os.WriteFile(s.path, []byte(token+"\n"), 0o644)
}

// store records that PS_PWROK de-asserted unexpectedly while On.
func (s *powerDropStore) store() error {
	return s.writeToken("Yes")
}

// clear records a power-on started from Off or ACLossOff.
func (s *powerDropStore) clear() error {
	return s.writeToken("No")
}

// read returns true iff the first line is exactly "Yes". Any read failure
// (missing file, I/O error) falls back to "No", the safe default.
func (s *powerDropStore) read() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	firstLine := string(data)
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	return strings.TrimSpace(firstLine) == "Yes"
}
