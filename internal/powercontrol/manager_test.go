// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeACLoss lets scenario tests pick whichever branch of
// computeInitialState they want to exercise.
type fakeACLoss struct{ acBoot bool }

func (f fakeACLoss) isACBoot() bool { return f.acBoot }

// testHarness wires a Manager to a fakeChip and no real D-Bus connection,
// grounded on the fakeGpio-based harness pattern in
// other_examples/u-root-u-bmc__gpio_fake.go.
type testHarness struct {
	t       *testing.T
	manager *Manager
	chip    *fakeChip
}

func newTestHarness(t *testing.T, acBoot bool, psPwrOKInitial bool) *testHarness {
	t.Helper()
	m := NewManager(t.TempDir())
	m.acLoss = fakeACLoss{acBoot: acBoot}
	m.hub = newSurfaceHub(nil, m)

	chip := newFakeChip()
	chip.values[linePSPwrOK] = psPwrOKInitial
	// Buttons, POST_COMPLETE and SIO_S5 are active-low; at rest they read 1.
	for _, name := range []string{linePowerButton, lineResetButton, lineNMIButton, lineIDButton, linePostComplete, lineSIOS5} {
		chip.values[name] = true
	}

	require.NoError(t, m.startWithChip(chip))
	waitQuiescent(m)

	return &testHarness{t: t, manager: m, chip: chip}
}

// waitQuiescent drains the run queue by posting a marker and waiting for it
// to execute; every setup/assert helper calls this after triggering an edge
// or timer so assertions observe a settled state.
func waitQuiescent(m *Manager) {
	done := make(chan struct{})
	m.post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

func (h *testHarness) setLine(name string, v bool) {
	h.chip.set(name, v)
	waitQuiescent(h.manager)
}

func (h *testHarness) state() PowerState {
	done := make(chan PowerState, 1)
	h.manager.post(func() { done <- h.manager.state })
	return <-done
}

func (h *testHarness) pressButton(b button) {
	line := linePowerButton
	switch b {
	case buttonReset:
		line = lineResetButton
	case buttonNMI:
		line = lineNMIButton
	}
	h.setLine(line, false) // falling edge = press, lines are active-low
	h.setLine(line, true)  // release
}

func (h *testHarness) requestTransition(ev Event) {
	h.manager.post(func() { h.manager.handleEvent(ev) })
	waitQuiescent(h.manager)
}
