// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRestoreSource struct {
	policy  restorePolicy
	delay   uint16
	ok      bool
	pending func()
}

func (s *fakeRestoreSource) restorePolicyConfig() (restorePolicy, uint16, bool) {
	return s.policy, s.delay, s.ok
}

func (s *fakeRestoreSource) onRestorePolicyConfigChange(fn func()) {
	s.pending = fn
}

func TestRestorePolicyEngine_WaitsForConfigThenAlwaysOn(t *testing.T) {
	store := newPowerDropStore(t.TempDir())
	require.NoError(t, store.initialize())

	timers := newTimerWheel(func(fn func()) { fn() })
	source := &fakeRestoreSource{ok: false}

	injected := make(chan struct{}, 1)
	engine := newRestorePolicyEngine(timers, store, source, func() time.Duration { return 0 }, func() {
		injected <- struct{}{}
	})

	engine.run()
	require.NotNil(t, source.pending, "engine must subscribe when config is not yet available")

	select {
	case <-injected:
		t.Fatal("must not power on before config arrives")
	default:
	}

	source.policy, source.delay, source.ok = restorePolicyAlwaysOn, 0, true
	source.pending()

	select {
	case <-injected:
	case <-time.After(time.Second):
		t.Fatal("AlwaysOn must inject PowerOnRequest once delay elapses")
	}
}

func TestRestorePolicyEngine_RestoreHonorsPowerDropFlag(t *testing.T) {
	store := newPowerDropStore(t.TempDir())
	require.NoError(t, store.initialize())
	require.NoError(t, store.store())

	timers := newTimerWheel(func(fn func()) { fn() })
	source := &fakeRestoreSource{policy: restorePolicyRestore, delay: 0, ok: true}

	injected := make(chan struct{}, 1)
	engine := newRestorePolicyEngine(timers, store, source, func() time.Duration { return 0 }, func() {
		injected <- struct{}{}
	})
	engine.run()

	select {
	case <-injected:
	case <-time.After(time.Second):
		t.Fatal("Restore with power-drop=Yes must power on")
	}
}

func TestRestorePolicyEngine_AlwaysOffNeverInjects(t *testing.T) {
	store := newPowerDropStore(t.TempDir())
	require.NoError(t, store.initialize())

	timers := newTimerWheel(func(fn func()) { fn() })
	source := &fakeRestoreSource{policy: restorePolicyAlwaysOff, delay: 0, ok: true}

	injected := make(chan struct{}, 1)
	engine := newRestorePolicyEngine(timers, store, source, func() time.Duration { return 0 }, func() {
		injected <- struct{}{}
	})
	engine.run()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-injected:
		t.Fatal("AlwaysOff must never power on")
	default:
	}
}

func TestRestorePolicyEngine_RunOnlyOnce(t *testing.T) {
	store := newPowerDropStore(t.TempDir())
	require.NoError(t, store.initialize())

	timers := newTimerWheel(func(fn func()) { fn() })
	source := &fakeRestoreSource{policy: restorePolicyAlwaysOn, delay: 0, ok: true}

	calls := 0
	engine := newRestorePolicyEngine(timers, store, source, func() time.Duration { return 0 }, func() {
		calls++
	})
	engine.run()
	engine.run()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, calls)
}

func TestRestorePolicyEngine_EffectiveDelayFloorsAtZero(t *testing.T) {
	store := newPowerDropStore(t.TempDir())
	require.NoError(t, store.initialize())

	timers := newTimerWheel(func(fn func()) { fn() })
	source := &fakeRestoreSource{policy: restorePolicyAlwaysOn, delay: 5, ok: true}

	injected := make(chan struct{}, 1)
	// uptime (1h) plus uBootSeconds vastly exceeds a 5s delay: effective
	// must clamp to zero (a negative time.Duration would still fire
	// immediately, but the clamp keeps the arithmetic honest) and inject
	// promptly rather than hang.
	engine := newRestorePolicyEngine(timers, store, source, func() time.Duration { return time.Hour }, func() {
		injected <- struct{}{}
	})
	engine.run()

	select {
	case <-injected:
	case <-time.After(time.Second):
		t.Fatal("effective delay must clamp to zero, not block indefinitely")
	}
}
