// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"sync"
	"time"
)

// timerID names one of the cancellable one-shot timers owned by the state
// machine.
type timerID int

const (
	timerGpioAssert timerID = iota
	timerPowerCycle
	timerGracefulPowerOff
	timerPsPowerOkWatchdog
	timerSioPowerGoodWatchdog
	timerPowerRestorePolicy
	timerButtonMaskPower
	timerButtonMaskReset
	timerButtonMaskNMI
)

func (t timerID) String() string {
	switch t {
	case timerGpioAssert:
		return "GpioAssertTimer"
	case timerPowerCycle:
		return "PowerCycleTimer"
	case timerGracefulPowerOff:
		return "GracefulPowerOffTimer"
	case timerPsPowerOkWatchdog:
		return "PsPowerOkWatchdogTimer"
	case timerSioPowerGoodWatchdog:
		return "SioPowerGoodWatchdogTimer"
	case timerPowerRestorePolicy:
		return "PowerRestorePolicyTimer"
	case timerButtonMaskPower, timerButtonMaskReset, timerButtonMaskNMI:
		return "ButtonMaskTimer"
	default:
		return "UnknownTimer"
	}
}

// timerWheel is a single-threaded table of cancellable one-shot timers.
// arm() replaces any prior arming for the same id; cancel() is best-effort
// and idempotent. Completions are posted to postFn, which the owner wires
// to the run queue so every completion is serialized with the rest of the
// event loop.
//
// A completion queued before cancel() runs may still fire; the generation
// counter lets the completion callback recognize it was aborted, matching
// the "completion already queued before cancellation still fires but the
// handler must treat it as aborted" rule.
type timerWheel struct {
	mu   sync.Mutex
	gen  map[timerID]uint64
	post func(func())
}

func newTimerWheel(post func(func())) *timerWheel {
	return &timerWheel{
		gen:  make(map[timerID]uint64),
		post: post,
	}
}

// arm replaces any prior arming of id and schedules completion to run after
// d. completion is invoked with aborted=true if the timer was cancelled (or
// superseded by a later arm) before it fired.
func (w *timerWheel) arm(id timerID, d time.Duration, completion func(aborted bool)) {
	w.mu.Lock()
	w.gen[id]++
	myGen := w.gen[id]
	w.mu.Unlock()

	time.AfterFunc(d, func() {
		w.mu.Lock()
		aborted := w.gen[id] != myGen
		w.mu.Unlock()
		w.post(func() {
			completion(aborted)
		})
	})
}

// cancel best-effort cancels id. A completion already in flight still
// fires, but with aborted=true.
func (w *timerWheel) cancel(id timerID) {
	w.mu.Lock()
	w.gen[id]++
	w.mu.Unlock()
}
