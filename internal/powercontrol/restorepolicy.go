// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"sync"
	"time"
)

// restorePolicy is the configured behavior on an AC-loss boot.
type restorePolicy string

const (
	restorePolicyAlwaysOn  restorePolicy = "AlwaysOn"
	restorePolicyRestore   restorePolicy = "Restore"
	restorePolicyAlwaysOff restorePolicy = "AlwaysOff"
)

// restorePolicySource is implemented by the host-state surface (component
// H): it owns the PowerRestorePolicy and PowerRestoreDelay bus properties.
type restorePolicySource interface {
	// restorePolicyConfig returns the currently-published policy and delay,
	// and false if the policy has not been published yet (an unpublished
	// delay reads as 0).
	restorePolicyConfig() (policy restorePolicy, delaySeconds uint16, ok bool)
	// onRestorePolicyConfigChange registers fn to run once, on the next
	// change of either property. The engine registers again each time a
	// delivery still finds the policy unpublished.
	onRestorePolicyConfigChange(fn func())
}

// restorePolicyEngine is component E. run() executes once per process,
// invoked only when the AC-loss detector (component D) reported true.
type restorePolicyEngine struct {
	timers        *timerWheel
	store         *powerDropStore
	source        restorePolicySource
	uptime        func() time.Duration
	injectPowerOn func()

	once sync.Once
}

func newRestorePolicyEngine(timers *timerWheel, store *powerDropStore, source restorePolicySource, uptime func() time.Duration, injectPowerOn func()) *restorePolicyEngine {
	return &restorePolicyEngine{
		timers:        timers,
		store:         store,
		source:        source,
		uptime:        uptime,
		injectPowerOn: injectPowerOn,
	}
}

// run attempts to apply the restore policy; if the policy is not yet
// published it subscribes and retries on each delivery until it is.
func (e *restorePolicyEngine) run() {
	e.once.Do(e.attempt)
}

func (e *restorePolicyEngine) attempt() {
	policy, delaySeconds, ok := e.source.restorePolicyConfig()
	if !ok {
		e.source.onRestorePolicyConfigChange(e.attempt)
		return
	}

	elapsed := uBootSeconds + int(e.uptime().Seconds())
	effective := int(delaySeconds) - elapsed
	if effective < 0 {
		effective = 0
	}

	e.timers.arm(timerPowerRestorePolicy, time.Duration(effective)*time.Second, func(aborted bool) {
		if aborted {
			return
		}
		switch policy {
		case restorePolicyAlwaysOn:
			e.injectPowerOn()
		case restorePolicyRestore:
			if e.store.read() {
				e.injectPowerOn()
			}
		case restorePolicyAlwaysOff:
			// No action.
		}
	})
}
