// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

// handleEvent is the single entry point for component G, the state
// machine. Every GPIO edge, timer expiration and external request is
// funneled here from the run queue, so this method always runs
// single-threaded with respect to itself.
func (m *Manager) handleEvent(ev Event) {
	from := m.state
	switch m.state {
	case StateOn:
		m.handleOn(ev)
	case StateWaitForPSPowerOK:
		m.handleWaitForPSPowerOK(ev)
	case StateWaitForSIOPowerGood:
		m.handleWaitForSIOPowerGood(ev)
	case StateFailedTransitionToOn:
		m.handleFailedTransitionToOn(ev)
	case StateOff:
		m.handleOffLike(ev, false)
	case StateACLossOff:
		m.handleOffLike(ev, true)
	case StateTransitionToOff:
		m.handleTransitionToOff(ev)
	case StateGracefulTransitionToOff:
		m.handleGracefulTransitionToOff(ev)
	case StateCycleOff:
		m.handleCycleOff(ev)
	case StateTransitionToCycleOff:
		m.handleTransitionToCycleOff(ev)
	case StateGracefulTransitionToCycleOff:
		m.handleGracefulTransitionToCycleOff(ev)
	}
	if m.state != from {
		logger.Info("power state transition", from, "->", m.state, "on", ev)
	}
}

func (m *Manager) handleOn(ev Event) {
	switch ev {
	case EventPsPowerOkDeassert:
		if err := m.store.store(); err != nil {
			logger.Warning("power-drop: store failed:", err)
		}
		m.enterState(StateOff)
	case EventSioS5Assert:
		m.enterState(StateTransitionToOff)
	case EventPowerButtonPressed:
		m.timers.arm(timerGracefulPowerOff, gracefulOffTimeout, m.onGracefulOffTimerExpired)
		m.enterState(StateGracefulTransitionToOff)
	case EventPowerOffRequest:
		m.enterState(StateTransitionToOff)
		m.forcePowerOff()
	case EventGracefulPowerOffRequest:
		m.timers.arm(timerGracefulPowerOff, gracefulOffTimeout, m.onGracefulOffTimerExpired)
		m.pulsePowerOut(powerPulse, nil)
		m.enterState(StateGracefulTransitionToOff)
	case EventPowerCycleRequest:
		m.enterState(StateTransitionToCycleOff)
		m.forcePowerOff()
	case EventGracefulPowerCycleRequest:
		m.timers.arm(timerGracefulPowerOff, gracefulOffTimeout, m.onGracefulOffTimerExpired)
		m.pulsePowerOut(powerPulse, nil)
		m.enterState(StateGracefulTransitionToCycleOff)
	case EventResetRequest:
		m.pulseResetOut(resetPulse)
	}
}

func (m *Manager) handleWaitForPSPowerOK(ev Event) {
	switch ev {
	case EventPsPowerOkAssert:
		m.gpio.cancelOutputTimer()
		m.timers.cancel(timerPsPowerOkWatchdog)
		m.timers.arm(timerSioPowerGoodWatchdog, sioPowerGoodWatchdog, m.onSioPowerGoodWatchdogExpired)
		m.enterState(StateWaitForSIOPowerGood)
	case EventPsPowerOkWatchdogTimerExpired:
		m.enterState(StateFailedTransitionToOn)
	}
}

func (m *Manager) handleWaitForSIOPowerGood(ev Event) {
	switch ev {
	case EventSioPowerGoodAssert:
		m.timers.cancel(timerSioPowerGoodWatchdog)
		m.enterState(StateOn)
	case EventSioPowerGoodWatchdogTimerExpired:
		m.enterState(StateFailedTransitionToOn)
		m.forcePowerOff()
	}
}

func (m *Manager) handleFailedTransitionToOn(ev Event) {
	switch ev {
	case EventPsPowerOkAssert:
		// Refuse auto-on after a failed transition.
		m.forcePowerOff()
	case EventPsPowerOkDeassert:
		m.gpio.cancelOutputTimer()
	case EventPowerButtonPressed:
		m.timers.arm(timerPsPowerOkWatchdog, psPowerOkWatchdog, m.onPsPowerOkWatchdogExpired)
		m.enterState(StateWaitForPSPowerOK)
	case EventPowerOnRequest:
		m.timers.arm(timerPsPowerOkWatchdog, psPowerOkWatchdog, m.onPsPowerOkWatchdogExpired)
		m.pulsePowerOut(powerPulse, nil)
		m.enterState(StateWaitForPSPowerOK)
	}
}

// handleOffLike implements both Off and ACLossOff: the two states share
// every transition, differing only in the DCPowerOnAfterACLost journal
// record ACLossOff emits before the rest of the action.
func (m *Manager) handleOffLike(ev Event, acLoss bool) {
	switch ev {
	case EventPsPowerOkAssert:
		if acLoss {
			m.logDCPowerOnAfterACLost()
		}
		if err := m.store.clear(); err != nil {
			logger.Warning("power-drop: clear failed:", err)
		}
		m.enterState(StateWaitForSIOPowerGood)
	case EventPowerButtonPressed:
		if acLoss {
			m.logDCPowerOnAfterACLost()
		}
		if err := m.store.clear(); err != nil {
			logger.Warning("power-drop: clear failed:", err)
		}
		m.timers.arm(timerPsPowerOkWatchdog, psPowerOkWatchdog, m.onPsPowerOkWatchdogExpired)
		m.enterState(StateWaitForPSPowerOK)
	case EventPowerOnRequest:
		if acLoss {
			m.logDCPowerOnAfterACLost()
		}
		if err := m.store.clear(); err != nil {
			logger.Warning("power-drop: clear failed:", err)
		}
		m.timers.arm(timerPsPowerOkWatchdog, psPowerOkWatchdog, m.onPsPowerOkWatchdogExpired)
		m.pulsePowerOut(powerPulse, nil)
		m.enterState(StateWaitForPSPowerOK)
	}
}

func (m *Manager) handleTransitionToOff(ev Event) {
	switch ev {
	case EventPsPowerOkDeassert:
		m.gpio.cancelOutputTimer()
		m.enterState(StateOff)
	}
}

func (m *Manager) handleGracefulTransitionToOff(ev Event) {
	switch ev {
	case EventPsPowerOkDeassert:
		m.timers.cancel(timerGracefulPowerOff)
		m.enterState(StateOff)
	case EventGracefulPowerOffTimerExpired:
		m.enterState(StateOn)
	}
}

func (m *Manager) handleCycleOff(ev Event) {
	switch ev {
	case EventPowerCycleTimerExpired:
		m.timers.arm(timerPsPowerOkWatchdog, psPowerOkWatchdog, m.onPsPowerOkWatchdogExpired)
		m.pulsePowerOut(powerPulse, nil)
		m.enterState(StateWaitForPSPowerOK)
	}
}

func (m *Manager) handleTransitionToCycleOff(ev Event) {
	switch ev {
	case EventPsPowerOkDeassert:
		m.gpio.cancelOutputTimer()
		m.enterState(StateCycleOff)
		m.timers.arm(timerPowerCycle, powerCyclePulse, m.onPowerCycleTimerExpired)
	}
}

func (m *Manager) handleGracefulTransitionToCycleOff(ev Event) {
	switch ev {
	case EventPsPowerOkDeassert:
		m.timers.cancel(timerGracefulPowerOff)
		m.enterState(StateCycleOff)
		m.timers.arm(timerPowerCycle, powerCyclePulse, m.onPowerCycleTimerExpired)
	case EventGracefulPowerOffTimerExpired:
		m.enterState(StateOn)
	}
}

// Timer completion adapters translate a wheel completion into the
// corresponding Event, ignoring aborted completions (a cancelled timer's
// belated firing must be a no-op). The timer wheel already
// delivers completions through the run queue (see timers.go), so these run
// with the same single-threaded guarantee as handleEvent itself and must
// not re-post.
func (m *Manager) onGracefulOffTimerExpired(aborted bool) {
	if aborted {
		return
	}
	m.handleEvent(EventGracefulPowerOffTimerExpired)
}

func (m *Manager) onPsPowerOkWatchdogExpired(aborted bool) {
	if aborted {
		return
	}
	m.handleEvent(EventPsPowerOkWatchdogTimerExpired)
}

func (m *Manager) onSioPowerGoodWatchdogExpired(aborted bool) {
	if aborted {
		return
	}
	m.handleEvent(EventSioPowerGoodWatchdogTimerExpired)
}

func (m *Manager) onPowerCycleTimerExpired(aborted bool) {
	if aborted {
		return
	}
	m.handleEvent(EventPowerCycleTimerExpired)
}
