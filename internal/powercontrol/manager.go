// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"os"
	"strconv"
	"strings"
	"time"

	dbus "github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/go-lib/dbusutil"
	"github.com/linuxdeepin/go-lib/log"
)

var logger = log.NewLogger("power-control-x86d")

// defaultGPIODevice and gpioConsumer are the production settings for the
// GPIO chip; Start always opens defaultGPIODevice (no environment override).
// defaultStateDir is used when NewManager receives an empty state directory.
const (
	defaultGPIODevice  = "/dev/gpiochip0"
	gpioConsumer       = "power-control-x86d"
	defaultStateDir    = "/var/lib/power-control-x86"
	dcPowerOnMessageID = "OpenBMC.0.1.DCPowerOnAfterACLost"
)

// acLossSource is the subset of acLossDetector the Manager depends on;
// tests substitute a fake to exercise the ACLossOff initial-state branch
// without the real aspeed-lpc-sio character device.
type acLossSource interface {
	isACBoot() bool
}

// Manager is component G: the event-driven state machine plus the wiring
// that feeds it from components A-F and drives component H. Every method
// that touches m.state, or any of the components it owns, must run on the
// run queue; handleEvent and the timer/GPIO completion adapters
// are the only entry points invoked off the queue goroutine, via post.
type Manager struct {
	state PowerState

	gpio          *gpioAdapter
	timers        *timerWheel
	store         *powerDropStore
	masks         *buttonMasks
	acLoss        acLossSource
	restorePolicy *restorePolicyEngine
	i2c           i2cWriter
	hub           *surfaceHub
	login1        *login1Watcher

	sleepObserved bool

	runQueue chan func()
	quit     chan struct{}
}

// NewManager wires every component but does not yet touch hardware; call
// Start to open the GPIO chip, compute the initial state, and begin serving
// the run queue.
func NewManager(stateDir string) *Manager {
	if stateDir == "" {
		stateDir = defaultStateDir
	}

	m := &Manager{
		runQueue: make(chan func(), 64),
		quit:     make(chan struct{}),
		store:    newPowerDropStore(stateDir),
	}
	m.timers = newTimerWheel(m.post)
	m.acLoss = newACLossDetector(func(format string, args ...interface{}) {
		logger.Warningf(format, args...)
	})
	return m
}

// ExportSurface builds and exports component H (the four D-Bus object
// groups) and wires it to this Manager. Call it before Start.
func (m *Manager) ExportSurface(service *dbusutil.Service) error {
	m.hub = newSurfaceHub(service, m)
	return m.hub.export()
}

// Start opens the GPIO chip, subscribes every input line, computes the
// initial PowerState, and launches the run-queue goroutine. ExportSurface
// must have already run.
func (m *Manager) Start() error {
	chip, err := openChip(defaultGPIODevice, gpioConsumer)
	if err != nil {
		return err
	}
	return m.startWithChip(chip)
}

// startWithChip does the hardware-independent half of Start; tests call it
// directly with a fakeChip in place of a real GPIO character device.
func (m *Manager) startWithChip(chip gpioChip) error {
	if err := m.store.initialize(); err != nil {
		logger.Warning("power-drop: initialize failed:", err)
	}

	m.masks = newButtonMasks(chip, m.timers)
	m.gpio = newGPIOAdapter(chip, m.timers, m.masks)
	m.restorePolicy = newRestorePolicyEngine(m.timers, m.store, m.hub.host, func() time.Duration {
		return uptime()
	}, func() {
		m.post(func() { m.handleEvent(EventPowerOnRequest) })
	})

	if err := m.subscribeInputs(); err != nil {
		return err
	}

	go m.run()

	m.post(m.computeInitialState)
	return nil
}

// WatchSleep starts tracking the BMC's own suspend/resume cycle.
// Optional: call after Start.
func (m *Manager) WatchSleep(conn *dbus.Conn) error {
	m.login1 = newLogin1Watcher(conn, m)
	return m.login1.start()
}

// Stop releases every GPIO handle and stops the run queue.
func (m *Manager) Stop() error {
	if m.login1 != nil {
		m.login1.stop()
	}
	close(m.quit)
	return m.gpio.close()
}

// post schedules fn to run on the run-queue goroutine, serializing it with
// every GPIO event, timer completion and D-Bus request.
func (m *Manager) post(fn func()) {
	select {
	case m.runQueue <- fn:
	case <-m.quit:
	}
}

func (m *Manager) run() {
	for {
		select {
		case fn := <-m.runQueue:
			fn()
		case <-m.quit:
			return
		}
	}
}

// subscribeInputs wires every watched GPIO line to its run-queue-posted
// handler.
func (m *Manager) subscribeInputs() error {
	inputs := []struct {
		name    string
		handler func(edge)
	}{
		{linePSPwrOK, m.onPSPwrOKEdge},
		{lineSIOPowerGood, m.onSIOPowerGoodEdge},
		{lineSIOS5, m.onSIOS5Edge},
		{linePostComplete, m.onPostCompleteEdge},
		{linePowerButton, m.onPowerButtonEdge},
		{lineResetButton, m.onResetButtonEdge},
		{lineNMIButton, m.onNMIButtonEdge},
		{lineIDButton, m.onIDButtonEdge},
	}
	for _, in := range inputs {
		handler := in.handler
		if err := m.gpio.subscribe(in.name, func(e edge) {
			m.post(func() { handler(e) })
		}); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) onPSPwrOKEdge(e edge) {
	if e == edgeRising {
		m.handleEvent(EventPsPowerOkAssert)
	} else {
		m.handleEvent(EventPsPowerOkDeassert)
	}
}

func (m *Manager) onSIOPowerGoodEdge(e edge) {
	if e == edgeRising {
		m.handleEvent(EventSioPowerGoodAssert)
	} else {
		m.handleEvent(EventSioPowerGoodDeassert)
	}
}

func (m *Manager) onSIOS5Edge(e edge) {
	if e == edgeFalling {
		m.handleEvent(EventSioS5Assert)
	} else {
		m.handleEvent(EventSioS5Deassert)
	}
}

// onPostCompleteEdge only updates the OperatingSystemState surface
// (component H); POST_COMPLETE has no corresponding state-machine Event.
func (m *Manager) onPostCompleteEdge(e edge) {
	m.hub.os.publish(e == edgeFalling)
}

// onPowerButtonEdge publishes ButtonPressed unconditionally, then injects
// PowerButtonPressed iff the button is currently unmasked.
func (m *Manager) onPowerButtonEdge(e edge) {
	pressed := e == edgeFalling
	m.hub.buttons[buttonPower].publishPressed(pressed)
	if pressed && !m.masks.isMasked(buttonPower) {
		m.handleEvent(EventPowerButtonPressed)
	}
}

// onResetButtonEdge publishes ButtonPressed only: a raw reset press never
// reaches the state machine — the front panel
// reset, unlike power, has no corresponding Event, so there is nothing to
// drop conditionally here; masking only suppresses the physical line).
func (m *Manager) onResetButtonEdge(e edge) {
	m.hub.buttons[buttonReset].publishPressed(e == edgeFalling)
}

func (m *Manager) onNMIButtonEdge(e edge) {
	m.hub.buttons[buttonNMI].publishPressed(e == edgeFalling)
}

func (m *Manager) onIDButtonEdge(e edge) {
	m.hub.buttons[buttonIDConst].publishPressed(e == edgeFalling)
}

// computeInitialState implements the initial-state computation: the
// current PS_PWROK level decides between the On-like and Off-like branches,
// and on the Off-like branch an AC-loss boot overrides the entered state to
// ACLossOff and kicks off the restore-policy engine; a clean boot logs
// immediately instead.
func (m *Manager) computeInitialState() {
	level, err := m.gpio.read(linePSPwrOK)
	if err != nil {
		logger.Warning("initial state: PS_PWROK read failed:", err)
		level = 0
	}

	acLoss := m.acLoss.isACBoot()

	if level == 1 {
		if acLoss {
			m.logDCPowerOnAfterACLost()
		}
		m.enterState(StateOn)
		return
	}

	if acLoss {
		m.enterState(StateACLossOff)
		m.restorePolicy.run()
	} else {
		logger.Info("initial state: AC on, no power-fail observed")
		m.enterState(StateOff)
	}
}

// enterState commits a new PowerState and republishes the projected
// Host/Chassis surface values. Only handleEvent and computeInitialState
// call this, and both run on the run queue.
func (m *Manager) enterState(s PowerState) {
	m.state = s
	if m.hub != nil {
		m.hub.host.publishState(s)
		m.hub.chassis.publishState(s)
	}
}

// pulsePowerOut drives POWER_OUT active for duration then releases it,
// routing through a held button mask if one owns the line.
// onExpire, if non-nil, is invoked with aborted=true if the pulse was cut
// short by cancelOutputTimer. If the line itself cannot be acquired, that is
// treated as a forcePowerOff fallback trigger: the I²C unconditional
// power-down command is issued immediately instead of silently dropping the
// request.
func (m *Manager) pulsePowerOut(duration time.Duration, onExpire func(aborted bool)) {
	if err := m.gpio.setOutputFor(linePowerOut, 0, duration, onExpire); err != nil {
		logger.Warning("pulsePowerOut failed, falling back to i2c power-down:", err)
		if err := m.i2c.write(pchI2CBus, pchI2CAddr, pchCmdReg, pchPowerDown); err != nil {
			logger.Warning("pulsePowerOut: i2c fallback failed:", err)
		}
	}
}

// pulseResetOut drives RESET_OUT active for duration then releases it.
func (m *Manager) pulseResetOut(duration time.Duration) {
	if err := m.gpio.setOutputFor(lineResetOut, 0, duration, nil); err != nil {
		logger.Warning("pulseResetOut failed:", err)
	}
}

// forcePowerOff is the unconditional power-down path: pulse
// POWER_OUT for FORCE_OFF_PULSE; if that completes without being
// superseded by another edge (aborted=false), issue the I²C fallback
// command to the PCH's power-sequencer and log failure only, per the
// severe/non-retried error policy.
func (m *Manager) forcePowerOff() {
	m.pulsePowerOut(forceOffPulse, func(aborted bool) {
		if aborted {
			return
		}
		if err := m.i2c.write(pchI2CBus, pchI2CAddr, pchCmdReg, pchPowerDown); err != nil {
			logger.Warning("forcePowerOff: i2c fallback failed:", err)
		}
	})
}

// logDCPowerOnAfterACLost records the Redfish DCPowerOnAfterACLost message
// when DC power returns to a host that booted under an AC-loss condition.
// sleepObserved distinguishes a real AC loss from the BMC's own suspend, so
// the message reads "after suspend" rather than "after power loss" when
// PrepareForSleep(true) was the most recent observation; a resume
// (PrepareForSleep(false)) clears it again.
func (m *Manager) logDCPowerOnAfterACLost() {
	if m.sleepObserved {
		logger.Info("journal: AC on (after suspend):", dcPowerOnMessageID)
	} else {
		logger.Info("journal: AC on (after power loss):", dcPowerOnMessageID)
	}
}

// uptime reads the BMC's own uptime from /proc/uptime, used by the
// restore-policy engine to discount the delay already elapsed while the
// BMC itself was coming up (effective = max(0, delay - uBoot - uptime)).
func uptime() time.Duration {
	data, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
