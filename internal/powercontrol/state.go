// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import "time"

// PowerState is the authoritative host power state. There is exactly one
// current value at any time; transitions are driven solely by the state
// machine in statemachine.go.
type PowerState int

const (
	StateOn PowerState = iota
	StateWaitForPSPowerOK
	StateWaitForSIOPowerGood
	StateFailedTransitionToOn
	StateOff
	StateACLossOff
	StateTransitionToOff
	StateGracefulTransitionToOff
	StateCycleOff
	StateTransitionToCycleOff
	StateGracefulTransitionToCycleOff
)

func (s PowerState) String() string {
	switch s {
	case StateOn:
		return "On"
	case StateWaitForPSPowerOK:
		return "WaitForPSPowerOK"
	case StateWaitForSIOPowerGood:
		return "WaitForSIOPowerGood"
	case StateFailedTransitionToOn:
		return "FailedTransitionToOn"
	case StateOff:
		return "Off"
	case StateACLossOff:
		return "ACLossOff"
	case StateTransitionToOff:
		return "TransitionToOff"
	case StateGracefulTransitionToOff:
		return "GracefulTransitionToOff"
	case StateCycleOff:
		return "CycleOff"
	case StateTransitionToCycleOff:
		return "TransitionToCycleOff"
	case StateGracefulTransitionToCycleOff:
		return "GracefulTransitionToCycleOff"
	default:
		return "Unknown"
	}
}

// Running reports whether the projected HostState/ChassisState for this
// PowerState is "Running"/"On" on the D-Bus surface. Every other state projects to
// "Off".
func (s PowerState) Running() bool {
	switch s {
	case StateOn, StateTransitionToOff, StateGracefulTransitionToOff,
		StateTransitionToCycleOff, StateGracefulTransitionToCycleOff:
		return true
	default:
		return false
	}
}

// HostState is the value published on xyz.openbmc_project.State.Host's
// CurrentHostState property.
func (s PowerState) HostState() string {
	if s.Running() {
		return "xyz.openbmc_project.State.Host.HostState.Running"
	}
	return "xyz.openbmc_project.State.Host.HostState.Off"
}

// ChassisState is the value published on xyz.openbmc_project.State.Chassis's
// CurrentPowerState property.
func (s PowerState) ChassisState() string {
	if s.Running() {
		return "xyz.openbmc_project.State.Chassis.PowerState.On"
	}
	return "xyz.openbmc_project.State.Chassis.PowerState.Off"
}

// Event is a stimulus fed to the state machine: a GPIO edge, a timer
// expiration, or an external transition request.
type Event int

const (
	EventPsPowerOkAssert Event = iota
	EventPsPowerOkDeassert
	EventSioPowerGoodAssert
	EventSioPowerGoodDeassert
	EventSioS5Assert
	EventSioS5Deassert
	EventPowerButtonPressed
	EventPowerCycleTimerExpired
	EventPsPowerOkWatchdogTimerExpired
	EventSioPowerGoodWatchdogTimerExpired
	EventGracefulPowerOffTimerExpired
	EventPowerOnRequest
	EventPowerOffRequest
	EventPowerCycleRequest
	EventResetRequest
	EventGracefulPowerOffRequest
	EventGracefulPowerCycleRequest
)

func (e Event) String() string {
	switch e {
	case EventPsPowerOkAssert:
		return "PsPowerOkAssert"
	case EventPsPowerOkDeassert:
		return "PsPowerOkDeassert"
	case EventSioPowerGoodAssert:
		return "SioPowerGoodAssert"
	case EventSioPowerGoodDeassert:
		return "SioPowerGoodDeassert"
	case EventSioS5Assert:
		return "SioS5Assert"
	case EventSioS5Deassert:
		return "SioS5Deassert"
	case EventPowerButtonPressed:
		return "PowerButtonPressed"
	case EventPowerCycleTimerExpired:
		return "PowerCycleTimerExpired"
	case EventPsPowerOkWatchdogTimerExpired:
		return "PsPowerOkWatchdogTimerExpired"
	case EventSioPowerGoodWatchdogTimerExpired:
		return "SioPowerGoodWatchdogTimerExpired"
	case EventGracefulPowerOffTimerExpired:
		return "GracefulPowerOffTimerExpired"
	case EventPowerOnRequest:
		return "PowerOnRequest"
	case EventPowerOffRequest:
		return "PowerOffRequest"
	case EventPowerCycleRequest:
		return "PowerCycleRequest"
	case EventResetRequest:
		return "ResetRequest"
	case EventGracefulPowerOffRequest:
		return "GracefulPowerOffRequest"
	case EventGracefulPowerCycleRequest:
		return "GracefulPowerCycleRequest"
	default:
		return "Unknown"
	}
}

// Pulse and timeout durations governing output assertion and watchdogs.
const (
	powerPulse            = 200 * time.Millisecond
	forceOffPulse         = 15000 * time.Millisecond
	resetPulse            = 500 * time.Millisecond
	powerCyclePulse       = 1000 * time.Millisecond
	sioPowerGoodWatchdog  = 1000 * time.Millisecond
	psPowerOkWatchdog     = 8000 * time.Millisecond
	gracefulOffTimeout    = 60000 * time.Millisecond
	buttonMaskTimeout     = 60000 * time.Millisecond
	uBootSeconds          = 20
)
