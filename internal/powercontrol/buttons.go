// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import "sync"

// button identifies one of the three maskable chassis buttons.
type button int

const (
	buttonPower button = iota
	buttonReset
	buttonNMI
)

func (b button) String() string {
	switch b {
	case buttonPower:
		return "power"
	case buttonReset:
		return "reset"
	case buttonNMI:
		return "nmi"
	default:
		return "unknown"
	}
}

// outputLineFor names the line a held mask drives to hold the button
// inactive. On this platform POWER_OUT and RESET_OUT are wired-OR with
// their respective front-panel buttons, so masking a button means holding
// its shared output line at the inactive level — this also explains why
// gpioAdapter.setOutputFor must route a force-off or graceful-off pulse
// through the same handle rather than requesting the line twice (see
// DESIGN.md for this Open-Question resolution).
func outputLineFor(b button) (string, bool) {
	switch b {
	case buttonPower:
		return linePowerOut, true
	case buttonReset:
		return lineResetOut, true
	default:
		return "", false
	}
}

// maskTimerFor returns the per-button timer used to auto-clear a stale
// mask. BUTTON_MASK=60s is listed among the pulse constants without
// further elaboration; it is applied here as "a mask left set for longer
// than buttonMaskTimeout releases itself", the usual guard against an
// operator forgetting to restore raw button delivery (documented as an
// Open-Question resolution in DESIGN.md).
func maskTimerFor(b button) timerID {
	switch b {
	case buttonPower:
		return timerButtonMaskPower
	case buttonReset:
		return timerButtonMaskReset
	default:
		return timerButtonMaskNMI
	}
}

// buttonMasks is component F. It implements outputOwner so gpioAdapter can
// route pulses through a held mask handle.
type buttonMasks struct {
	chip   gpioChip
	timers *timerWheel

	mu     sync.Mutex
	masked map[button]bool
	held   map[button]gpioLine
}

func newButtonMasks(chip gpioChip, timers *timerWheel) *buttonMasks {
	return &buttonMasks{
		chip:   chip,
		timers: timers,
		masked: make(map[button]bool),
		held:   make(map[button]gpioLine),
	}
}

// isMasked reports the current mask state, published as ButtonMasked.
func (m *buttonMasks) isMasked(b button) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.masked[b]
}

// setMask applies or releases the mask for b. For power/reset this
// acquires (or releases) the shared output-line handle; for NMI it is a
// pure boolean gate with no GPIO side effect.
func (m *buttonMasks) setMask(b button, masked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.masked[b] == masked {
		return nil
	}

	lineName, hasLine := outputLineFor(b)
	if hasLine {
		if masked {
			line, err := m.chip.requestOutput(lineName, 1)
			if err != nil {
				return err
			}
			m.held[b] = line
		} else if line, ok := m.held[b]; ok {
			_ = line.Close()
			delete(m.held, b)
		}
	}

	m.masked[b] = masked
	if masked {
		m.timers.arm(maskTimerFor(b), buttonMaskTimeout, func(aborted bool) {
			if aborted {
				return
			}
			_ = m.setMask(b, false)
		})
	} else {
		m.timers.cancel(maskTimerFor(b))
	}
	return nil
}

// heldLine implements outputOwner for gpioAdapter.setOutputFor.
func (m *buttonMasks) heldLine(name string) (gpioLine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for b, line := range m.held {
		if ln, _ := outputLineFor(b); ln == name {
			return line, true
		}
	}
	return nil, false
}
