// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Named line registry. Inputs are watched on both edges; outputs
// are active-low and pulse-shaped by the adapter's setOutputFor.
const (
	linePSPwrOK      = "PS_PWROK"
	lineSIOPowerGood = "SIO_POWER_GOOD"
	lineSIOOnControl = "SIO_ONCONTROL"
	lineSIOS5        = "SIO_S5"
	linePowerButton  = "POWER_BUTTON"
	lineResetButton  = "RESET_BUTTON"
	lineNMIButton    = "NMI_BUTTON"
	lineIDButton     = "ID_BUTTON"
	linePostComplete = "POST_COMPLETE"
	linePowerOut     = "POWER_OUT"
	lineResetOut     = "RESET_OUT"
)

// edge is the direction of a GPIO line transition.
type edge int

const (
	edgeRising edge = iota
	edgeFalling
)

// gpioLine is a single requested, open line: readable if input, writable if
// output.
type gpioLine interface {
	Value() (int, error)
	SetValue(v int) error
	Close() error
}

// gpioChip is the subset of a Linux GPIO character device the adapter needs.
// The production implementation is cdevChip, backed by go-gpiocdev; tests
// substitute a fakeChip modeled on u-bmc's fakeGpio (see gpio_fake_test.go).
type gpioChip interface {
	requestInput(name string, handler func(edge)) (gpioLine, error)
	requestOutput(name string, initial int) (gpioLine, error)
	close() error
}

// cdevChip is the production gpioChip, backed by a single Linux GPIO
// character device. Line names are resolved to offsets via chip.FindLine,
// following the pattern in the pack's fancontrol GPIO driver.
type cdevChip struct {
	chip     *gpiocdev.Chip
	consumer string
}

func openChip(devicePath, consumer string) (*cdevChip, error) {
	chip, err := gpiocdev.NewChip(devicePath)
	if err != nil {
		return nil, fmt.Errorf("powercontrol: open gpio chip %s: %w", devicePath, err)
	}
	return &cdevChip{chip: chip, consumer: consumer}, nil
}

func (c *cdevChip) requestInput(name string, handler func(edge)) (gpioLine, error) {
	offset, err := c.chip.FindLine(name)
	if err != nil {
		return nil, fmt.Errorf("powercontrol: line %s not found: %w", name, err)
	}
	eh := func(evt gpiocdev.LineEvent) {
		if handler == nil {
			return
		}
		switch evt.Type {
		case gpiocdev.LineEventRisingEdge:
			handler(edgeRising)
		case gpiocdev.LineEventFallingEdge:
			handler(edgeFalling)
		}
	}
	line, err := c.chip.RequestLine(offset,
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(eh),
		gpiocdev.WithConsumer(c.consumer))
	if err != nil {
		return nil, fmt.Errorf("powercontrol: request input %s: %w", name, err)
	}
	return line, nil
}

func (c *cdevChip) requestOutput(name string, initial int) (gpioLine, error) {
	offset, err := c.chip.FindLine(name)
	if err != nil {
		return nil, fmt.Errorf("powercontrol: line %s not found: %w", name, err)
	}
	line, err := c.chip.RequestLine(offset,
		gpiocdev.AsOutput(initial),
		gpiocdev.WithConsumer(c.consumer))
	if err != nil {
		return nil, fmt.Errorf("powercontrol: request output %s: %w", name, err)
	}
	return line, nil
}

func (c *cdevChip) close() error {
	return c.chip.Close()
}

// outputOwner is consulted by gpioAdapter.setOutputFor to find out whether a
// button mask (component F) already owns a held handle on the requested
// output line; when it does, the pulse must be driven through that handle
// instead of requesting the line separately, and the handle remains held
// afterwards rather than being closed.
type outputOwner interface {
	heldLine(name string) (gpioLine, bool)
}

// activePulse tracks the one in-flight setOutputFor call. The state machine
// never drives two outputs concurrently, so a single slot mirrors the
// single GpioAssertTimer handle it owns.
type activePulse struct {
	name     string
	line     gpioLine
	inactive int
	owned    bool // true if the adapter requested the line itself and must close it on release
	onExpire func(aborted bool)
}

// gpioAdapter is component A.
type gpioAdapter struct {
	chip   gpioChip
	timers *timerWheel
	masks  outputOwner

	mu     sync.Mutex
	inputs map[string]gpioLine
	pulse  *activePulse
}

func newGPIOAdapter(chip gpioChip, timers *timerWheel, masks outputOwner) *gpioAdapter {
	return &gpioAdapter{
		chip:   chip,
		timers: timers,
		masks:  masks,
		inputs: make(map[string]gpioLine),
	}
}

// subscribe registers name for both-edge events; onEvent runs on the run
// queue (the caller is expected to have wrapped handler to post there).
func (a *gpioAdapter) subscribe(name string, onEvent func(edge)) error {
	line, err := a.chip.requestInput(name, onEvent)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.inputs[name] = line
	a.mu.Unlock()
	return nil
}

// read returns the current level of a previously-subscribed input line.
func (a *gpioAdapter) read(name string) (int, error) {
	a.mu.Lock()
	line, ok := a.inputs[name]
	a.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("powercontrol: line %s not subscribed", name)
	}
	return line.Value()
}

// setOutputFor drives name to value immediately, arms a release timer for
// duration, and on expiry drives !value. onExpire is invoked with
// aborted=true if cancelOutputTimer ran before the timer
// fired naturally; production force-off logic uses this to distinguish "PCH
// override was interrupted" from "PCH override ran to completion".
func (a *gpioAdapter) setOutputFor(name string, value int, duration time.Duration, onExpire func(aborted bool)) error {
	var line gpioLine
	owned := true
	if held, ok := a.masks.heldLine(name); ok {
		line = held
		owned = false
		if err := line.SetValue(value); err != nil {
			return err
		}
	} else {
		requested, err := a.chip.requestOutput(name, value)
		if err != nil {
			return fmt.Errorf("powercontrol: set output %s: %w", name, err)
		}
		line = requested
	}

	a.mu.Lock()
	a.pulse = &activePulse{name: name, line: line, inactive: 1 - value, owned: owned, onExpire: onExpire}
	a.mu.Unlock()

	a.timers.arm(timerGpioAssert, duration, func(aborted bool) {
		a.releasePulse(aborted)
	})
	return nil
}

// releasePulse drives the held pulse line to its inactive level, releases
// it (unless a mask owns it), clears the in-flight pulse, and invokes the
// stored onExpire callback exactly once.
func (a *gpioAdapter) releasePulse(aborted bool) {
	a.mu.Lock()
	p := a.pulse
	a.pulse = nil
	a.mu.Unlock()
	if p == nil {
		return
	}
	_ = p.line.SetValue(p.inactive)
	if p.owned {
		_ = p.line.Close()
	}
	if p.onExpire != nil {
		p.onExpire(aborted)
	}
}

// cancelOutputTimer cancels the in-flight release timer armed by the most
// recent setOutputFor call and releases the line immediately, driving it to
// its inactive level before release. The timer
// wheel's own completion, if already queued, becomes a no-op.
func (a *gpioAdapter) cancelOutputTimer() {
	a.timers.cancel(timerGpioAssert)
	a.releasePulse(true)
}

func (a *gpioAdapter) close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, line := range a.inputs {
		_ = line.Close()
	}
	return a.chip.close()
}
