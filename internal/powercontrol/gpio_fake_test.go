// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import "sync"

// fakeLine and fakeChip are a minimal in-memory gpioChip, modeled on
// u-bmc's fakeGpio (other_examples/u-root-u-bmc__gpio_fake.go): a map of
// named ports with a current boolean value, settable by the test harness
// (fakeChip.set) and readable/writable by production code through the
// gpioLine interface.
type fakeLine struct {
	chip *fakeChip
	name string
}

func (l *fakeLine) Value() (int, error) {
	l.chip.mu.Lock()
	defer l.chip.mu.Unlock()
	if l.chip.values[l.name] {
		return 1, nil
	}
	return 0, nil
}

func (l *fakeLine) SetValue(v int) error {
	l.chip.setLocked(l.name, v != 0)
	return nil
}

func (l *fakeLine) Close() error {
	l.chip.mu.Lock()
	defer l.chip.mu.Unlock()
	delete(l.chip.open, l.name)
	return nil
}

type fakeChip struct {
	mu        sync.Mutex
	values    map[string]bool
	handlers  map[string]func(edge)
	open      map[string]bool
	failNames map[string]bool
}

func newFakeChip() *fakeChip {
	return &fakeChip{
		values:    make(map[string]bool),
		handlers:  make(map[string]func(edge)),
		open:      make(map[string]bool),
		failNames: make(map[string]bool),
	}
}

func (c *fakeChip) requestInput(name string, handler func(edge)) (gpioLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNames[name] {
		return nil, errFakeRequestFailed
	}
	c.handlers[name] = handler
	c.open[name] = true
	return &fakeLine{chip: c, name: name}, nil
}

func (c *fakeChip) requestOutput(name string, initial int) (gpioLine, error) {
	c.mu.Lock()
	if c.failNames[name] {
		c.mu.Unlock()
		return nil, errFakeRequestFailed
	}
	c.open[name] = true
	c.mu.Unlock()
	c.setLocked(name, initial != 0)
	return &fakeLine{chip: c, name: name}, nil
}

func (c *fakeChip) close() error {
	return nil
}

// set drives name to v from the test harness and, if a handler was
// registered via requestInput, synchronously invokes it with the implied
// edge. This mirrors the synchronous, single-threaded semantics the real
// adapter relies on (the run queue serializes everything downstream of
// subscribe's onEvent callback).
func (c *fakeChip) set(name string, v bool) {
	changed, edge := c.setLocked(name, v)
	if !changed {
		return
	}
	c.mu.Lock()
	handler := c.handlers[name]
	c.mu.Unlock()
	if handler != nil {
		handler(edge)
	}
}

func (c *fakeChip) setLocked(name string, v bool) (bool, edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.values[name]
	c.values[name] = v
	e := edgeFalling
	if v {
		e = edgeRising
	}
	return prev != v, e
}

func (c *fakeChip) get(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[name]
}

func (c *fakeChip) isOpen(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open[name]
}

var errFakeRequestFailed = fakeErr("fake gpio: requested line unavailable")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
