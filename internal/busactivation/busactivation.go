// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package busactivation checks whether the daemon's well-known system-bus
// name is already owned by probing it with a claim and releasing that
// claim again when the probe succeeds.
package busactivation

import (
	"github.com/godbus/dbus/v5"
	lib "github.com/linuxdeepin/go-lib"
)

// IsSystemBusActivated reports whether dest already has an owner on the
// system bus. When this process's probe claim wins the name, it releases
// that claim again before returning false, so the name can be requested
// properly later; when another owner holds it, it returns true at once.
func IsSystemBusActivated(dest string) bool {
	if !lib.UniqueOnSystem(dest) {
		return true
	}

	bus, _ := dbus.SystemBus()
	releaseDBusName(bus, dest)
	return false
}

func releaseDBusName(bus *dbus.Conn, name string) {
	if bus != nil {
		_, _ = bus.ReleaseName(name)
	}
}
