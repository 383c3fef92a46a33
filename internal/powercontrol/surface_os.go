// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"sync"

	dbus "github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/go-lib/dbusutil"
)

// osObject exports xyz.openbmc_project.State.OperatingSystem.Status,
// relaying POST_COMPLETE. It has no writable properties and no
// corresponding state-machine Event: POST_COMPLETE only ever updates this
// surface.
type osObject struct {
	manager *Manager
	service *dbusutil.Service
	path    dbus.ObjectPath

	PropsMu sync.RWMutex

	OperatingSystemState string
}

func (*osObject) GetInterfaceName() string {
	return osInterface
}

// publish records the new POST_COMPLETE level. assertedLow mirrors the
// line's active-low convention: the line reads 0 once firmware has handed
// off to the OS.
func (o *osObject) publish(assertedLow bool) {
	state := "xyz.openbmc_project.State.OperatingSystem.Status.OSStatus.Inactive"
	if assertedLow {
		state = "xyz.openbmc_project.State.OperatingSystem.Status.OSStatus.Standby"
	}

	o.PropsMu.Lock()
	changed := o.OperatingSystemState != state
	o.OperatingSystemState = state
	o.PropsMu.Unlock()

	if changed && o.service != nil {
		_ = o.service.EmitPropertyChanged(o, "OperatingSystemState", state)
	}
}
