// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"fmt"
	"sync"

	dbus "github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/go-lib/dbusutil"
)

// chassisObject exports xyz.openbmc_project.State.Chassis.
type chassisObject struct {
	manager *Manager
	service *dbusutil.Service
	path    dbus.ObjectPath

	PropsMu sync.RWMutex

	CurrentPowerState        string
	RequestedPowerTransition string
}

func (*chassisObject) GetInterfaceName() string {
	return chassisInterface
}

func (o *chassisObject) publishState(s PowerState) {
	o.PropsMu.Lock()
	changed := o.CurrentPowerState != s.ChassisState()
	o.CurrentPowerState = s.ChassisState()
	o.PropsMu.Unlock()
	if changed && o.service != nil {
		_ = o.service.EmitPropertyChanged(o, "CurrentPowerState", o.CurrentPowerState)
	}
}

// writeRequestedPowerTransition maps the written transition target to a
// state-machine Event: chassis transitions are the immediate,
// non-graceful counterparts of the host transitions.
func (o *chassisObject) writeRequestedPowerTransition(write *dbusutil.PropertyWrite) *dbus.Error {
	target, _ := write.Value.(string)
	var ev Event
	switch target {
	case "xyz.openbmc_project.State.Chassis.Transition.Off":
		ev = EventPowerOffRequest
	case "xyz.openbmc_project.State.Chassis.Transition.On":
		ev = EventPowerOnRequest
	case "xyz.openbmc_project.State.Chassis.Transition.PowerCycle":
		ev = EventPowerCycleRequest
	case "xyz.openbmc_project.State.Chassis.Transition.Reset":
		ev = EventResetRequest
	default:
		return dbusInvalidArgument(chassisInterface, fmt.Sprintf("unrecognised RequestedPowerTransition %q", target))
	}

	o.PropsMu.Lock()
	o.RequestedPowerTransition = target
	o.PropsMu.Unlock()

	o.manager.post(func() { o.manager.handleEvent(ev) })
	return nil
}
