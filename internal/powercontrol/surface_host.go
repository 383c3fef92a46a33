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

// hostObject exports xyz.openbmc_project.State.Host. It also carries
// PowerRestorePolicy/PowerRestoreDelay: these feed the restore-policy
// engine without being pinned to their own object path, so they are
// published here alongside the other host-scoped state.
type hostObject struct {
	manager *Manager
	service *dbusutil.Service
	path    dbus.ObjectPath

	PropsMu sync.RWMutex

	CurrentHostState        string
	RequestedHostTransition string

	PowerRestorePolicy string
	PowerRestoreDelay  uint16

	restoreCfgOnce sync.Once
	restoreCfgFn   func()
}

func (*hostObject) GetInterfaceName() string {
	return hostInterface
}

func (o *hostObject) publishState(s PowerState) {
	o.PropsMu.Lock()
	changed := o.CurrentHostState != s.HostState()
	o.CurrentHostState = s.HostState()
	o.PropsMu.Unlock()
	if changed && o.service != nil {
		_ = o.service.EmitPropertyChanged(o, "CurrentHostState", o.CurrentHostState)
	}
}

// writeRequestedHostTransition maps the written transition target to a
// state-machine Event and returns InvalidArgs for anything else.
func (o *hostObject) writeRequestedHostTransition(write *dbusutil.PropertyWrite) *dbus.Error {
	target, _ := write.Value.(string)
	var ev Event
	switch target {
	case "xyz.openbmc_project.State.Host.Transition.Off":
		ev = EventGracefulPowerOffRequest
	case "xyz.openbmc_project.State.Host.Transition.On":
		ev = EventPowerOnRequest
	case "xyz.openbmc_project.State.Host.Transition.Reboot":
		ev = EventGracefulPowerCycleRequest
	default:
		return dbusInvalidArgument(hostInterface, fmt.Sprintf("unrecognised RequestedHostTransition %q", target))
	}

	o.PropsMu.Lock()
	o.RequestedHostTransition = target
	o.PropsMu.Unlock()

	o.manager.post(func() { o.manager.handleEvent(ev) })
	return nil
}

func (o *hostObject) writeRestorePolicy(write *dbusutil.PropertyWrite) *dbus.Error {
	value, _ := write.Value.(string)
	switch restorePolicy(value) {
	case restorePolicyAlwaysOn, restorePolicyRestore, restorePolicyAlwaysOff:
	default:
		return dbusInvalidArgument(hostInterface, fmt.Sprintf("unrecognised PowerRestorePolicy %q", value))
	}
	o.PropsMu.Lock()
	o.PowerRestorePolicy = value
	o.PropsMu.Unlock()
	o.notifyRestoreConfigChanged()
	return nil
}

func (o *hostObject) writeRestoreDelay(write *dbusutil.PropertyWrite) *dbus.Error {
	value, ok := write.Value.(uint16)
	if !ok {
		return dbusInvalidArgument(hostInterface, "PowerRestoreDelay must be uint16")
	}
	o.PropsMu.Lock()
	o.PowerRestoreDelay = value
	o.PropsMu.Unlock()
	o.notifyRestoreConfigChanged()
	return nil
}

func (o *hostObject) notifyRestoreConfigChanged() {
	o.PropsMu.Lock()
	fn := o.restoreCfgFn
	o.restoreCfgFn = nil
	o.PropsMu.Unlock()
	if fn != nil {
		o.manager.post(fn)
	}
}

// restorePolicyConfig implements restorePolicySource for restorePolicyEngine.
// ok is false until PowerRestorePolicy has been written at least once.
// PowerRestoreDelay is not tracked separately: until it is written it
// reads as 0 and does not hold ok at false.
func (o *hostObject) restorePolicyConfig() (restorePolicy, uint16, bool) {
	o.PropsMu.RLock()
	defer o.PropsMu.RUnlock()
	if o.PowerRestorePolicy == "" {
		return "", 0, false
	}
	return restorePolicy(o.PowerRestorePolicy), o.PowerRestoreDelay, true
}

func (o *hostObject) onRestorePolicyConfigChange(fn func()) {
	o.PropsMu.Lock()
	o.restoreCfgFn = fn
	o.PropsMu.Unlock()
}
