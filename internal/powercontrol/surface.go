// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	dbus "github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/go-lib/dbusutil"
)

// Object paths and interface names for component H. Names are
// preserved verbatim for interoperability with existing BMC tooling.
const (
	hostObjectPath    = dbus.ObjectPath("/xyz/openbmc_project/state/host0")
	hostInterface     = "xyz.openbmc_project.State.Host"
	chassisObjectPath = dbus.ObjectPath("/xyz/openbmc_project/state/chassis0")
	chassisInterface  = "xyz.openbmc_project.State.Chassis"
	osObjectPath      = dbus.ObjectPath("/xyz/openbmc_project/state/os")
	osInterface       = "xyz.openbmc_project.State.OperatingSystem.Status"
	buttonsInterface  = "xyz.openbmc_project.Chassis.Buttons"
)

func buttonObjectPath(b button) dbus.ObjectPath {
	switch b {
	case buttonPower:
		return "/xyz/openbmc_project/chassis/buttons/power"
	case buttonReset:
		return "/xyz/openbmc_project/chassis/buttons/reset"
	case buttonNMI:
		return "/xyz/openbmc_project/chassis/buttons/nmi"
	default:
		return "/xyz/openbmc_project/chassis/buttons/id"
	}
}

// dbusInvalidArgument builds the error returned by a request handler that
// received an unrecognised transition target.
func dbusInvalidArgument(iface, detail string) *dbus.Error {
	return dbus.NewError("org.freedesktop.DBus.Error.InvalidArgs",
		[]interface{}{iface + ": " + detail})
}

// surfaceHub owns the four exported object groups and wires them to the
// Manager. It is component H.
type surfaceHub struct {
	service *dbusutil.Service
	manager *Manager

	host    *hostObject
	chassis *chassisObject
	os      *osObject
	buttons map[button]*buttonObject
}

func newSurfaceHub(service *dbusutil.Service, manager *Manager) *surfaceHub {
	hub := &surfaceHub{
		service: service,
		manager: manager,
		host:    &hostObject{manager: manager},
		chassis: &chassisObject{manager: manager},
		os:      &osObject{manager: manager},
		buttons: make(map[button]*buttonObject),
	}
	for _, b := range []button{buttonPower, buttonReset, buttonNMI, buttonIDConst} {
		hub.buttons[b] = &buttonObject{manager: manager, which: b}
	}
	return hub
}

// buttonIDConst extends the maskable button enum with the identify button,
// which has no mask (component F only covers power/reset/NMI) but still
// publishes ButtonPressed/ButtonMasked on its own object path.
const buttonIDConst button = 100

// export registers every surface object with the bus service and wires the
// property-write callbacks that feed external requests into the state
// machine, following the NewServerObject/SetWriteCallback/Export sequence.
func (h *surfaceHub) export() error {
	h.host.path = hostObjectPath
	h.host.service = h.service
	hostServerObj, err := h.service.NewServerObject(hostObjectPath, h.host)
	if err != nil {
		return err
	}
	if err := hostServerObj.SetWriteCallback(h.host, "RequestedHostTransition", h.host.writeRequestedHostTransition); err != nil {
		return err
	}
	if err := hostServerObj.SetWriteCallback(h.host, "PowerRestorePolicy", h.host.writeRestorePolicy); err != nil {
		return err
	}
	if err := hostServerObj.SetWriteCallback(h.host, "PowerRestoreDelay", h.host.writeRestoreDelay); err != nil {
		return err
	}
	if err := hostServerObj.Export(); err != nil {
		return err
	}

	h.chassis.path = chassisObjectPath
	h.chassis.service = h.service
	chassisServerObj, err := h.service.NewServerObject(chassisObjectPath, h.chassis)
	if err != nil {
		return err
	}
	if err := chassisServerObj.SetWriteCallback(h.chassis, "RequestedPowerTransition", h.chassis.writeRequestedPowerTransition); err != nil {
		return err
	}
	if err := chassisServerObj.Export(); err != nil {
		return err
	}

	h.os.path = osObjectPath
	h.os.service = h.service
	osServerObj, err := h.service.NewServerObject(osObjectPath, h.os)
	if err != nil {
		return err
	}
	if err := osServerObj.Export(); err != nil {
		return err
	}

	for b, obj := range h.buttons {
		obj.path = buttonObjectPath(b)
		obj.service = h.service
		serverObj, err := h.service.NewServerObject(obj.path, obj)
		if err != nil {
			return err
		}
		if b != buttonIDConst {
			if err := serverObj.SetWriteCallback(obj, "ButtonMasked", obj.writeButtonMasked); err != nil {
				return err
			}
		}
		if err := serverObj.Export(); err != nil {
			return err
		}
	}
	return nil
}
