// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"sync"

	dbus "github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/go-lib/dbusutil"
)

// buttonObject exports xyz.openbmc_project.Chassis.Buttons for one of
// power/reset/nmi/id. The identify button (which) has no mask
// (component F only covers power/reset/NMI): its ButtonMasked write
// callback is simply never registered by surfaceHub.export.
type buttonObject struct {
	manager *Manager
	service *dbusutil.Service
	path    dbus.ObjectPath
	which   button

	PropsMu sync.RWMutex

	ButtonPressed bool
	ButtonMasked  bool
}

func (*buttonObject) GetInterfaceName() string {
	return buttonsInterface
}

func (o *buttonObject) publishPressed(pressed bool) {
	o.PropsMu.Lock()
	changed := o.ButtonPressed != pressed
	o.ButtonPressed = pressed
	o.PropsMu.Unlock()
	if changed && o.service != nil {
		_ = o.service.EmitPropertyChanged(o, "ButtonPressed", pressed)
	}
}

// writeButtonMasked applies or releases the mask via component F, then
// republishes ButtonMasked to reflect what actually took effect (a failed
// requestOutput leaves the previous mask state in place).
func (o *buttonObject) writeButtonMasked(write *dbusutil.PropertyWrite) *dbus.Error {
	masked, _ := write.Value.(bool)

	done := make(chan error, 1)
	o.manager.post(func() {
		done <- o.manager.masks.setMask(o.which, masked)
	})
	if err := <-done; err != nil {
		return dbusutil.ToError(err)
	}

	o.PropsMu.Lock()
	o.ButtonMasked = masked
	o.PropsMu.Unlock()
	if o.service != nil {
		_ = o.service.EmitPropertyChanged(o, "ButtonMasked", masked)
	}
	return nil
}
