// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	dbus "github.com/godbus/dbus/v5"
	login1 "github.com/linuxdeepin/go-dbus-factory/system/org.freedesktop.login1"
	"github.com/linuxdeepin/go-lib/dbusutil"
)

// login1Watcher tracks the BMC's own suspend/resume cycle through login1's
// PrepareForSleep signal, grounded on keybinding1's subscription pattern
// (manager.go). It only records Manager.sleepObserved, which changes the
// wording of the DCPowerOnAfterACLost journal message; watchdogs, timers
// and state transitions do not consult it.
type login1Watcher struct {
	conn         *dbus.Conn
	loginManager login1.Manager
	sigLoop      *dbusutil.SignalLoop

	manager *Manager
}

func newLogin1Watcher(conn *dbus.Conn, manager *Manager) *login1Watcher {
	w := &login1Watcher{
		conn:         conn,
		loginManager: login1.NewManager(conn),
		manager:      manager,
	}
	w.sigLoop = dbusutil.NewSignalLoop(conn, 10)
	return w
}

// start begins watching PrepareForSleep; every callback is posted through
// the run queue so sleepObserved is only ever touched from there.
func (w *login1Watcher) start() error {
	w.sigLoop.Start()
	w.loginManager.InitSignalExt(w.sigLoop, true)
	_, err := w.loginManager.ConnectPrepareForSleep(func(isSleep bool) {
		w.manager.post(func() {
			w.manager.sleepObserved = isSleep
			if isSleep {
				logger.Info("login1: preparing for sleep, suspending AC-loss assumptions")
			} else {
				logger.Info("login1: resumed from sleep")
			}
		})
	})
	return err
}

func (w *login1Watcher) stop() {
	w.sigLoop.Stop()
}
