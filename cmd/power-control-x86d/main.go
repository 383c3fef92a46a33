// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"os"

	"github.com/linuxdeepin/go-lib/dbusutil"
	"github.com/linuxdeepin/go-lib/log"

	"github.com/bmc-project/power-control-x86/internal/busactivation"
	"github.com/bmc-project/power-control-x86/internal/powercontrol"
)

const dbusServiceName = "xyz.openbmc_project.State.Power"

var logger = log.NewLogger("power-control-x86d")

// stateDirEnv, when set, overrides the default power-drop state directory.
const stateDirEnv = "POWER_CONTROL_STATE_DIR"

func main() {
	service, err := dbusutil.NewSystemService()
	if err != nil {
		logger.Fatal("failed to new system service:", err)
	}

	if busactivation.IsSystemBusActivated(dbusServiceName) {
		logger.Warningf("name %q already has an owner", dbusServiceName)
		os.Exit(1)
	}

	manager := powercontrol.NewManager(os.Getenv(stateDirEnv))

	if err := manager.ExportSurface(service); err != nil {
		logger.Fatal("failed to export surface:", err)
	}

	if err := manager.Start(); err != nil {
		logger.Fatal("failed to start manager:", err)
	}
	defer manager.Stop()

	if err := manager.WatchSleep(service.Conn()); err != nil {
		logger.Warning("failed to watch login1 sleep signal:", err)
	}

	if err := service.RequestName(dbusServiceName); err != nil {
		logger.Fatal("failed to request name:", err)
	}

	service.Wait()
}
