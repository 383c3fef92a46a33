// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// i2cSlaveIoctl is I2C_SLAVE from <linux/i2c-dev.h>: set the slave address
// for subsequent reads/writes on the opened bus device.
const i2cSlaveIoctl = 0x0703

// i2cWriter issues the "unconditional power-down" command used by
// force_power_off(): a single-byte register write to the PCH's I²C-attached
// power-sequencer.
type i2cWriter struct{}

// write opens /dev/i2c-<bus>, binds addr as the slave, and writes a single
// [reg, value] pair. Failure is the caller's to log, as a severe,
// non-retried error.
func (i2cWriter) write(bus int, addr uint16, reg, value byte) error {
	path := fmt.Sprintf("/dev/i2c-%d", bus)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("powercontrol: open %s: %w", path, err)
	}
	defer f.Close()

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), i2cSlaveIoctl, uintptr(addr)); errno != 0 {
		return fmt.Errorf("powercontrol: I2C_SLAVE 0x%02x: %w", addr, errno)
	}

	if _, err := f.Write([]byte{reg, value}); err != nil {
		return fmt.Errorf("powercontrol: i2c write reg=0x%02x value=0x%02x: %w", reg, value, err)
	}
	return nil
}

// Constants for the force-off fallback.
const (
	pchI2CBus     = 3
	pchI2CAddr    = 0x44
	pchCmdReg     = 0
	pchPowerDown  = 0x02
)
