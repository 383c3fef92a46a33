// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const lpcSioDevicePath = "/dev/lpc-sio"

// Linux ioctl command-number encoding (include/uapi/asm-generic/ioctl.h),
// reproduced here because the aspeed-lpc-sio character device has no Go
// binding in the module graph: golang.org/x/sys/unix exposes only the
// fixed ioctls it knows about, not platform char-driver ones.
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocRead  = 2
	iocWrite = 1
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift)
}

// sioIoctlData mirrors struct aspeed_lpc_sio_ioctl_data from
// <linux/aspeed-lpc-sio.h>: a command selector, an optional parameter, and
// the returned datum.
type sioIoctlData struct {
	Cmd   uint64
	Param uint64
	Data  uint64
}

var sioIOCCommand = ioc(iocRead|iocWrite, uintptr('s'), 1, unsafe.Sizeof(sioIoctlData{}))

// sioGetPFailStatus is the aspeed-lpc-sio sub-command that reports whether
// the SIO observed an AC/mains power-fail condition since the last reset.
const sioGetPFailStatus = 3

func sioIoctl(fd uintptr, data *sioIoctlData) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, sioIOCCommand, uintptr(unsafe.Pointer(data)))
	if errno != 0 {
		return errno
	}
	return nil
}

// acLossDetector is component D. isACBoot is invoked exactly once, at
// startup.
type acLossDetector struct {
	devicePath string
	warn       func(format string, args ...interface{})
}

func newACLossDetector(warn func(format string, args ...interface{})) *acLossDetector {
	return &acLossDetector{devicePath: lpcSioDevicePath, warn: warn}
}

// isACBoot opens the LPC-SIO device read-write, issues the "get P-FAIL
// status" command, closes the device, and returns true iff the returned
// datum is non-zero. Any open/ioctl failure returns false with a journal
// warning — "no AC loss signalled" is the safe default.
func (d *acLossDetector) isACBoot() bool {
	f, err := os.OpenFile(d.devicePath, os.O_RDWR, 0)
	if err != nil {
		d.warn("lpc-sio: open %s failed: %v", d.devicePath, err)
		return false
	}
	defer f.Close()

	data := sioIoctlData{Cmd: sioGetPFailStatus}
	if err := sioIoctl(f.Fd(), &data); err != nil {
		d.warn("lpc-sio: SIO_GET_PFAIL_STATUS ioctl failed: %v", err)
		return false
	}
	return data.Data != 0
}
