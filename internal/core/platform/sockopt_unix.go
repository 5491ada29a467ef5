//go:build linux || darwin || freebsd

package platform

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// controlSocket 返回绑定前应用套接字选项的 Control 函数
//
// 端点重用折叠标志同时设置 SO_REUSEADDR 与 SO_REUSEPORT（平台
// 不区分两个传统选项）；随后透传已校验的通用套接字选项。
func controlSocket(params Parameters) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var optErr error
		err := c.Control(func(fd uintptr) {
			if params.AllowEndpointReuse {
				if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); e != nil {
					optErr = e
					return
				}
				if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); e != nil {
					optErr = e
					return
				}
			}
			for _, opt := range params.SocketOptions {
				if e := unix.SetsockoptInt(int(fd), opt.Level, opt.Name, opt.Value); e != nil {
					optErr = e
					return
				}
			}
		})
		if err != nil {
			return err
		}
		return optErr
	}
}
