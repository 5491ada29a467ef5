//go:build !linux && !darwin && !freebsd

package platform

import "syscall"

// controlSocket 非 Unix 平台的空实现
//
// 端点重用与透传套接字选项仅在 Unix 系平台生效。
func controlSocket(Parameters) func(network, address string, c syscall.RawConn) error {
	return nil
}
