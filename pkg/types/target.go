package types

import "fmt"

// ============================================================================
//                              服务通告三元组
// ============================================================================

// ServiceDescriptor 服务通告三元组
//
// Bonjour 风格的服务元数据，netloop 只透传，不解释其语义。
type ServiceDescriptor struct {
	// Name 服务实例名，如 "my-printer"
	Name string

	// Type 服务类型，如 "_http._tcp"
	Type string

	// Domain 服务域，如 "local."
	Domain string
}

// String 返回可读表示
func (s ServiceDescriptor) String() string {
	return fmt.Sprintf("%s.%s.%s", s.Name, s.Type, s.Domain)
}

// ============================================================================
//                              绑定目标
// ============================================================================

// targetKind 绑定目标种类
type targetKind int

const (
	targetHostPort targetKind = iota
	targetUnixPath
	targetService
)

// BindTarget 绑定目标
//
// 两类目标：
//   - 主机/端口（或 Unix 域套接字路径）目标：设置平台监听器的必需本地端点
//   - 服务发现目标：设置必需网络接口，并在监听器构造后附加服务通告元数据
//
// 通过构造函数创建，种类构造后不可变。
type BindTarget struct {
	kind targetKind

	// 主机端口目标
	host string
	port int

	// Unix 域套接字目标
	path string

	// 服务发现目标
	iface   string
	service ServiceDescriptor
}

// HostPortTarget 创建主机/端口绑定目标
//
// port 为 0 表示请求平台分配临时端口。
func HostPortTarget(host string, port int) BindTarget {
	return BindTarget{kind: targetHostPort, host: host, port: port}
}

// UnixPathTarget 创建 Unix 域套接字绑定目标
func UnixPathTarget(path string) BindTarget {
	return BindTarget{kind: targetUnixPath, path: path}
}

// ServiceTarget 创建服务发现绑定目标
//
// iface 指定必需的网络接口（可为空表示任意接口），
// service 为构造后附加的通告元数据。
func ServiceTarget(iface string, service ServiceDescriptor) BindTarget {
	return BindTarget{kind: targetService, iface: iface, service: service}
}

// IsHostPort 检查是否为主机/端口目标
func (t BindTarget) IsHostPort() bool { return t.kind == targetHostPort }

// IsUnixPath 检查是否为 Unix 域套接字目标
func (t BindTarget) IsUnixPath() bool { return t.kind == targetUnixPath }

// IsService 检查是否为服务发现目标
func (t BindTarget) IsService() bool { return t.kind == targetService }

// Host 返回主机名（仅主机/端口目标有效）
func (t BindTarget) Host() string { return t.host }

// Port 返回端口（仅主机/端口目标有效）
func (t BindTarget) Port() int { return t.port }

// Path 返回套接字路径（仅 Unix 域套接字目标有效）
func (t BindTarget) Path() string { return t.path }

// Interface 返回必需网络接口（仅服务发现目标有效）
func (t BindTarget) Interface() string { return t.iface }

// Service 返回服务通告三元组（仅服务发现目标有效）
func (t BindTarget) Service() ServiceDescriptor { return t.service }

// String 返回可读表示
func (t BindTarget) String() string {
	switch t.kind {
	case targetHostPort:
		return fmt.Sprintf("%s:%d", t.host, t.port)
	case targetUnixPath:
		return fmt.Sprintf("unix:%s", t.path)
	case targetService:
		return fmt.Sprintf("service:%s@%s", t.service, t.iface)
	default:
		return fmt.Sprintf("target(%d)", t.kind)
	}
}
