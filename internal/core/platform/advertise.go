package platform

import (
	"github.com/hashicorp/mdns"

	"github.com/dep2p/go-netloop/pkg/types"
)

// ============================================================================
//                              服务通告
// ============================================================================

// advertiser mDNS 服务通告器
//
// 监听器进入 Ready 后按附加的服务描述（名称/类型/域）通告实际端口，
// 取消时撤销。描述内容只透传给 mDNS 层，不做解释。
type advertiser struct {
	server *mdns.Server
}

func newAdvertiser(svc types.ServiceDescriptor, port int) (*advertiser, error) {
	zone, err := mdns.NewMDNSService(svc.Name, svc.Type, svc.Domain, "", port, nil, nil)
	if err != nil {
		return nil, err
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: zone})
	if err != nil {
		return nil, err
	}
	return &advertiser{server: server}, nil
}

func (a *advertiser) shutdown() {
	_ = a.server.Shutdown()
}

// startAdvertise 启动服务通告
//
// 没有附加服务描述时为空操作；绑定成功、迁移 Ready 之前调用，
// 通告失败视同绑定失败。
func (l *Listener) startAdvertise() error {
	l.mu.Lock()
	svc := l.advertised
	l.mu.Unlock()

	if svc == nil {
		return nil
	}

	adv, err := newAdvertiser(*svc, l.Port())
	if err != nil {
		logger.Warn("服务通告启动失败", "service", svc.Type, "error", err)
		return err
	}

	l.mu.Lock()
	l.advertiser = adv
	l.mu.Unlock()

	logger.Debug("服务通告已启动", "name", svc.Name, "service", svc.Type, "port", l.Port())
	return nil
}

// stopAdvertise 撤销服务通告
func (l *Listener) stopAdvertise() {
	l.mu.Lock()
	adv := l.advertiser
	l.advertiser = nil
	l.mu.Unlock()

	if adv != nil {
		adv.shutdown()
	}
}
