package channel

import (
	"net"
	"sync"
)

// addrCache 地址快照缓存
//
// 通道中唯一明确允许跨线程读取的状态：绑定完成时在拥有循环上
// 写入一次，此后任意 goroutine 可读。监听通道的远端地址恒为 nil。
type addrCache struct {
	mu     sync.Mutex
	local  net.Addr
	remote net.Addr
}

// setLocal 写入本地地址（绑定完成时一次）
func (c *addrCache) setLocal(addr net.Addr) {
	c.mu.Lock()
	c.local = addr
	c.mu.Unlock()
}

// setRemote 写入远端地址（子通道注册时一次）
func (c *addrCache) setRemote(addr net.Addr) {
	c.mu.Lock()
	c.remote = addr
	c.mu.Unlock()
}

// Local 返回本地地址快照
func (c *addrCache) Local() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

// Remote 返回远端地址快照
func (c *addrCache) Remote() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}
