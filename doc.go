// Package netloop 提供事件循环监听通道运行时
//
// netloop 把回调驱动的平台监听原语适配成事件循环/管道风格的通道抽象：
//
//   - 每条通道永久绑定到一个单线程事件循环，状态迁移全序执行
//   - 绑定、选项、关闭都返回单次解析的 Future
//   - 接受的连接包装为子通道，移交到循环池中轮转分配的循环
//   - 服务通告（Bonjour 风格三元组）作为不透明元数据透传
//
// 使用示例：
//
//	svc, err := netloop.New(netloop.WithChildLoops(4))
//	if err != nil {
//		return err
//	}
//	if err := svc.Start(ctx); err != nil {
//		return err
//	}
//	defer svc.Stop(ctx)
//
//	ch := svc.ListenStream()
//	ch.Pipeline().AddLast(myHandler)
//	if _, err := ch.Activate(types.HostPortTarget("127.0.0.1", 0)).Await(ctx); err != nil {
//		return err
//	}
//	logger.Info("listening", "addr", ch.LocalAddr())
package netloop
