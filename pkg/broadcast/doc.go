// Package broadcast fans typed messages out to in-process subscribers.
//
//	b := broadcast.NewMemoryBroadcaster[reconcile.Notification](64)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	go func() {
//		for msg := range sub.Receive(ctx) {
//			handle(msg.Data)
//		}
//	}()
//
//	_ = b.Broadcast(ctx, broadcast.Message[reconcile.Notification]{Data: n})
//
// Broadcast never blocks: a subscriber whose buffer is full misses that
// message, which is counted by Dropped. A subscriber goes away when its
// context ends, when it is closed, or when the broadcaster is closed.
package broadcast
