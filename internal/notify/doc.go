// Package notify fans store mutation events out to subscribers and sinks.
//
// A Broker is installed as the store's MutationHook. OnMutation stamps each
// event with a UUID and queues it without blocking; Run drains the queue on
// its own goroutine, delivering to channel subscribers first and then to
// every registered Sink in order.
//
// Delivery is best effort. A full queue or a full subscriber channel drops
// the event and increments Dropped. Sink errors are logged and never reach
// the store caller.
//
//	broker := notify.NewBroker(cfg.Store.EventBuffer)
//	broker.AddSink(notify.NewInfluxSink(influx))
//	go broker.Run(ctx)
//
//	st := store.New(exec, store.Options{Hook: broker})
package notify
