// Package shutdown stops memkv-server in an orderly way.
//
// Wait returns after SIGINT, SIGTERM, Trigger or the end of its context,
// once the named hooks have run in reverse registration order under a
// timeout:
//
//	h := shutdown.NewHandler(30*time.Second, log)
//	h.OnShutdown("memcache", srv.Shutdown)
//	err := h.Wait(ctx)
package shutdown
