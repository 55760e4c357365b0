// Package network serves the local client protocol.
//
// Three sockets make up the surface:
//   - TCP (default 18002): framed JSON commands in, replies and events out
//   - UDP (default 18000): answers "are you hsb?" with "i am hsb"
//   - mDNS: advertises the TCP port as _hsb._tcp
//
// Every TCP frame is [magic 0x55AA:16][length:16][json], little endian,
// where length counts only the JSON body. Each connection gets the origin
// "tcp:<n>"; replies carrying that origin go back to it and events go to
// every connection.
//
// # Usage
//
//	cfg := network.Config{Host: "0.0.0.0", TCPPort: 18002, UDPPort: 18000}
//	srv := network.NewServer(cfg, mgr, logger)
//	mgr.AddPublisher(srv)
//	svc := network.NewService(srv, network.NewResponder(cfg, logger))
//	err := svc.Run(ctx)
package network
