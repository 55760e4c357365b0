// Package driver speaks the sub-network command protocol to the nodes behind
// one (transport, port) pair.
//
// A Driver tracks which node address maps to which device. It turns inbound
// frames into device discoveries and value updates, and turns endpoint
// writes into SET commands. All methods run on the manager's dispatch loop,
// so a Driver holds no locks; outbound frames and discovered devices are
// handed to the Host, which queues them.
//
// The Infrared driver backs virtual remote-control devices. Key codes are
// not translated to blaster commands; writes are resolved to a blaster and
// dropped.
package driver
