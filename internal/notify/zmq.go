// Package notify pushes the ids of stored analyses to a ZeroMQ PULL socket
// so that cache generators can pick them up.
package notify

import (
	"sync"

	"github.com/pebbe/zmq4"
)

type Zmq struct {
	mu     sync.Mutex
	socket *zmq4.Socket
}

func NewZmq(endpoint string) (*Zmq, error) {
	soc, err := zmq4.NewSocket(zmq4.PUSH)
	if err != nil {
		return nil, err
	}
	if err := soc.Connect(endpoint); err != nil {
		soc.Close()
		return nil, err
	}
	return &Zmq{socket: soc}, nil
}

// Notify does not block when no consumer is connected.
func (this *Zmq) Notify(id string) error {
	this.mu.Lock()
	defer this.mu.Unlock()
	_, err := this.socket.Send(id, zmq4.DONTWAIT)
	return err
}

func (this *Zmq) Close() error {
	this.mu.Lock()
	defer this.mu.Unlock()
	return this.socket.Close()
}
