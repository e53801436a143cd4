// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bytepool

import (
	"errors"
	"sync"
)

// ErrServerClosed is returned by [Server.Add] after [Server.Close].
var ErrServerClosed = errors.New("bytepool: server closed")

// Server owns a Builder on a dedicated goroutine and serializes
// insertions from any number of callers. Ids are assigned in the order
// the server receives requests, so with concurrent callers the id
// sequence depends on scheduling; every caller still gets the id that
// matches its bytes.
//
// Typical usage:
//
//	server := bytepool.NewServer(bytepool.NewBuilder())
//	// ... hand server to worker goroutines as an Interner ...
//	builder := server.Close()
type Server struct {
	requests chan addRequest
	closing  chan struct{}
	stopped  chan struct{}
	once     sync.Once
	builder  *Builder
}

type addRequest struct {
	data  []byte
	reply chan addReply
}

type addReply struct {
	id  int
	err error
}

// NewServer starts a server goroutine that owns builder. The caller
// must not touch builder again until Close returns it.
func NewServer(builder *Builder) *Server {
	server := &Server{
		requests: make(chan addRequest),
		closing:  make(chan struct{}),
		stopped:  make(chan struct{}),
		builder:  builder,
	}
	go server.loop()
	return server
}

func (s *Server) loop() {
	defer close(s.stopped)
	for {
		select {
		case request := <-s.requests:
			id, err := s.builder.Add(request.data)
			request.reply <- addReply{id: id, err: err}
		case <-s.closing:
			return
		}
	}
}

// Add submits data to the owning goroutine and waits for its id.
func (s *Server) Add(data []byte) (int, error) {
	request := addRequest{data: data, reply: make(chan addReply, 1)}
	select {
	case s.requests <- request:
	case <-s.closing:
		return 0, ErrServerClosed
	}
	reply := <-request.reply
	return reply.id, reply.err
}

// Close stops the server goroutine and hands the Builder back to the
// caller. Requests already accepted are answered first. Close is
// idempotent.
func (s *Server) Close() *Builder {
	s.once.Do(func() { close(s.closing) })
	<-s.stopped
	return s.builder
}
