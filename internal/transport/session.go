package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync/atomic"
	"time"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

// SessionState is the connection lifecycle position. The cycle is
// DISCONNECTED → CONNECTING → CONNECTED → DISCONNECTED (on any error);
// there is no terminal state while the process runs.
type SessionState int32

const (
	Disconnected SessionState = iota
	Connecting
	Connected
)

func (s SessionState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// Session owns the single outbound TCP connection to the collection
// server. Messages are newline-delimited JSON documents; each send blocks
// until the matching ack arrives or the ack timeout expires. Any socket
// error tears the connection down so the next attempt reconnects cleanly —
// a half-open connection is never reused.
//
// Send is called from the coordinator goroutine only; State is safe to
// read from anywhere.
type Session struct {
	addr           string
	dialer         ports.Dialer
	connectTimeout time.Duration
	ackTimeout     time.Duration
	obs            ports.Observability

	conn    net.Conn
	reader  *bufio.Reader
	nextSeq uint64
	state   atomic.Int32
}

func NewSession(addr string, dialer ports.Dialer, connectTimeout, ackTimeout time.Duration, obs ports.Observability) *Session {
	if dialer == nil {
		d := &net.Dialer{}
		dialer = ports.DialerFunc(func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		})
	}
	return &Session{
		addr:           addr,
		dialer:         dialer,
		connectTimeout: connectTimeout,
		ackTimeout:     ackTimeout,
		obs:            obs,
	}
}

// State reports the current lifecycle position.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Send transmits one delivery record and waits for its ack. The sequence
// number is assigned here on the first send and reused verbatim by
// retries. Every returned error is a *TransientError.
func (s *Session) Send(ctx context.Context, rec *DeliveryRecord) error {
	if err := s.ensureConnected(ctx); err != nil {
		return err
	}

	if rec.Seq == 0 {
		s.nextSeq++
		rec.Seq = s.nextSeq
		rec.Payload.SequenceNumber = s.nextSeq
	}

	line, err := json.Marshal(rec.Payload)
	if err != nil {
		// Not transient: the payload itself is unencodable.
		return err
	}
	line = append(line, '\n')

	deadline := time.Now().Add(s.ackTimeout)
	if err := s.conn.SetDeadline(deadline); err != nil {
		s.teardown()
		return transientf("set deadline", err)
	}
	start := time.Now()
	if _, err := s.conn.Write(line); err != nil {
		s.teardown()
		return transientf("write payload", err)
	}

	if err := s.awaitAck(rec.Seq); err != nil {
		s.teardown()
		return err
	}
	s.obs.ObserveLatency("factory_ack_latency_seconds", time.Since(start).Seconds())
	return nil
}

// Close drops the connection. Safe to call when already disconnected.
func (s *Session) Close() {
	s.teardown()
}

func (s *Session) ensureConnected(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}
	s.setState(Connecting)

	dialCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	conn, err := s.dialer.DialContext(dialCtx, s.addr)
	if err != nil {
		s.setState(Disconnected)
		return transientf("connect "+s.addr, err)
	}
	s.conn = conn
	s.reader = bufio.NewReader(conn)
	s.setState(Connected)
	s.obs.LogInfo("session_connected", ports.Field{Key: "addr", Value: s.addr})
	return nil
}

// awaitAck reads ack lines until one matches seq or the deadline hits.
// Stale acks for earlier timed-out sends are skipped; unknown fields in
// server messages are ignored.
func (s *Session) awaitAck(seq uint64) error {
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			return transientf("read ack", err)
		}
		var ack domain.Ack
		if err := json.Unmarshal(line, &ack); err != nil {
			s.obs.LogError("ack_decode_failed", err)
			continue
		}
		if ack.Seq == seq {
			return nil
		}
	}
}

func (s *Session) teardown() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
		s.reader = nil
	}
	s.setState(Disconnected)
}

func (s *Session) setState(st SessionState) {
	s.state.Store(int32(st))
	if st == Connected {
		s.obs.SetGauge("factory_connected", 1)
	} else {
		s.obs.SetGauge("factory_connected", 0)
	}
}
