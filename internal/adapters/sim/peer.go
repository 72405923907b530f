package sim

import (
	"bufio"
	"encoding/json"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
)

// PeerConfig shapes the loopback server's behavior for exercising the retry
// path: a fraction of acks silently dropped and a fixed ack latency.
type PeerConfig struct {
	AckDropProbability float64
	AckLatency         time.Duration
}

// Peer is a loopback collection-server double: it accepts the agent's TCP
// connection, reads newline-delimited payloads, and answers each with an
// ack line.
type Peer struct {
	cfg      PeerConfig
	ln       net.Listener
	rng      *rand.Rand
	rngMu    sync.Mutex
	received atomic.Int64
	wg       sync.WaitGroup
}

// StartPeer listens on addr ("127.0.0.1:0" picks a free port) and serves
// until Close.
func StartPeer(addr string, cfg PeerConfig) (*Peer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	p := &Peer{
		cfg: cfg,
		ln:  ln,
		rng: rand.New(rand.NewSource(int64(rand.Uint64()))),
	}
	p.wg.Add(1)
	go p.acceptLoop()
	return p, nil
}

// Addr returns the listen address for the agent to dial.
func (p *Peer) Addr() string { return p.ln.Addr().String() }

// Received reports how many payload lines the peer has decoded.
func (p *Peer) Received() int64 { return p.received.Load() }

func (p *Peer) Close() error {
	err := p.ln.Close()
	p.wg.Wait()
	return err
}

func (p *Peer) acceptLoop() {
	defer p.wg.Done()
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		p.wg.Add(1)
		go p.serve(conn)
	}
}

func (p *Peer) serve(conn net.Conn) {
	defer p.wg.Done()
	defer conn.Close()

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return
		}
		var payload domain.TelemetryPayload
		if err := json.Unmarshal(line, &payload); err != nil {
			continue
		}
		p.received.Add(1)

		if p.dropAck() {
			continue
		}
		if p.cfg.AckLatency > 0 {
			time.Sleep(p.cfg.AckLatency)
		}
		ack, _ := json.Marshal(domain.Ack{Seq: payload.SequenceNumber})
		if _, err := conn.Write(append(ack, '\n')); err != nil {
			return
		}
	}
}

func (p *Peer) dropAck() bool {
	if p.cfg.AckDropProbability <= 0 {
		return false
	}
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	return p.rng.Float64() < p.cfg.AckDropProbability
}
