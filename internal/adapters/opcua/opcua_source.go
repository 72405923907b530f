// Package opcua turns PLC tag subscriptions into machine events. The good
// and reject tags are monotonically increasing piece counters maintained by
// the PLC; the state tag is a boolean that is true while the machine runs.
package opcua

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/domain"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/ports"
)

// Config captures the runtime details required to open an OPC UA session.
type Config struct {
	Endpoint        string        `yaml:"endpoint"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	SecurityMode    string        `yaml:"security_mode"`
	SecurityPolicy  string        `yaml:"security_policy"`
	ApplicationName string        `yaml:"application_name"`
	PublishInterval time.Duration `yaml:"publish_interval"`
	GoodNode        string        `yaml:"good_node"`
	RejectNode      string        `yaml:"reject_node"`
	StateNode       string        `yaml:"state_node"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "Factory Monitor Agent"
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = 250 * time.Millisecond
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if c.GoodNode == "" || c.RejectNode == "" {
		return errors.New("good_node and reject_node are required")
	}
	return nil
}

const (
	handleGood uint32 = iota + 1
	handleReject
	handleState
)

// Source subscribes to the configured tags and emits one machine event per
// counted part and per state transition.
type Source struct {
	cfg    Config
	client *opcua.Client
	sub    *opcua.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	started    bool
	lastGood   *uint64
	lastReject *uint64
}

var _ ports.EventSource = (*Source)(nil)

func NewSource(cfg Config) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Source{cfg: cfg}, nil
}

func (s *Source) Start(out chan<- *domain.MachineEvent) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("opcua source already started")
	}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())

	client, err := opcua.NewClient(s.cfg.Endpoint, s.clientOptions()...)
	if err != nil {
		cancel()
		return fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("opcua connect: %w", err)
	}

	notifyCh := make(chan *opcua.PublishNotificationData, 16)
	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: s.cfg.PublishInterval,
	}, notifyCh)
	if err != nil {
		cancel()
		_ = client.Close(ctx)
		return fmt.Errorf("opcua subscribe: %w", err)
	}

	tags := []struct {
		nodeID string
		handle uint32
	}{
		{s.cfg.GoodNode, handleGood},
		{s.cfg.RejectNode, handleReject},
	}
	if s.cfg.StateNode != "" {
		tags = append(tags, struct {
			nodeID string
			handle uint32
		}{s.cfg.StateNode, handleState})
	}

	for _, tag := range tags {
		nodeID, err := ua.ParseNodeID(tag.nodeID)
		if err != nil {
			s.cleanupOnError(cancel, sub, client)
			return fmt.Errorf("parse node id %q: %w", tag.nodeID, err)
		}
		req := opcua.NewMonitoredItemCreateRequestWithDefaults(nodeID, ua.AttributeIDValue, tag.handle)
		res, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, req)
		if err != nil {
			s.cleanupOnError(cancel, sub, client)
			return fmt.Errorf("monitor node %q: %w", tag.nodeID, err)
		}
		if len(res.Results) == 0 || res.Results[0].StatusCode != ua.StatusOK {
			s.cleanupOnError(cancel, sub, client)
			return fmt.Errorf("monitor node %q failed", tag.nodeID)
		}
	}

	s.mu.Lock()
	s.client = client
	s.sub = sub
	s.cancel = cancel
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.consume(ctx, notifyCh, out)
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	sub := s.sub
	client := s.client
	s.started = false
	s.cancel = nil
	s.sub = nil
	s.client = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()

	var err error
	if sub != nil {
		if e := sub.Cancel(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}
	if client != nil {
		if e := client.Close(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}

	s.wg.Wait()
	return err
}

func (s *Source) consume(ctx context.Context, ch <-chan *opcua.PublishNotificationData, out chan<- *domain.MachineEvent) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case notif := <-ch:
			if notif == nil {
				continue
			}
			if notif.Error != nil {
				log.Printf("opcua: notification error: %v", notif.Error)
				continue
			}
			s.processNotification(ctx, notif.Value, out)
		}
	}
}

func (s *Source) processNotification(ctx context.Context, val interface{}, out chan<- *domain.MachineEvent) {
	data, ok := val.(*ua.DataChangeNotification)
	if !ok {
		return
	}

	for _, item := range data.MonitoredItems {
		at := item.Value.ServerTimestamp
		if at.IsZero() {
			at = item.Value.SourceTimestamp
		}
		if at.IsZero() {
			at = time.Now()
		}

		switch item.ClientHandle {
		case handleGood:
			delta := s.counterDelta(&s.lastGood, item.Value.Value)
			for i := uint64(0); i < delta; i++ {
				if !emit(ctx, out, &domain.MachineEvent{Type: domain.EventGood, At: at}) {
					return
				}
			}
		case handleReject:
			delta := s.counterDelta(&s.lastReject, item.Value.Value)
			for i := uint64(0); i < delta; i++ {
				if !emit(ctx, out, &domain.MachineEvent{Type: domain.EventReject, At: at}) {
					return
				}
			}
		case handleState:
			state, ok := variantToState(item.Value.Value)
			if !ok {
				log.Printf("opcua: unsupported state tag type %T", item.Value.Value)
				continue
			}
			if !emit(ctx, out, &domain.MachineEvent{Type: domain.EventStateChange, State: state, At: at}) {
				return
			}
		}
	}
}

// counterDelta converts a PLC counter reading into the number of new parts
// since the previous reading. The first reading is a baseline and a counter
// that moved backwards (PLC reset) re-baselines instead of emitting.
func (s *Source) counterDelta(last **uint64, v *ua.Variant) uint64 {
	cur, ok := variantToUint(v)
	if !ok {
		log.Printf("opcua: unsupported counter tag type %T", v)
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := *last
	val := cur
	*last = &val
	if prev == nil || cur < *prev {
		return 0
	}
	return cur - *prev
}

func emit(ctx context.Context, out chan<- *domain.MachineEvent, ev *domain.MachineEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- ev:
		return true
	}
}

func (s *Source) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(s.cfg.SecurityMode)),
		opcua.SecurityPolicy(s.cfg.SecurityPolicy),
		opcua.ApplicationName(s.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if s.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(s.cfg.Username, s.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func (s *Source) cleanupOnError(cancel context.CancelFunc, sub *opcua.Subscription, client *opcua.Client) {
	cancel()
	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()
	if sub != nil {
		_ = sub.Cancel(ctx)
	}
	if client != nil {
		_ = client.Close(ctx)
	}
}

func variantToUint(v *ua.Variant) (uint64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.Value().(type) {
	case uint8:
		return uint64(val), true
	case uint16:
		return uint64(val), true
	case uint32:
		return uint64(val), true
	case uint64:
		return val, true
	case int8:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	case int16:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	case int32:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	case int64:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	default:
		return 0, false
	}
}

func variantToState(v *ua.Variant) (domain.MachineState, bool) {
	if v == nil {
		return domain.StateUnknown, false
	}
	switch val := v.Value().(type) {
	case bool:
		if val {
			return domain.StateRunning, true
		}
		return domain.StateStopped, true
	default:
		return domain.StateUnknown, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}
