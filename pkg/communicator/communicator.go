package communicator

import (
	"context"
	"fmt"
	"sync"

	"github.com/nick-enoent/maestro/pkg/log"
)

// State is a position in the connection state machine
// (DISCONNECTED → CONNECTING → CONNECTED → CLOSING → DISCONNECTED, §4.E).
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateClosing      State = "closing"
)

// ProducerStatus is one entry returned by prdcr_status.
type ProducerStatus struct {
	Name  string
	State string
}

// Communicator is the abstract channel to one daemon (§4.E). All management
// verbs return only an error: benign daemon codes are absorbed by the
// implementation before the caller ever sees them, per errors.go.
type Communicator interface {
	// Connect dials the daemon, transitioning DISCONNECTED → CONNECTING →
	// CONNECTED. A call while already CONNECTED is a no-op.
	Connect(ctx context.Context) error

	// Reconnect closes any existing connection and dials again.
	Reconnect(ctx context.Context) error

	// Close transitions CONNECTED → CLOSING → DISCONNECTED.
	Close() error

	// State returns the current connection state.
	State() State

	// DaemonStatus requests liveness and reports the daemon's own state.
	DaemonStatus(ctx context.Context) (string, error)

	// ProducerStatus lists producers known to the peer.
	ProducerStatus(ctx context.Context) ([]ProducerStatus, error)

	ProducerAdd(ctx context.Context, name, typ, xprt, addr, port string, reconnectMicros int64) error
	ProducerStart(ctx context.Context, name string) error
	ProducerStop(ctx context.Context, name string) error

	UpdaterAdd(ctx context.Context, name string, interval string, auto, push string) error
	UpdaterProducerAdd(ctx context.Context, updater, producerRegex string) error
	UpdaterMatchAdd(ctx context.Context, updater, setRegex, matchField string) error
	UpdaterStart(ctx context.Context, name string) error

	PluginLoad(ctx context.Context, name string) error
	PluginConfig(ctx context.Context, name string, params map[string]string) error
	PluginStop(ctx context.Context, name string) error

	SamplerStart(ctx context.Context, plugin string, interval string) error
	SamplerStatus(ctx context.Context, plugin string) (string, error)

	StorePolicyAdd(ctx context.Context, name, plugin, container, schema string) error
	StorePolicyProducerAdd(ctx context.Context, name, producerRegex string) error
	StorePolicyStart(ctx context.Context, name string) error
}

// baseConn holds the connection-state bookkeeping shared by every transport
// implementation, so sock.go and grpc.go only need to implement dial/close.
type baseConn struct {
	mu    sync.Mutex
	state State
	host  string
}

func newBaseConn(host string) *baseConn {
	return &baseConn{state: StateDisconnected, host: host}
}

func (b *baseConn) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *baseConn) setState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
}

// New builds the transport named by xprt, defaulting to "sock" when empty
// (§3: Host.Xprt defaults to sock).
func New(xprt, addr, port, authName string, authConfig map[string]string) (Communicator, error) {
	switch xprt {
	case "", "sock":
		return NewSockCommunicator(addr, port, authName, authConfig), nil
	case "grpc":
		return NewGRPCCommunicator(addr, port, authName, authConfig), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", xprt)
	}
}

var commLog = log.WithComponent("communicator")
