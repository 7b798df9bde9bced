package communicator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// rawCodec passes already-marshaled JSON bytes straight through, so this
// transport can speak to a daemon's configuration service without any
// generated .proto stubs — every verb goes through one fixed method and is
// named inside the frame, the type from sock.go reused as the payload shape
// on both sides.
type rawCodec struct{}

func (rawCodec) Marshal(v interface{}) ([]byte, error) {
	switch m := v.(type) {
	case *frame:
		return json.Marshal(m)
	default:
		return json.Marshal(v)
	}
}

func (rawCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (rawCodec) Name() string { return "raw-json" }

func init() {
	encoding.RegisterCodec(rawCodec{})
}

// GRPCCommunicator speaks the same frame protocol as SockCommunicator but
// over a grpc.ClientConn, for daemons fronted by a grpc-compatible proxy
// (Host.Xprt == "grpc"). It invokes the same generic method for every verb
// via ClientConn.Invoke, since the wire protocol's actual method/message definitions
// are out of scope (§1).
type GRPCCommunicator struct {
	*baseConn
	addr, port string
	authName   string
	authConfig map[string]string

	conn *grpc.ClientConn
}

// NewGRPCCommunicator builds an unconnected grpc transport.
func NewGRPCCommunicator(addr, port, authName string, authConfig map[string]string) *GRPCCommunicator {
	return &GRPCCommunicator{
		baseConn:   newBaseConn(addr + ":" + port),
		addr:       addr,
		port:       port,
		authName:   authName,
		authConfig: authConfig,
	}
}

func (g *GRPCCommunicator) Connect(ctx context.Context) error {
	if g.State() == StateConnected {
		return nil
	}
	g.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, fmt.Sprintf("%s:%s", g.addr, g.port),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rawCodec{}.Name())),
		grpc.WithBlock(),
	)
	if err != nil {
		g.setState(StateDisconnected)
		return fmt.Errorf("dial %s:%s: %w", g.addr, g.port, err)
	}

	g.conn = conn
	g.setState(StateConnected)
	return nil
}

func (g *GRPCCommunicator) Reconnect(ctx context.Context) error {
	_ = g.Close()
	return g.Connect(ctx)
}

func (g *GRPCCommunicator) Close() error {
	if g.State() == StateDisconnected {
		return nil
	}
	g.setState(StateClosing)
	var err error
	if g.conn != nil {
		err = g.conn.Close()
	}
	g.setState(StateDisconnected)
	return err
}

func (g *GRPCCommunicator) call(ctx context.Context, verb string, args map[string]string) (frame, error) {
	if g.State() != StateConnected {
		if err := g.Connect(ctx); err != nil {
			return frame{}, err
		}
	}

	req := &frame{Verb: verb, Args: args}
	resp := &frame{}
	if err := g.conn.Invoke(ctx, "/ldms.Configurator/Command", req, resp); err != nil {
		return frame{}, fmt.Errorf("%s: %w", verb, err)
	}
	return *resp, nil
}

func (g *GRPCCommunicator) command(ctx context.Context, verb string, args map[string]string) error {
	resp, err := g.call(ctx, verb, args)
	if err != nil {
		return err
	}
	return CheckResult(verb, resp.Code)
}

func (g *GRPCCommunicator) DaemonStatus(ctx context.Context) (string, error) {
	resp, err := g.call(ctx, "daemon_status", nil)
	if err != nil {
		return "stopped", nil
	}
	var out struct {
		State string `json:"state"`
	}
	if len(resp.Payload) > 0 {
		_ = json.Unmarshal(resp.Payload, &out)
	}
	if out.State == "" {
		out.State = "stopped"
	}
	return out.State, nil
}

func (g *GRPCCommunicator) ProducerStatus(ctx context.Context) ([]ProducerStatus, error) {
	resp, err := g.call(ctx, "prdcr_status", nil)
	if err != nil {
		return nil, err
	}
	var out []ProducerStatus
	if len(resp.Payload) > 0 {
		_ = json.Unmarshal(resp.Payload, &out)
	}
	return out, nil
}

func (g *GRPCCommunicator) ProducerAdd(ctx context.Context, name, typ, xprt, addr, port string, reconnectMicros int64) error {
	return g.command(ctx, "prdcr_add", map[string]string{
		"name": name, "type": typ, "xprt": xprt, "host": addr, "port": port,
		"reconnect": fmt.Sprintf("%d", reconnectMicros),
	})
}

func (g *GRPCCommunicator) ProducerStart(ctx context.Context, name string) error {
	return g.command(ctx, "prdcr_start", map[string]string{"name": name})
}

func (g *GRPCCommunicator) ProducerStop(ctx context.Context, name string) error {
	return g.command(ctx, "prdcr_stop", map[string]string{"name": name})
}

func (g *GRPCCommunicator) UpdaterAdd(ctx context.Context, name, interval string, auto, push string) error {
	args := map[string]string{"name": name}
	switch {
	case push != "":
		args["push"] = push
	case auto != "":
		args["auto"] = auto
	default:
		args["interval"] = interval
	}
	return g.command(ctx, "updtr_add", args)
}

func (g *GRPCCommunicator) UpdaterProducerAdd(ctx context.Context, updater, producerRegex string) error {
	return g.command(ctx, "updtr_prdcr_add", map[string]string{"name": updater, "regex": producerRegex})
}

func (g *GRPCCommunicator) UpdaterMatchAdd(ctx context.Context, updater, setRegex, matchField string) error {
	args := map[string]string{"name": updater, "regex": setRegex}
	if matchField != "" {
		args["match"] = matchField
	}
	return g.command(ctx, "updtr_match_add", args)
}

func (g *GRPCCommunicator) UpdaterStart(ctx context.Context, name string) error {
	return g.command(ctx, "updtr_start", map[string]string{"name": name})
}

func (g *GRPCCommunicator) PluginLoad(ctx context.Context, name string) error {
	return g.command(ctx, "plugn_load", map[string]string{"name": name})
}

func (g *GRPCCommunicator) PluginConfig(ctx context.Context, name string, params map[string]string) error {
	args := map[string]string{"name": name}
	for k, v := range params {
		args[k] = v
	}
	return g.command(ctx, "plugn_config", args)
}

func (g *GRPCCommunicator) PluginStop(ctx context.Context, name string) error {
	return g.command(ctx, "plugn_stop", map[string]string{"name": name})
}

func (g *GRPCCommunicator) SamplerStart(ctx context.Context, plugin, interval string) error {
	return g.command(ctx, "smplr_start", map[string]string{"name": plugin, "interval": interval})
}

func (g *GRPCCommunicator) SamplerStatus(ctx context.Context, plugin string) (string, error) {
	resp, err := g.call(ctx, "smplr_status", map[string]string{"name": plugin})
	if err != nil {
		return "", err
	}
	var out struct {
		State string `json:"state"`
	}
	if len(resp.Payload) > 0 {
		_ = json.Unmarshal(resp.Payload, &out)
	}
	return out.State, nil
}

func (g *GRPCCommunicator) StorePolicyAdd(ctx context.Context, name, plugin, container, schema string) error {
	return g.command(ctx, "strgp_add", map[string]string{"name": name, "plugin": plugin, "container": container, "schema": schema})
}

func (g *GRPCCommunicator) StorePolicyProducerAdd(ctx context.Context, name, producerRegex string) error {
	return g.command(ctx, "strgp_prdcr_add", map[string]string{"name": name, "regex": producerRegex})
}

func (g *GRPCCommunicator) StorePolicyStart(ctx context.Context, name string) error {
	return g.command(ctx, "strgp_start", map[string]string{"name": name})
}
