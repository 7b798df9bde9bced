package communicator

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// frame is the single wire message exchanged over a sock transport
// connection: a verb, its arguments, and (on the reply) an error code and
// payload. Encoded as a 4-byte big-endian length prefix followed by a JSON
// body, since the wire protocol itself is out of scope (§1) and this is
// the simplest framing that will not desync on partial reads.
type frame struct {
	Verb    string            `json:"verb"`
	Args    map[string]string `json:"args,omitempty"`
	Code    int               `json:"code,omitempty"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

// SockCommunicator is the default Communicator transport: a plain
// net.Conn to the daemon's listening socket, identified by addr:port.
type SockCommunicator struct {
	*baseConn
	addr, port string
	authName   string
	authConfig map[string]string

	conn   net.Conn
	rw     *bufio.ReadWriter
	dialer net.Dialer
}

// NewSockCommunicator builds an unconnected sock transport.
func NewSockCommunicator(addr, port, authName string, authConfig map[string]string) *SockCommunicator {
	return &SockCommunicator{
		baseConn:   newBaseConn(addr + ":" + port),
		addr:       addr,
		port:       port,
		authName:   authName,
		authConfig: authConfig,
		dialer:     net.Dialer{Timeout: 5 * time.Second},
	}
}

func (s *SockCommunicator) Connect(ctx context.Context) error {
	if s.State() == StateConnected {
		return nil
	}
	s.setState(StateConnecting)

	conn, err := s.dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%s", s.addr, s.port))
	if err != nil {
		s.setState(StateDisconnected)
		return fmt.Errorf("connect %s:%s: %w", s.addr, s.port, err)
	}

	s.conn = conn
	s.rw = bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	s.setState(StateConnected)
	return nil
}

func (s *SockCommunicator) Reconnect(ctx context.Context) error {
	_ = s.Close()
	return s.Connect(ctx)
}

func (s *SockCommunicator) Close() error {
	if s.State() == StateDisconnected {
		return nil
	}
	s.setState(StateClosing)
	var err error
	if s.conn != nil {
		err = s.conn.Close()
	}
	s.setState(StateDisconnected)
	return err
}

func (s *SockCommunicator) call(ctx context.Context, verb string, args map[string]string) (frame, error) {
	if s.State() != StateConnected {
		if err := s.Connect(ctx); err != nil {
			return frame{}, err
		}
	}

	req := frame{Verb: verb, Args: args}
	body, err := json.Marshal(req)
	if err != nil {
		return frame{}, fmt.Errorf("%s: encode request: %w", verb, err)
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := s.rw.Write(header[:]); err != nil {
		return frame{}, fmt.Errorf("%s: write header: %w", verb, err)
	}
	if _, err := s.rw.Write(body); err != nil {
		return frame{}, fmt.Errorf("%s: write body: %w", verb, err)
	}
	if err := s.rw.Flush(); err != nil {
		return frame{}, fmt.Errorf("%s: flush: %w", verb, err)
	}

	resp, err := readResponse(s.rw)
	if err != nil {
		return frame{}, fmt.Errorf("%s: read response: %w", verb, err)
	}
	return resp, nil
}

// readResponse reads one length-prefixed JSON frame from r.
func readResponse(r *bufio.ReadWriter) (frame, error) {
	var header [4]byte
	if _, err := readFull(r, header[:]); err != nil {
		return frame{}, err
	}
	size := binary.BigEndian.Uint32(header[:])
	body := make([]byte, size)
	if _, err := readFull(r, body); err != nil {
		return frame{}, err
	}
	var resp frame
	if err := json.Unmarshal(body, &resp); err != nil {
		return frame{}, err
	}
	return resp, nil
}

func readFull(r *bufio.ReadWriter, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *SockCommunicator) command(ctx context.Context, verb string, args map[string]string) error {
	resp, err := s.call(ctx, verb, args)
	if err != nil {
		return err
	}
	return CheckResult(verb, resp.Code)
}

func (s *SockCommunicator) DaemonStatus(ctx context.Context) (string, error) {
	resp, err := s.call(ctx, "daemon_status", nil)
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

func (s *SockCommunicator) ProducerStatus(ctx context.Context) ([]ProducerStatus, error) {
	resp, err := s.call(ctx, "prdcr_status", nil)
	if err != nil {
		return nil, err
	}
	var out []ProducerStatus
	if len(resp.Payload) > 0 {
		_ = json.Unmarshal(resp.Payload, &out)
	}
	return out, nil
}

func (s *SockCommunicator) ProducerAdd(ctx context.Context, name, typ, xprt, addr, port string, reconnectMicros int64) error {
	return s.command(ctx, "prdcr_add", map[string]string{
		"name": name, "type": typ, "xprt": xprt, "host": addr, "port": port,
		"reconnect": fmt.Sprintf("%d", reconnectMicros),
	})
}

func (s *SockCommunicator) ProducerStart(ctx context.Context, name string) error {
	return s.command(ctx, "prdcr_start", map[string]string{"name": name})
}

func (s *SockCommunicator) ProducerStop(ctx context.Context, name string) error {
	return s.command(ctx, "prdcr_stop", map[string]string{"name": name})
}

func (s *SockCommunicator) UpdaterAdd(ctx context.Context, name, interval string, auto, push string) error {
	args := map[string]string{"name": name}
	switch {
	case push != "":
		args["push"] = push
	case auto != "":
		args["auto"] = auto
	default:
		args["interval"] = interval
	}
	return s.command(ctx, "updtr_add", args)
}

func (s *SockCommunicator) UpdaterProducerAdd(ctx context.Context, updater, producerRegex string) error {
	return s.command(ctx, "updtr_prdcr_add", map[string]string{"name": updater, "regex": producerRegex})
}

func (s *SockCommunicator) UpdaterMatchAdd(ctx context.Context, updater, setRegex, matchField string) error {
	args := map[string]string{"name": updater, "regex": setRegex}
	if matchField != "" {
		args["match"] = matchField
	}
	return s.command(ctx, "updtr_match_add", args)
}

func (s *SockCommunicator) UpdaterStart(ctx context.Context, name string) error {
	return s.command(ctx, "updtr_start", map[string]string{"name": name})
}

func (s *SockCommunicator) PluginLoad(ctx context.Context, name string) error {
	return s.command(ctx, "plugn_load", map[string]string{"name": name})
}

func (s *SockCommunicator) PluginConfig(ctx context.Context, name string, params map[string]string) error {
	args := map[string]string{"name": name}
	for k, v := range params {
		args[k] = v
	}
	return s.command(ctx, "plugn_config", args)
}

func (s *SockCommunicator) PluginStop(ctx context.Context, name string) error {
	return s.command(ctx, "plugn_stop", map[string]string{"name": name})
}

func (s *SockCommunicator) SamplerStart(ctx context.Context, plugin, interval string) error {
	return s.command(ctx, "smplr_start", map[string]string{"name": plugin, "interval": interval})
}

func (s *SockCommunicator) SamplerStatus(ctx context.Context, plugin string) (string, error) {
	resp, err := s.call(ctx, "smplr_status", map[string]string{"name": plugin})
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

func (s *SockCommunicator) StorePolicyAdd(ctx context.Context, name, plugin, container, schema string) error {
	return s.command(ctx, "strgp_add", map[string]string{"name": name, "plugin": plugin, "container": container, "schema": schema})
}

func (s *SockCommunicator) StorePolicyProducerAdd(ctx context.Context, name, producerRegex string) error {
	return s.command(ctx, "strgp_prdcr_add", map[string]string{"name": name, "regex": producerRegex})
}

func (s *SockCommunicator) StorePolicyStart(ctx context.Context, name string) error {
	return s.command(ctx, "strgp_start", map[string]string{"name": name})
}
