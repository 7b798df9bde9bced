package communicator

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeDaemon accepts a single connection and replies to every frame with a
// fixed error code, so the transport's framing and state machine can be
// exercised without a real ldmsd.
func fakeDaemon(t *testing.T, code int, payload json.RawMessage) (addr, port string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
		for {
			var header [4]byte
			if _, err := readFull(rw, header[:]); err != nil {
				return
			}
			size := binary.BigEndian.Uint32(header[:])
			body := make([]byte, size)
			if _, err := readFull(rw, body); err != nil {
				return
			}
			resp := frame{Code: code, Payload: payload}
			out, _ := json.Marshal(resp)
			var outHeader [4]byte
			binary.BigEndian.PutUint32(outHeader[:], uint32(len(out)))
			rw.Write(outHeader[:])
			rw.Write(out)
			rw.Flush()
		}
	}()

	t.Cleanup(func() { ln.Close() })

	tcpAddr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", strconv.Itoa(tcpAddr.Port)
}

func TestSockCommunicatorConnectAndStateMachine(t *testing.T) {
	addr, port := fakeDaemon(t, 0, nil)
	c := NewSockCommunicator(addr, port, "none", nil)

	require.Equal(t, StateDisconnected, c.State())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	require.Equal(t, StateConnected, c.State())

	require.NoError(t, c.Close())
	require.Equal(t, StateDisconnected, c.State())
}

func TestSockCommunicatorProducerAddBenignEBUSY(t *testing.T) {
	addr, port := fakeDaemon(t, EBUSY, nil)
	c := NewSockCommunicator(addr, port, "none", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.ProducerAdd(ctx, "prod-01", "active", "sock", "10.0.0.1", "10001", 20_000_000)
	require.NoError(t, err)
}

func TestSockCommunicatorProducerAddNonBenignError(t *testing.T) {
	addr, port := fakeDaemon(t, 99, nil)
	c := NewSockCommunicator(addr, port, "none", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.ProducerAdd(ctx, "prod-01", "active", "sock", "10.0.0.1", "10001", 20_000_000)
	require.Error(t, err)
}

func TestSockCommunicatorDaemonStatus(t *testing.T) {
	addr, port := fakeDaemon(t, 0, json.RawMessage(`{"state":"ready"}`))
	c := NewSockCommunicator(addr, port, "none", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	state, err := c.DaemonStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, "ready", state)
}
