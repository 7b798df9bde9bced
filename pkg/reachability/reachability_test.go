package reachability

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbeHealthyOnOpenPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := NewProber()
	result := p.Probe(context.Background(), ln.Addr().String())
	assert.True(t, result.Healthy)
}

func TestProbeUnhealthyOnClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	p := NewProber()
	result := p.Probe(context.Background(), addr)
	assert.False(t, result.Healthy)
}

func TestStatusDebouncesFailuresBeforeFlippingUnhealthy(t *testing.T) {
	s := NewStatus()
	cfg := Config{Retries: 3}

	s.Update(Result{Healthy: false}, cfg)
	assert.True(t, s.Healthy, "one failure should not flip status")
	s.Update(Result{Healthy: false}, cfg)
	assert.True(t, s.Healthy, "two failures should not flip status")
	s.Update(Result{Healthy: false}, cfg)
	assert.False(t, s.Healthy, "three consecutive failures should flip status")
}

func TestStatusRecoversImmediatelyOnSuccess(t *testing.T) {
	s := NewStatus()
	cfg := Config{Retries: 3}
	s.Update(Result{Healthy: false}, cfg)
	s.Update(Result{Healthy: false}, cfg)
	s.Update(Result{Healthy: false}, cfg)
	assert.False(t, s.Healthy)

	s.Update(Result{Healthy: true}, cfg)
	assert.True(t, s.Healthy, "a single success should restore health")
	assert.Equal(t, 0, s.ConsecutiveFailures)
}
