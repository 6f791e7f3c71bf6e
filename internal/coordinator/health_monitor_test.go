package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/rawkv/internal/cluster"
)

func staticNodes(ids ...string) func() []cluster.NodeInfo {
	return func() []cluster.NodeInfo {
		nodes := make([]cluster.NodeInfo, 0, len(ids))
		for i, id := range ids {
			nodes = append(nodes, cluster.NodeInfo{ID: id, Addr: fmt.Sprintf("http://localhost:%d", 8081+i)})
		}
		return nodes
	}
}

func TestNewHealthMonitor(t *testing.T) {
	monitor := NewHealthMonitor(5 * time.Second)
	defer monitor.Stop()

	assert.Equal(t, 5*time.Second, monitor.interval)
	assert.NotNil(t, monitor.client)
	assert.Empty(t, monitor.GetAllNodeHealth())
}

func TestHealthMonitorStart(t *testing.T) {
	monitor := NewHealthMonitor(20 * time.Millisecond)
	defer monitor.Stop()

	var calls atomic.Int64
	monitor.SetCheckFunction(func(addr string) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitor.Start(ctx, staticNodes("node-1", "node-2"))

	assert.Eventually(t, func() bool { return calls.Load() >= 6 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, monitor.IsHealthy("node-1"))
	assert.True(t, monitor.IsHealthy("node-2"))
	assert.False(t, monitor.IsHealthy("node-3"))
}

func TestHealthMonitorNodeFailureAndRecovery(t *testing.T) {
	monitor := NewHealthMonitor(20 * time.Millisecond)
	defer monitor.Stop()

	var down atomic.Bool
	monitor.SetCheckFunction(func(addr string) error {
		if addr == "http://localhost:8081" && down.Load() {
			return errors.New("node is down")
		}
		return nil
	})

	var mu sync.Mutex
	var unhealthy, recovered []string
	monitor.SetOnUnhealthy(func(nodeID string) {
		mu.Lock()
		unhealthy = append(unhealthy, nodeID)
		mu.Unlock()
	})
	monitor.SetOnRecovered(func(nodeID string) {
		mu.Lock()
		recovered = append(recovered, nodeID)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitor.Start(ctx, staticNodes("node-1", "node-2"))

	require.Eventually(t, func() bool { return monitor.IsHealthy("node-1") }, time.Second, 5*time.Millisecond)

	down.Store(true)
	require.Eventually(t, func() bool {
		h := monitor.GetNodeHealth("node-1")
		return h != nil && h.Status == cluster.HealthUnhealthy
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, monitor.IsHealthy("node-2"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(unhealthy) == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"node-1"}, unhealthy)
	mu.Unlock()

	health := monitor.GetNodeHealth("node-1")
	require.NotNil(t, health)
	assert.GreaterOrEqual(t, health.ConsecutiveFails, 3)

	down.Store(false)
	require.Eventually(t, func() bool { return monitor.IsHealthy("node-1") }, time.Second, 5*time.Millisecond)
	health = monitor.GetNodeHealth("node-1")
	assert.Equal(t, 0, health.ConsecutiveFails)
	assert.False(t, health.LastHealthy.IsZero())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(recovered) == 1
	}, time.Second, 5*time.Millisecond)

	// Each callback fired once for its single transition
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	assert.Len(t, unhealthy, 1)
	assert.Equal(t, []string{"node-1"}, recovered)
	mu.Unlock()
}

func TestHealthMonitorNodeRemoval(t *testing.T) {
	monitor := NewHealthMonitor(20 * time.Millisecond)
	defer monitor.Stop()
	monitor.SetCheckFunction(func(string) error { return nil })

	var mu sync.Mutex
	ids := []string{"node-1", "node-2"}
	provider := func() []cluster.NodeInfo {
		mu.Lock()
		defer mu.Unlock()
		return staticNodes(ids...)()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitor.Start(ctx, provider)

	require.Eventually(t, func() bool { return len(monitor.GetAllNodeHealth()) == 2 }, time.Second, 5*time.Millisecond)

	mu.Lock()
	ids = []string{"node-1"}
	mu.Unlock()

	require.Eventually(t, func() bool { return len(monitor.GetAllNodeHealth()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, monitor.GetAllNodeHealth(), "node-1")
}

func TestHealthMonitorStop(t *testing.T) {
	monitor := NewHealthMonitor(20 * time.Millisecond)

	var calls atomic.Int64
	monitor.SetCheckFunction(func(string) error {
		calls.Add(1)
		return nil
	})

	monitor.Start(context.Background(), staticNodes("node-1"))
	require.Eventually(t, func() bool { return calls.Load() > 0 }, time.Second, 5*time.Millisecond)

	monitor.Stop()
	before := calls.Load()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, before, calls.Load())
}

func TestHealthMonitorStopRightAfterStart(t *testing.T) {
	monitor := NewHealthMonitor(time.Hour)

	release := make(chan struct{})
	var finished atomic.Bool
	monitor.SetCheckFunction(func(string) error {
		<-release
		finished.Store(true)
		return nil
	})

	monitor.Start(context.Background(), staticNodes("node-1"))

	stopped := make(chan struct{})
	go func() {
		monitor.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a probe was still running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	assert.True(t, finished.Load())
}

func TestHealthMonitorReturnsCopies(t *testing.T) {
	monitor := NewHealthMonitor(time.Hour)
	defer monitor.Stop()
	monitor.SetCheckFunction(func(string) error { return nil })

	monitor.checkAllNodes(staticNodes("node-1")())

	monitor.record("node-2", errors.New("down"))
	assert.Equal(t, cluster.HealthUnknown, monitor.GetNodeHealth("node-2").Status)
	assert.Equal(t, 1, monitor.GetNodeHealth("node-2").ConsecutiveFails)
	monitor.checkAllNodes(staticNodes("node-1")())
	assert.NotContains(t, monitor.GetAllNodeHealth(), "node-2", "dropped when absent from the node list")

	h := monitor.GetNodeHealth("node-1")
	require.NotNil(t, h)
	h.Status = cluster.HealthUnhealthy
	assert.True(t, monitor.IsHealthy("node-1"))
	assert.Nil(t, monitor.GetNodeHealth("node-999"))
}

func TestHTTPProbe(t *testing.T) {
	var status atomic.Int64
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	monitor := NewHealthMonitor(time.Hour)
	defer monitor.Stop()

	assert.NoError(t, monitor.httpProbe(server.URL))
	assert.NoError(t, monitor.httpProbe(server.URL+"/"))
	assert.NoError(t, monitor.httpProbe(server.Listener.Addr().String()))

	status.Store(http.StatusServiceUnavailable)
	assert.Error(t, monitor.httpProbe(server.URL))

	server.Close()
	assert.Error(t, monitor.httpProbe(server.URL))
}
