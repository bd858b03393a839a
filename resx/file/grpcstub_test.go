package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-resx/pkg/config"
	"github.com/redbco/redb-resx/pkg/logger"
	"github.com/redbco/redb-resx/resx/file"
)

// TestGRPCDispatcherFromConfigParsesNodeAddresses verifies only
// "node.<id>.address" keys become entries in the dispatcher's address book —
// unrelated configuration keys (e.g. a service's own listen port) are not
// mistaken for peer addresses.
func TestGRPCDispatcherFromConfigParsesNodeAddresses(t *testing.T) {
	cfg := config.New()
	cfg.Update(map[string]string{
		"node.N2.address": "127.0.0.1:0",
		"server.port":     "8080",
	})
	d := file.NewGRPCDispatcherFromConfig(cfg)
	d.DialTimeout = 50 * time.Millisecond

	_, err := d.Call(context.Background(), "N2", "file", "open", nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "no address configured")

	_, err = d.Call(context.Background(), "server", "file", "open", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no address configured")
}

// TestGRPCDispatcherLogsDialFailure verifies an attached logger observes a
// failed dial, the same lifecycle logging the teacher's service layer does
// around its gRPC clients.
func TestGRPCDispatcherLogsDialFailure(t *testing.T) {
	d := file.NewGRPCDispatcher(map[string]string{"N2": "127.0.0.1:0"})
	d.DialTimeout = 50 * time.Millisecond

	log := logger.New("resx-file-test", "0")
	log.DisableConsoleOutput()
	entries := log.Subscribe()
	d.SetLogger(log)

	_, err := d.Call(context.Background(), "N2", "file", "open", nil)
	require.Error(t, err)

	select {
	case entry := <-entries:
		assert.Equal(t, "ERROR", entry.Level)
	case <-time.After(time.Second):
		t.Fatal("expected a log entry for the failed dial")
	}
}
