package configsrv_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klagrassa/prog-tm-bmv2/internal/configsrv"
)

func startServer(t *testing.T, addr string) (*configsrv.Server, func()) {
	t.Helper()
	srv := configsrv.New(addr)
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- srv.Run(stop) }()
	time.Sleep(20 * time.Millisecond) // let the listener bind before the first dial
	return srv, func() {
		close(stop)
		<-done
	}
}

func TestAcceptsAndDeliversValidDocument(t *testing.T) {
	srv, stop := startServer(t, "127.0.0.1:41299")
	defer stop()

	conn, err := net.Dial("tcp", "127.0.0.1:41299")
	require.NoError(t, err)
	_, err = conn.Write([]byte(`{"tmconfig":{"tmnodes":[{"id":0,"scheduler":"FIFO","port":0}]}}`))
	require.NoError(t, err)
	conn.Close()

	select {
	case spec := <-srv.Specs:
		require.Len(t, spec.Nodes, 1)
		assert.Equal(t, "FIFO", spec.Nodes[0].SchedulerType)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for parsed configuration document")
	}
}

func TestMalformedDocumentIsDroppedNotDelivered(t *testing.T) {
	srv, stop := startServer(t, "127.0.0.1:41298")
	defer stop()

	conn, err := net.Dial("tcp", "127.0.0.1:41298")
	require.NoError(t, err)
	_, err = conn.Write([]byte(`not json at all`))
	require.NoError(t, err)
	conn.Close()

	select {
	case <-srv.Specs:
		t.Fatal("malformed document must not be delivered")
	case <-time.After(200 * time.Millisecond):
	}
}
