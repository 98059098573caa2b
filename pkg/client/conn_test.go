package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/realtime"
)

func startServer(t *testing.T) (*realtime.Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := realtime.NewHub(nil, nil, nil)
	r := gin.New()
	r.GET("/ws", realtime.ServeWs(hub, zap.NewNop(), func(string) (string, error) { return "u1", nil }))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

type statusLog struct {
	mu  sync.Mutex
	seq []Status
}

func (s *statusLog) add(_ string, st Status) {
	s.mu.Lock()
	s.seq = append(s.seq, st)
	s.mu.Unlock()
}

func (s *statusLog) get() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Status(nil), s.seq...)
}

func TestFollow_PatchesListFromServer(t *testing.T) {
	hub, url := startServer(t)
	ctx := context.Background()
	log := &statusLog{}

	conn, err := Dial(ctx, url, "token", Options{OnStatus: log.add})
	require.NoError(t, err)

	list := NewLiveList([]clientRow{{ID: "CL001", Name: "Acme", Status: true}}, keyOfClient)
	sub, err := Follow(ctx, conn, realtime.TableClients, list, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return sub.Status() == StatusConnected }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(realtime.NewChange(realtime.TableClients, realtime.Update, "CL001", map[string]bool{"status": false}))
	hub.Publish(realtime.NewChange(realtime.TableClients, realtime.Insert, "CL002", clientRow{ID: "CL002", Name: "Globex"}))
	require.Eventually(t, func() bool { return list.Len() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.False(t, list.Rows()[0].Status)

	hub.Publish(realtime.NewChange(realtime.TableClients, realtime.Delete, "CL001", nil))
	require.Eventually(t, func() bool { return list.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Equal(t, StatusDisconnected, sub.Status())
	require.Equal(t, []Status{StatusConnecting, StatusConnected, StatusDisconnected}, log.get())
}

func TestSubscribe_SharesServerSubscription(t *testing.T) {
	hub, url := startServer(t)
	conn, err := Dial(context.Background(), url, "token", Options{})
	require.NoError(t, err)
	defer conn.Close()

	a, err := conn.Subscribe(realtime.TableTeams, func(Change) {})
	require.NoError(t, err)
	b, err := conn.Subscribe(realtime.TableTeams, func(Change) {})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.SubscriberCount(realtime.TableTeams) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Close())
	require.Equal(t, 1, hub.SubscriberCount(realtime.TableTeams))

	require.NoError(t, b.Close())
	require.Equal(t, StatusDisconnected, b.Status())
	require.Eventually(t, func() bool { return hub.SubscriberCount(realtime.TableTeams) == 0 }, 2*time.Second, 10*time.Millisecond)
}
