package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-chat/internal/config"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/ws"
)

func startNATS(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns.ClientURL()
}

func TestNATSRelayFansOutAcrossReplicas(t *testing.T) {
	url := startNATS(t)
	cfg := config.RealtimeConfig{
		Driver:           config.DriverNATS,
		NATSURL:          url,
		SubjectPrefix:    "realtime",
		BreakerThreshold: 3,
		BreakerTimeout:   time.Second,
		WriteTimeout:     time.Second,
	}

	hubA := ws.NewHub(time.Second)
	hubB := ws.NewHub(time.Second)
	replicaA, closeA, err := New(cfg, config.AMQPConfig{}, hubA)
	require.NoError(t, err)
	defer closeA()
	_, closeB, err := New(cfg, config.AMQPConfig{}, hubB)
	require.NoError(t, err)
	defer closeB()

	channel := models.ConversationChannel(11)
	onB := listen(t, hubB, channel)

	require.NoError(t, replicaA.Broadcast(context.Background(), channel, models.ConversationEvent{Type: models.EventMessageEdited, ConversationID: 11}))
	assert.Contains(t, readEvent(t, onB), "message.edited")
}

func TestFactoryDrivers(t *testing.T) {
	hub := ws.NewHub(time.Second)

	b, closeFn, err := New(config.RealtimeConfig{Driver: config.DriverLocal}, config.AMQPConfig{}, hub)
	require.NoError(t, err)
	assert.IsType(t, &Local{}, b)
	assert.NoError(t, closeFn())

	_, _, err = New(config.RealtimeConfig{Driver: "carrier-pigeon"}, config.AMQPConfig{}, hub)
	assert.Error(t, err)

	_, _, err = New(config.RealtimeConfig{Driver: config.DriverAMQP}, config.AMQPConfig{URL: ""}, hub)
	assert.Error(t, err)
}
