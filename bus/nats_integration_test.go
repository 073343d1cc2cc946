//go:build integration

package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/c360/eventgraph/natsclient"
)

type NATSBusSuite struct {
	suite.Suite
	testClient *natsclient.TestClient
	bus        *Bus
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan error
}

func (s *NATSBusSuite) SetupSuite() {
	s.testClient = natsclient.NewTestClient(s.T(), natsclient.WithServerToken("s3cret"))
}

func (s *NATSBusSuite) SetupTest() {
	var err error
	s.bus, err = Open(Config{
		Backend:  BackendNATS,
		Host:     s.testClient.Host,
		Port:     s.testClient.Port,
		Password: s.testClient.Token,
	})
	s.Require().NoError(err)

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan error, 1)
	go func() { s.done <- s.bus.Run(s.ctx) }()
	s.Require().Eventually(s.bus.Connected, 10*time.Second, 20*time.Millisecond)
}

func (s *NATSBusSuite) TearDownTest() {
	s.cancel()
	s.Require().NoError(<-s.done)
	s.False(s.bus.Connected())
}

func (s *NATSBusSuite) TestExternalPublishReachesEverySubscriber() {
	first, err := Listen[note](s.ctx, s.bus, TopicUserCreated)
	s.Require().NoError(err)
	second, err := Listen[note](s.ctx, s.bus, TopicUserCreated)
	s.Require().NoError(err)

	// A second process publishing on the shared subject reaches both.
	err = s.testClient.Client.Publish(s.ctx, "eventgraph.userCreated", []byte(`{"id":"u-7","name":"Lin"}`))
	s.Require().NoError(err)

	want := note{ID: "u-7", Name: "Lin"}
	s.Equal(want, receive(s.T(), first))
	s.Equal(want, receive(s.T(), second))
}

func (s *NATSBusSuite) TestPublishRoundTrip() {
	sub, err := Listen[note](s.ctx, s.bus, TopicParticipantAdded)
	s.Require().NoError(err)

	s.Require().NoError(s.bus.Publish(s.ctx, TopicParticipantAdded, note{ID: "p-1"}))
	s.Equal("p-1", receive(s.T(), sub).ID)
	s.NoError(s.bus.LastError())
}

func (s *NATSBusSuite) TestTopicsAreIsolated() {
	users, err := Listen[note](s.ctx, s.bus, TopicUserCreated)
	s.Require().NoError(err)
	events, err := Listen[note](s.ctx, s.bus, TopicEventCreated)
	s.Require().NoError(err)

	s.Require().NoError(s.bus.Publish(s.ctx, TopicEventCreated, note{ID: "e-1"}))
	s.Equal("e-1", receive(s.T(), events).ID)

	select {
	case n := <-users:
		s.Failf("unexpected delivery", "userCreated received %+v", n)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNATSBusSuite(t *testing.T) {
	suite.Run(t, new(NATSBusSuite))
}

func TestNATSBus_WrongTokenNeverConnects(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithServerToken("s3cret"))

	b, err := Open(Config{
		Backend:           BackendNATS,
		Host:              tc.Host,
		Port:              tc.Port,
		Password:          "wrong",
		ReconnectStepStr:  "10ms",
		ReconnectMaxStr:   "50ms",
		ConnectTimeoutStr: "500ms",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, b.Run(ctx))
	assert.False(t, b.Connected())
	assert.Error(t, b.LastError())
}

func TestNATSBus_ServerLossIsReported(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithServerToken("s3cret"))

	b, err := Open(Config{Backend: BackendNATS, Host: tc.Host, Port: tc.Port, Password: tc.Token})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	require.Eventually(t, b.Connected, 10*time.Second, 20*time.Millisecond)

	tc.Terminate()
	require.Eventually(t, func() bool { return !b.Connected() }, 30*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
