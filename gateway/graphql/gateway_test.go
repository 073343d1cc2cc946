package graphql

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/99designs/gqlgen/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/eventgraph/bus"
	"github.com/c360/eventgraph/health"
	"github.com/c360/eventgraph/metric"
	"github.com/c360/eventgraph/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testGateway struct {
	*Gateway
	bus    *bus.Bus
	broker *bus.MemoryBroker
	client *client.Client
}

// newTestGateway serves the seeded fixture with strict references over an
// in-memory bus.
func newTestGateway(t *testing.T, mutate ...func(*Config)) *testGateway {
	t.Helper()
	return newTestGatewayWithStore(t, store.Config{StrictReferences: true}, mutate...)
}

func newTestGatewayWithStore(t *testing.T, storeCfg store.Config, mutate ...func(*Config)) *testGateway {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BindAddress = "127.0.0.1:0"
	for _, m := range mutate {
		m(&cfg)
	}

	st, err := store.Open(storeCfg, store.WithLogger(discardLogger()))
	require.NoError(t, err)

	broker := bus.NewMemoryBroker()
	b, err := bus.New(broker, bus.Config{Backend: bus.BackendMemory}, bus.WithLogger(discardLogger()))
	require.NoError(t, err)
	require.NoError(t, b.Connect(context.Background()))
	t.Cleanup(func() { _ = b.Close(context.Background()) })

	g, err := New(cfg, st, b,
		WithLogger(discardLogger()),
		WithMetricsRegistry(metric.NewMetricsRegistry()))
	require.NoError(t, err)

	return &testGateway{
		Gateway: g,
		bus:     b,
		broker:  broker,
		client:  client.New(g.handler),
	}
}

type gqlError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path"`
	Extensions map[string]any `json:"extensions"`
}

// postErrors runs query and returns the errors it produced.
func postErrors(t *testing.T, c *client.Client, query string, opts ...client.Option) []gqlError {
	t.Helper()
	_, errs := postRaw(t, c, query, opts...)
	return errs
}

// postRaw runs query and returns its data alongside the errors it produced.
func postRaw(t *testing.T, c *client.Client, query string, opts ...client.Option) (any, []gqlError) {
	t.Helper()
	resp, err := c.RawPost(query, opts...)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Errors, "expected errors")

	var errs []gqlError
	require.NoError(t, json.Unmarshal(resp.Errors, &errs))
	return resp.Data, errs
}

type userResp struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func TestGateway_New(t *testing.T) {
	st := store.New()
	b, err := bus.New(bus.NewMemoryBroker(), bus.Config{Backend: bus.BackendMemory})
	require.NoError(t, err)

	_, err = New(DefaultConfig(), nil, b)
	assert.Error(t, err)

	_, err = New(DefaultConfig(), st, nil)
	assert.Error(t, err)

	_, err = New(Config{Path: "nope"}, st, b)
	assert.Error(t, err)

	g, err := New(DefaultConfig(), st, b)
	require.NoError(t, err)
	assert.NotNil(t, g.Handler())
}

func TestGateway_Queries(t *testing.T) {
	tg := newTestGateway(t)

	t.Run("list users", func(t *testing.T) {
		var resp struct {
			Users []userResp `json:"users"`
		}
		require.NoError(t, tg.client.Post(`{ users { id username email } }`, &resp))
		require.Len(t, resp.Users, 3)
		assert.Equal(t, userResp{ID: "u-ada", Username: "ada", Email: "ada@example.com"}, resp.Users[0])
	})

	t.Run("user by id", func(t *testing.T) {
		var resp struct {
			User userResp `json:"user"`
		}
		require.NoError(t, tg.client.Post(`query($id: ID!) { user(id: $id) { id username email } }`,
			&resp, client.Var("id", "u-grace")))
		assert.Equal(t, "grace", resp.User.Username)
	})

	t.Run("typename", func(t *testing.T) {
		var resp struct {
			Location struct {
				Typename string `json:"__typename"`
				Name     string `json:"name"`
			} `json:"location"`
		}
		require.NoError(t, tg.client.Post(`{ location(id: "l-park") { __typename name } }`, &resp))
		assert.Equal(t, "Location", resp.Location.Typename)
		assert.Equal(t, "Riverside Park", resp.Location.Name)
	})

	t.Run("missing record reports not found", func(t *testing.T) {
		errs := postErrors(t, tg.client, `{ event(id: "e-missing") { id } }`)
		require.Len(t, errs, 1)
		assert.Equal(t, "Event not found", errs[0].Message)
		assert.Equal(t, []any{"event"}, errs[0].Path)
		assert.Equal(t, CodeNotFound, errs[0].Extensions["code"])
		assert.Equal(t, "Event", errs[0].Extensions["kind"])
		assert.Equal(t, "e-missing", errs[0].Extensions["id"])
	})
}

func TestGateway_Relationships(t *testing.T) {
	tg := newTestGateway(t)

	t.Run("user events and participations", func(t *testing.T) {
		var resp struct {
			User struct {
				Events []struct {
					ID string `json:"id"`
				} `json:"events"`
				Participants []struct {
					Event struct {
						Title string `json:"title"`
					} `json:"event"`
				} `json:"participants"`
			} `json:"user"`
		}
		require.NoError(t, tg.client.Post(
			`{ user(id: "u-ada") { events { id } participants { event { title } } } }`, &resp))

		require.Len(t, resp.User.Events, 2)
		assert.Equal(t, "e-kickoff", resp.User.Events[0].ID)
		assert.Equal(t, "e-demo", resp.User.Events[1].ID)

		require.Len(t, resp.User.Participants, 2)
		assert.Equal(t, "Soldering 101", resp.User.Participants[0].Event.Title)
		assert.Equal(t, "Community Picnic", resp.User.Participants[1].Event.Title)
	})

	t.Run("event owner location and participants", func(t *testing.T) {
		var resp struct {
			Event struct {
				User struct {
					Username string `json:"username"`
				} `json:"user"`
				Location struct {
					Name string `json:"name"`
				} `json:"location"`
				Participants []struct {
					User struct {
						Username string `json:"username"`
					} `json:"user"`
				} `json:"participants"`
			} `json:"event"`
		}
		require.NoError(t, tg.client.Post(
			`{ event(id: "e-kickoff") { user { username } location { name } participants { user { username } } } }`,
			&resp))

		assert.Equal(t, "ada", resp.Event.User.Username)
		assert.Equal(t, "Main Hall", resp.Event.Location.Name)
		require.Len(t, resp.Event.Participants, 2)
		assert.Equal(t, "grace", resp.Event.Participants[0].User.Username)
		assert.Equal(t, "linus", resp.Event.Participants[1].User.Username)
	})

	t.Run("location events", func(t *testing.T) {
		var resp struct {
			Location struct {
				Events []struct {
					ID string `json:"id"`
				} `json:"events"`
			} `json:"location"`
		}
		require.NoError(t, tg.client.Post(`{ location(id: "l-lab") { events { id } } }`, &resp))
		require.Len(t, resp.Location.Events, 2)
		assert.Equal(t, "e-solder", resp.Location.Events[0].ID)
		assert.Equal(t, "e-compilers", resp.Location.Events[1].ID)
	})
}

func TestGateway_DanglingReferences(t *testing.T) {
	t.Run("deleted owner reports one error", func(t *testing.T) {
		tg := newTestGateway(t)
		_, err := tg.store.DeleteUser("u-grace")
		require.NoError(t, err)

		data, errs := postRaw(t, tg.client, `{ event(id: "e-solder") { id user { id } } }`)
		require.Len(t, errs, 1)
		assert.Equal(t, "User not found", errs[0].Message)
		assert.Equal(t, []any{"event", "user"}, errs[0].Path)
		assert.Equal(t, CodeNotFound, errs[0].Extensions["code"])
		assert.Equal(t, "u-grace", errs[0].Extensions["id"])
		assert.Nil(t, data)
	})

	t.Run("lenient store surfaces the miss when listing", func(t *testing.T) {
		tg := newTestGatewayWithStore(t, store.Config{})

		var added struct {
			AddEvent struct {
				ID string `json:"id"`
			} `json:"addEvent"`
		}
		require.NoError(t, tg.client.Post(`mutation {
			addEvent(data: { title: "t", desc: "d", date: "2024-04-01", from: "9", to: "10",
				location_id: "l-hall", user_id: "u-nobody" }) { id }
		}`, &added))
		require.NotEmpty(t, added.AddEvent.ID)

		data, errs := postRaw(t, tg.client, `{ events { id user { id } } }`)
		require.Len(t, errs, 1)
		assert.Equal(t, "User not found", errs[0].Message)
		assert.Equal(t, []any{"events", float64(5), "user"}, errs[0].Path)
		assert.Equal(t, CodeNotFound, errs[0].Extensions["code"])
		assert.Equal(t, "User", errs[0].Extensions["kind"])
		assert.Equal(t, "u-nobody", errs[0].Extensions["id"])
		assert.Nil(t, data)
	})
}

func TestGateway_UserLifecycle(t *testing.T) {
	tg := newTestGateway(t)

	var added struct {
		AddUser userResp `json:"addUser"`
	}
	require.NoError(t, tg.client.Post(
		`mutation { addUser(data: { username: "margaret", email: "m@example.com" }) { id username email } }`,
		&added))
	id := added.AddUser.ID
	require.NotEmpty(t, id)
	assert.Equal(t, "margaret", added.AddUser.Username)

	var updated struct {
		UpdateUser userResp `json:"updateUser"`
	}
	require.NoError(t, tg.client.Post(
		`mutation($id: ID!) { updateUser(id: $id, data: { email: "mh@example.com" }) { id username email } }`,
		&updated, client.Var("id", id)))
	assert.Equal(t, userResp{ID: id, Username: "margaret", Email: "mh@example.com"}, updated.UpdateUser)

	var deleted struct {
		DeleteUser userResp `json:"deleteUser"`
	}
	require.NoError(t, tg.client.Post(`mutation($id: ID!) { deleteUser(id: $id) { id username } }`,
		&deleted, client.Var("id", id)))
	assert.Equal(t, id, deleted.DeleteUser.ID)

	errs := postErrors(t, tg.client, `query($id: ID!) { user(id: $id) { id } }`, client.Var("id", id))
	require.Len(t, errs, 1)
	assert.Equal(t, "User not found", errs[0].Message)
	assert.Equal(t, CodeNotFound, errs[0].Extensions["code"])
	assert.Equal(t, id, errs[0].Extensions["id"])

	errs = postErrors(t, tg.client, `mutation($id: ID!) { deleteUser(id: $id) { id } }`, client.Var("id", id))
	assert.Equal(t, CodeNotFound, errs[0].Extensions["code"])
}

func TestGateway_Mutations(t *testing.T) {
	t.Run("delete all events", func(t *testing.T) {
		tg := newTestGateway(t)

		var resp struct {
			DeleteAllEvents struct {
				Count int `json:"count"`
			} `json:"deleteAllEvents"`
		}
		require.NoError(t, tg.client.Post(`mutation { deleteAllEvents { count } }`, &resp))
		assert.Equal(t, 5, resp.DeleteAllEvents.Count)

		var list struct {
			Events []struct {
				ID string `json:"id"`
			} `json:"events"`
		}
		require.NoError(t, tg.client.Post(`{ events { id } }`, &list))
		assert.Empty(t, list.Events)
		assert.NotNil(t, list.Events, "an empty collection is a list, not null")
	})

	t.Run("dangling reference is rejected", func(t *testing.T) {
		tg := newTestGateway(t)

		errs := postErrors(t, tg.client, `mutation {
			addEvent(data: { title: "t", desc: "d", date: "2024-04-01", from: "9", to: "10",
				location_id: "l-hall", user_id: "u-nobody" }) { id }
		}`)
		require.Len(t, errs, 1)
		assert.Equal(t, CodeNotFound, errs[0].Extensions["code"])
		assert.Equal(t, "User", errs[0].Extensions["kind"])
		assert.Equal(t, "u-nobody", errs[0].Extensions["id"])
		assert.Equal(t, 5, tg.store.Counts()[store.KindEvent])
	})

	t.Run("add location lands in locations", func(t *testing.T) {
		tg := newTestGateway(t)

		var resp struct {
			AddLocation struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"addLocation"`
		}
		require.NoError(t, tg.client.Post(
			`mutation { addLocation(data: { name: "Roof", desc: "Top floor", lat: "1", lng: "2" }) { id name } }`,
			&resp))

		loc, err := tg.store.Location(resp.AddLocation.ID)
		require.NoError(t, err)
		assert.Equal(t, "Roof", loc.Name)
		assert.Equal(t, 3, tg.store.Counts()[store.KindUser])
	})

	t.Run("add participant lands in participants and is announced", func(t *testing.T) {
		tg := newTestGateway(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		announced, err := tg.bus.Subscribe(ctx, bus.TopicParticipantAdded)
		require.NoError(t, err)

		var resp struct {
			AddParticipant struct {
				ID    string `json:"id"`
				Event struct {
					ID string `json:"id"`
				} `json:"event"`
			} `json:"addParticipant"`
		}
		require.NoError(t, tg.client.Post(
			`mutation { addParticipant(data: { user_id: "u-linus", event_id: "e-demo" }) { id event { id } } }`,
			&resp))
		assert.Equal(t, "e-demo", resp.AddParticipant.Event.ID)

		p, err := tg.store.Participant(resp.AddParticipant.ID)
		require.NoError(t, err)
		assert.Equal(t, "u-linus", p.UserID)

		select {
		case msg := <-announced:
			assert.Contains(t, string(msg), resp.AddParticipant.ID)
		case <-time.After(2 * time.Second):
			t.Fatal("participantAdded was not announced")
		}
		assert.Equal(t, uint64(1), tg.broker.Published("eventgraph."+string(bus.TopicParticipantAdded)))
	})

	t.Run("update event merges fields", func(t *testing.T) {
		tg := newTestGateway(t)

		var resp struct {
			UpdateEvent struct {
				Title      string `json:"title"`
				Desc       string `json:"desc"`
				LocationID string `json:"location_id"`
			} `json:"updateEvent"`
		}
		require.NoError(t, tg.client.Post(
			`mutation { updateEvent(id: "e-picnic", data: { title: "Picnic", location_id: "l-hall" }) { title desc location_id } }`,
			&resp))
		assert.Equal(t, "Picnic", resp.UpdateEvent.Title)
		assert.Equal(t, "Bring something to share", resp.UpdateEvent.Desc)
		assert.Equal(t, "l-hall", resp.UpdateEvent.LocationID)
	})
}

func TestGateway_Subscriptions(t *testing.T) {
	tg := newTestGateway(t)

	const query = `subscription { userCreated { id username } }`
	first := tg.client.Websocket(query)
	defer first.Close()
	second := tg.client.Websocket(query)
	defer second.Close()

	require.Eventually(t, func() bool {
		return tg.bus.SubscriberCount(bus.TopicUserCreated) == 2
	}, 5*time.Second, 10*time.Millisecond)

	var added struct {
		AddUser struct {
			ID string `json:"id"`
		} `json:"addUser"`
	}
	require.NoError(t, tg.client.Post(
		`mutation { addUser(data: { username: "barbara", email: "b@example.com" }) { id } }`, &added))

	for _, sub := range []*client.Subscription{first, second} {
		var msg struct {
			UserCreated struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"userCreated"`
		}
		require.NoError(t, sub.Next(&msg))
		assert.Equal(t, added.AddUser.ID, msg.UserCreated.ID)
		assert.Equal(t, "barbara", msg.UserCreated.Username)
	}

	// Other topics stay quiet.
	assert.Equal(t, 0, tg.bus.SubscriberCount(bus.TopicEventCreated))
}

func TestGateway_Introspection(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		tg := newTestGateway(t)

		var resp struct {
			Schema struct {
				QueryType struct {
					Name string `json:"name"`
				} `json:"queryType"`
			} `json:"__schema"`
			Type struct {
				Fields []struct {
					Name string `json:"name"`
				} `json:"fields"`
			} `json:"__type"`
		}
		require.NoError(t, tg.client.Post(
			`{ __schema { queryType { name } } __type(name: "Location") { fields { name } } }`, &resp))
		assert.Equal(t, "Query", resp.Schema.QueryType.Name)

		var names []string
		for _, f := range resp.Type.Fields {
			names = append(names, f.Name)
		}
		assert.Equal(t, []string{"id", "name", "desc", "lat", "lng", "events"}, names)
	})

	t.Run("disabled", func(t *testing.T) {
		tg := newTestGateway(t, func(c *Config) { c.EnableIntrospection = false })

		errs := postErrors(t, tg.client, `{ __schema { queryType { name } } }`)
		require.NotEmpty(t, errs)
		assert.Contains(t, errs[0].Message, "introspection disabled")
	})
}

func TestGateway_DepthLimit(t *testing.T) {
	tg := newTestGateway(t, func(c *Config) { c.MaxQueryDepth = 3 })

	errs := postErrors(t, tg.client, `{ users { events { user { events { id } } } } }`)
	require.Len(t, errs, 1)
	assert.Equal(t, "DEPTH_LIMIT_EXCEEDED", errs[0].Extensions["code"])

	var resp struct {
		Users []struct {
			Events []struct {
				ID string `json:"id"`
			} `json:"events"`
		} `json:"users"`
	}
	require.NoError(t, tg.client.Post(`{ users { events { id } } }`, &resp))
}

func TestGateway_RateLimit(t *testing.T) {
	tg := newTestGateway(t, func(c *Config) {
		c.RateLimit = RateLimitConfig{RequestsPerSecond: 1, Burst: 1}
	})

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ users { id } }"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		tg.Handler().ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, post().Code)
	rec := post()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestGateway_Metrics(t *testing.T) {
	tg := newTestGateway(t)

	var resp struct {
		Users []struct {
			ID string `json:"id"`
		} `json:"users"`
	}
	require.NoError(t, tg.client.Post(`{ users { id } }`, &resp))
	_ = postErrors(t, tg.client, `{ user(id: "u-missing") { id } }`)

	rec := httptest.NewRecorder()
	tg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "eventgraph_store_records")
	assert.Contains(t, body, `kind="User"} 3`)
	assert.Contains(t, body, "eventgraph_graphql_operations_total")
	assert.Contains(t, body, `code="NOT_FOUND"`)

	total, failed, last := tg.Stats()
	assert.Equal(t, uint64(2), total)
	assert.Equal(t, uint64(1), failed)
	assert.False(t, last.IsZero())
}

func TestGateway_StartStop(t *testing.T) {
	tg := newTestGateway(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tg.Start(ctx) }()

	require.Eventually(t, func() bool { return tg.Address() != "" }, 5*time.Second, 10*time.Millisecond)

	res, err := http.Get("http://" + tg.Address() + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var status health.Status
	require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
	assert.True(t, status.Healthy)
	assert.Equal(t, health.StateHealthy, status.State)
	require.Len(t, status.Components, 3)
	require.NotNil(t, status.Metrics)
	assert.Equal(t, 3, status.Metrics.Records[store.KindUser])
	assert.Equal(t, 5, status.Metrics.Records[store.KindEvent])

	playground, err := http.Get("http://" + tg.Address() + "/")
	require.NoError(t, err)
	playground.Body.Close()
	assert.Equal(t, http.StatusOK, playground.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("gateway did not stop")
	}
	assert.False(t, tg.Health().Healthy)
	assert.True(t, tg.Health().IsUnhealthy())
}

func TestGateway_HealthDegraded(t *testing.T) {
	tg := newTestGateway(t)
	require.NoError(t, tg.bus.Close(context.Background()))

	tg.running.Store(true)
	defer tg.running.Store(false)

	status := tg.Health()
	assert.True(t, status.IsDegraded())
	require.Len(t, status.Components, 3)
	assert.Equal(t, "bus", status.Components[1].Component)
	assert.True(t, status.Components[1].IsDegraded())
	assert.True(t, status.Components[0].IsHealthy())
}
