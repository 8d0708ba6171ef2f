package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andrescamacho/spacetraders-autopilot/internal/adapters/api"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*api.SpaceTradersClient, *shared.MockClock) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	clock := shared.NewMockClock(epoch)
	client := api.NewSpaceTradersClient(api.Options{
		BaseURL:           server.URL,
		Token:             "test-token",
		RequestsPerSecond: 1000,
		Burst:             100,
		MaxRetries:        2,
		Clock:             clock,
	})
	return client, clock
}

func TestGetShip_ParsesSnapshot(t *testing.T) {
	// Arrange
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/my/ships/MINER-1", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{
			"symbol":"MINER-1",
			"nav":{"systemSymbol":"X1-A","waypointSymbol":"X1-A-B7","status":"IN_ORBIT"},
			"fuel":{"current":80,"capacity":100},
			"cargo":{"capacity":40,"units":12,"inventory":[{"symbol":"IRON_ORE","name":"Iron Ore","units":12}]},
			"cooldown":{"remainingSeconds":30,"expiration":"2026-01-01T00:00:30Z"},
			"mounts":[{"symbol":"MOUNT_MINING_LASER_I"},{"symbol":"MOUNT_SURVEYOR_I"}]
		}}`))
	})

	// Act
	ship, err := client.GetShip(context.Background(), "MINER-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "MINER-1", ship.Symbol)
	assert.Equal(t, automation.NavStatusInOrbit, ship.NavStatus)
	assert.Equal(t, "X1-A-B7", ship.Waypoint)
	assert.Equal(t, 80, ship.Fuel.Current)
	assert.Equal(t, 12, ship.Cargo.GetItemUnits("IRON_ORE"))
	assert.Equal(t, 30, ship.Cooldown.RemainingSeconds)
	require.NotNil(t, ship.Cooldown.Expiration)
	assert.True(t, ship.IsOnCooldown(epoch))
	assert.True(t, ship.HasSurveyor())
	assert.Nil(t, ship.Arrival)
}

func TestRequest_RetriesAfterRateLimit(t *testing.T) {
	// Arrange
	var calls int32
	client, clock := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"symbol":"AGENT","headquarters":"X1-A-A1","credits":1500}}`))
	})

	// Act
	agent, err := client.GetAgent(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(1500), agent.Credits)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{2 * time.Second}, clock.Sleeps())
}

func TestRequest_ExhaustedRetriesAreTransient(t *testing.T) {
	// Arrange
	var calls int32
	client, clock := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	// Act
	_, err := client.Dock(context.Background(), "MINER-1")

	// Assert
	require.Error(t, err)
	assert.True(t, shared.IsTransient(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, clock.Sleeps(), 2)
}

func TestRequest_ClientErrorIsNotRetried(t *testing.T) {
	// Arrange
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Ship is not docked","code":4244}}`))
	})

	// Act
	_, err := client.SellCargo(context.Background(), "MINER-1", "IRON_ORE", 5)

	// Assert
	require.Error(t, err)
	assert.False(t, shared.IsTransient(err))
	var apiErr *api.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 4244, apiErr.Code)
	assert.Equal(t, "Ship is not docked", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestExtract_SendsSurveyBody(t *testing.T) {
	// Arrange
	var gotPath string
	var gotBody map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"data":{
			"cooldown":{"remainingSeconds":70},
			"extraction":{"yield":{"symbol":"COPPER_ORE","units":7}},
			"cargo":{"capacity":40,"units":7,"inventory":[{"symbol":"COPPER_ORE","units":7}]}
		}}`))
	})
	survey := &automation.Survey{Signature: "SIG-1", Waypoint: "X1-A-B7", Size: "LARGE", Expiration: epoch.Add(time.Hour)}

	// Act
	result, err := client.Extract(context.Background(), "MINER-1", survey)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "/my/ships/MINER-1/extract/survey", gotPath)
	assert.Equal(t, "SIG-1", gotBody["signature"])
	assert.Equal(t, "COPPER_ORE", result.Good)
	assert.Equal(t, 7, result.Units)
	assert.Equal(t, 70, result.Cooldown.RemainingSeconds)
	assert.Equal(t, 7, result.Cargo.Units)
}

func TestGetContracts_FollowsPagination(t *testing.T) {
	// Arrange
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		id := "C-" + page
		body := `{"data":[{"id":"` + id + `","accepted":true,"terms":{"deadline":"2026-01-05T00:00:00Z",
			"payment":{"onAccepted":100,"onFulfilled":900},
			"deliver":[{"tradeSymbol":"IRON_ORE","destinationSymbol":"X1-A-H1","unitsRequired":50,"unitsFulfilled":10}]}}],
			"meta":{"total":2,"page":` + page + `,"limit":1}}`
		_, _ = w.Write([]byte(body))
	})

	// Act
	contracts, err := client.GetContracts(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, contracts, 2)
	assert.Equal(t, "C-1", contracts[0].ID)
	assert.Equal(t, "C-2", contracts[1].ID)
	assert.Equal(t, 40, contracts[0].Deliveries[0].Remaining())
	assert.Equal(t, int64(900), contracts[0].PaymentOnFulfill)
}

func TestGetMarket_MergesListedGoods(t *testing.T) {
	// Arrange
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/systems/X1-A/waypoints/X1-A-M1/market", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{
			"imports":[{"symbol":"IRON_ORE"}],
			"exports":[{"symbol":"FUEL"}],
			"tradeGoods":[{"symbol":"IRON_ORE","sellPrice":42,"purchasePrice":50,"tradeVolume":60}]
		}}`))
	})

	// Act
	goods, err := client.GetMarket(context.Background(), "X1-A", "X1-A-M1")

	// Assert
	require.NoError(t, err)
	require.Len(t, goods, 2)
	assert.Equal(t, "IRON_ORE", goods[0].Good)
	assert.Equal(t, 42, goods[0].SellPrice)
	assert.Equal(t, "FUEL", goods[1].Good)
	assert.Equal(t, 0, goods[1].SellPrice)
	assert.Equal(t, epoch, goods[0].UpdatedAt)
}

func TestCircuitBreaker_OpensAfterTransientFailures(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(epoch)
	breaker := api.NewCircuitBreaker(2, time.Minute, clock)
	transient := shared.NewTransientError(errors.New("boom"))

	// Act
	_ = breaker.Call(func() error { return transient })
	_ = breaker.Call(func() error { return transient })
	err := breaker.Call(func() error { return nil })

	// Assert
	assert.Equal(t, api.CircuitOpen, breaker.State())
	assert.True(t, errors.Is(err, api.ErrCircuitOpen))
	assert.True(t, shared.IsTransient(err))

	// Act - after the timeout a successful probe closes the circuit
	clock.Advance(2 * time.Minute)
	err = breaker.Call(func() error { return nil })

	// Assert
	require.NoError(t, err)
	assert.Equal(t, api.CircuitClosed, breaker.State())
	assert.Equal(t, 0, breaker.FailureCount())
}

func TestCircuitBreaker_ReportsTransitions(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(epoch)
	breaker := api.NewCircuitBreaker(1, time.Minute, clock)
	var transitions []string
	breaker.OnStateChange(func(from, to api.CircuitState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	// Act
	_ = breaker.Call(func() error { return shared.NewTransientError(errors.New("boom")) })
	clock.Advance(2 * time.Minute)
	_ = breaker.Call(func() error { return nil })

	// Assert
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_SemanticErrorsDoNotTrip(t *testing.T) {
	// Arrange
	breaker := api.NewCircuitBreaker(1, time.Minute, shared.NewMockClock(epoch))

	// Act
	err := breaker.Call(func() error { return errors.New("bad request") })

	// Assert
	require.Error(t, err)
	assert.Equal(t, api.CircuitClosed, breaker.State())
}

type recordingObserver struct {
	requests []string
	retries  []string
	waits    int
	circuit  []string
}

func (o *recordingObserver) RecordAPIRequest(method, endpoint string, statusCode int, _ float64) {
	o.requests = append(o.requests, method+" "+endpoint+" "+http.StatusText(statusCode))
}

func (o *recordingObserver) RecordAPIRetry(method, endpoint, reason string) {
	o.retries = append(o.retries, method+" "+endpoint+" "+reason)
}

func (o *recordingObserver) RecordRateLimitWait(string, string, float64) {
	o.waits++
}

func (o *recordingObserver) RecordCircuitState(state string) {
	o.circuit = append(o.circuit, state)
}

func TestRequest_ReportsToObserver(t *testing.T) {
	// Arrange
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"symbol":"AGENT","headquarters":"X1-A-A1","credits":1500}}`))
	}))
	t.Cleanup(server.Close)
	observer := &recordingObserver{}
	client := api.NewSpaceTradersClient(api.Options{
		BaseURL:           server.URL,
		RequestsPerSecond: 1000,
		Burst:             100,
		MaxRetries:        2,
		Clock:             shared.NewMockClock(epoch),
		Observer:          observer,
	})

	// Act
	_, err := client.GetAgent(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /my/agent Bad Gateway", "GET /my/agent OK"}, observer.requests)
	assert.Equal(t, []string{"GET /my/agent server_error"}, observer.retries)
	assert.Equal(t, 2, observer.waits)
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := map[string]string{
		"/my/ships/MINER-1/extract":               "/my/ships/{ship}/extract",
		"/my/ships/MINER-1/extract/survey":        "/my/ships/{ship}/extract/survey",
		"/systems/X1-A/waypoints?page=2&limit=20": "/systems/{system}/waypoints",
		"/systems/X1-A/waypoints/X1-A-B7/market":  "/systems/{system}/waypoints/{waypoint}/market",
		"/my/contracts/C-1/deliver":               "/my/contracts/{contract}/deliver",
		"/my/agent":                               "/my/agent",
	}
	for path, want := range cases {
		assert.Equal(t, want, api.NormalizeEndpoint(path), path)
	}
}

func TestRequest_ReportsCircuitOpening(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)
	observer := &recordingObserver{}
	client := api.NewSpaceTradersClient(api.Options{
		BaseURL:            server.URL,
		RequestsPerSecond:  1000,
		Burst:              100,
		MaxRetries:         1,
		BreakerMaxFailures: 1,
		Clock:              shared.NewMockClock(epoch),
		Observer:           observer,
	})

	// Act
	_, first := client.GetAgent(context.Background())
	_, second := client.GetAgent(context.Background())

	// Assert
	require.Error(t, first)
	assert.True(t, errors.Is(second, api.ErrCircuitOpen))
	assert.Equal(t, []string{"open"}, observer.circuit)
	assert.Len(t, observer.requests, 2)
}
