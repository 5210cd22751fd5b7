package subgraph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

// serve answers every GraphQL request whose query mentions a key with the
// matching response body.
func serve(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := readQuery(t, r)
		for key, body := range responses {
			if strings.Contains(query, key) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, body)
				return
			}
		}
		http.Error(w, "unexpected query", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// machinebox/graphql posts multipart forms by default.
func readQuery(t *testing.T, r *http.Request) string {
	t.Helper()
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		return body.Query
	}
	require.NoError(t, r.ParseMultipartForm(1<<20))
	return r.FormValue("query")
}

func TestTicks(t *testing.T) {
	srv := serve(t, map[string]string{"tickss": `{"data":{"tickss":{"items":[
		{"id":"a","is_buy":true,"tick":"76000","timestamp":"1700000000","volume":"1500000"},
		{"id":"b","is_buy":false,"tick":76010,"timestamp":1700000001,"volume":"250000"},
		{"id":"bad-tick","is_buy":true,"tick":"x","timestamp":"1","volume":"1"},
		{"id":"bad-volume","is_buy":true,"tick":"1","timestamp":"1","volume":"lots"},
		{"id":"neg","is_buy":true,"tick":"1","timestamp":"1","volume":"-5"},
		{"id":"","is_buy":true,"tick":"1","timestamp":"1","volume":"5"},
		{"id":"bad-side","is_buy":"maybe","tick":"1","timestamp":"1","volume":"5"}
	]}}}`})

	c := NewClient(srv.URL, 6)
	events, err := c.Ticks(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, core.TickEvent{
		ID: "a", Tick: 76000, Side: core.SideBuy, Timestamp: 1700000000,
		Size: events[0].Size,
	}, events[0])
	assert.True(t, events[0].Size.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, core.SideSell, events[1].Side)
	assert.True(t, events[1].Size.Equal(decimal.RequireFromString("0.25")))
	assert.Equal(t, int64(5), c.Dropped())
}

func TestCurrentTicksSorted(t *testing.T) {
	srv := serve(t, map[string]string{"setCurrentTickEventss": `{"data":{"setCurrentTickEventss":{"items":[
		{"id":"2","tick":"11","timestamp":"20"},
		{"id":"1","tick":"10","timestamp":"10"},
		{"id":"3","tick":"oops","timestamp":"30"},
		{"id":"4","tick":"12","timestamp":"20"}
	]}}}`})

	events, err := NewClient(srv.URL, 6).CurrentTicks(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, []string{"1", "2", "4"}, []string{events[0].ID, events[1].ID, events[2].ID})
	assert.Equal(t, core.Tick(11), events[1].Tick)
}

func TestOrdersForUser(t *testing.T) {
	srv := serve(t, map[string]string{"placeOrderEventss": `{"data":{"placeOrderEventss":{"items":[
		{"id":"o1","user":"0xAbC","tick":"5","timestamp":"100","volume":"2000000","remaining_volume":"500000",
		 "order_index":"7","is_market":false,"is_buy":true},
		{"id":"o2","user":"0xabc","tick":"6","timestamp":"200","volume":"1000000","remaining_volume":"0",
		 "order_index":"8","is_market":true,"is_buy":false},
		{"id":"o3","user":"0xdef","tick":"6","timestamp":"300","volume":"1000000","remaining_volume":"0",
		 "order_index":"9","is_market":true,"is_buy":false}
	]}}}`})

	orders, err := NewClient(srv.URL, 6).Orders(context.Background(), "0xabc")
	require.NoError(t, err)

	require.Len(t, orders, 2)
	assert.Equal(t, "o2", orders[0].ID, "newest first")
	assert.True(t, orders[0].IsMarket)
	assert.Equal(t, int64(7), orders[1].OrderIndex)
	assert.True(t, orders[1].Filled().Equal(decimal.RequireFromString("1.5")))

	all, err := NewClient(srv.URL, 6).Orders(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGraphQLError(t *testing.T) {
	srv := serve(t, map[string]string{"tickss": `{"errors":[{"message":"indexer syncing"}]}`})

	_, err := NewClient(srv.URL, 6).Ticks(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexer syncing")
}

func TestTransportError(t *testing.T) {
	srv := serve(t, nil)
	_, err := NewClient(srv.URL, 6).CurrentTicks(context.Background())
	assert.Error(t, err)
}
