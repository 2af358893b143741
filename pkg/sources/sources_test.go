package sources_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cryptodesk/config"
	"cryptodesk/pkg/coin"
	"cryptodesk/pkg/sources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, path, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func rest() *sources.RESTClient {
	return sources.NewRESTClient(2*time.Second, "CryptoDesk/1.0")
}

func TestCoinGeckoParsesSimplePrice(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":67000,"usd_24h_change":2.5},"ethereum":{"usd":3500},"dogecoin":{}}`))
	}))
	defer srv.Close()

	got, err := sources.NewCoinGecko(rest(), srv.URL, "").Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sources.PriceMap{
		coin.Bitcoin:  {USD: 67000, Change24h: 2.5},
		coin.Ethereum: {USD: 3500},
	}, got)
	assert.Contains(t, gotQuery, "vs_currencies=usd")
	assert.Contains(t, gotQuery, "include_24hr_change=true")
	assert.NotContains(t, gotQuery, "x_cg_demo_api_key")
	assert.Equal(t, "CryptoDesk/1.0", gotUA)
}

func TestCoinGeckoDemoKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("x_cg_demo_api_key")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":67000}}`))
	}))
	defer srv.Close()

	src := sources.NewCoinGecko(rest(), srv.URL, "CG-demo")
	_, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "CoinGecko Demo", src.Name())
	assert.Equal(t, "CG-demo", gotKey)
}

func TestBinanceMapsUSDTPairs(t *testing.T) {
	srv := serve(t, "/api/v3/ticker/24hr", `[
		{"symbol":"BTCUSDT","lastPrice":"67000.10","priceChangePercent":"-1.25"},
		{"symbol":"ETHUSDT","lastPrice":"3500.00","priceChangePercent":"bad"},
		{"symbol":"ETHBTC","lastPrice":"0.05","priceChangePercent":"0"},
		{"symbol":"SOLUSDT","lastPrice":"nope","priceChangePercent":"1"}
	]`)

	got, err := sources.NewBinance(rest(), srv.URL).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sources.PriceMap{
		coin.Bitcoin:  {USD: 67000.10, Change24h: -1.25},
		coin.Ethereum: {USD: 3500},
	}, got)
	assert.NotContains(t, got, coin.Tether, "no USDTUSDT pair is listed")
}

func TestCoinCapMapsAssetIDs(t *testing.T) {
	srv := serve(t, "/v2/assets", `{"data":[
		{"id":"xrp","priceUsd":"0.52","changePercent24Hr":"3.1"},
		{"id":"cardano","priceUsd":"0.45","changePercent24Hr":""},
		{"id":"monero","priceUsd":"160","changePercent24Hr":"0"}
	]}`)

	got, err := sources.NewCoinCap(rest(), srv.URL).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sources.PriceMap{
		coin.Ripple:  {USD: 0.52, Change24h: 3.1},
		coin.Cardano: {USD: 0.45},
	}, got)
}

func TestCoinbaseInvertsRates(t *testing.T) {
	srv := serve(t, "/v2/exchange-rates", `{"data":{"currency":"USD","rates":{"BTC":"0.000015","USDT":"1.0","ETH":"0","EUR":"0.92"}}}`)

	got, err := sources.NewCoinbase(rest(), srv.URL).Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.InDelta(t, 66666.67, got[coin.Bitcoin].USD, 0.01)
	assert.Zero(t, got[coin.Bitcoin].Change24h)
	assert.InDelta(t, 1.0, got[coin.Tether].USD, 1e-9)
}

func TestEmptyResponseIsFailure(t *testing.T) {
	srv := serve(t, "/v2/exchange-rates", `{"data":{"rates":{}}}`)

	_, err := sources.NewCoinbase(rest(), srv.URL).Fetch(context.Background())
	assert.True(t, errors.Is(err, sources.ErrEmpty))
}

func TestNon2xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := sources.NewBinance(rest(), srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestTimeoutIsFailure(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	src := sources.NewCoinCap(sources.NewRESTClient(50*time.Millisecond, ""), srv.URL)

	start := time.Now()
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestChainOrder(t *testing.T) {
	cfg := config.AggregatorConfig{}
	chain := sources.Chain(rest(), cfg, "CG-demo")

	names := make([]string, len(chain))
	for i, s := range chain {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{"CoinGecko", "CoinGecko Demo", "Binance", "CoinCap", "Coinbase"}, names)
}
