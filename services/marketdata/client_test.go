package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kmoganti/stock-trading-system-sub001/services/scanner"
)

const historyOK = `{"s":"ok","candles":[
	[1735717500,101,103,100,102,1500],
	[1735631100,100,102,99,101,1200]
]}`

func TestFetchCandlesParsesAndSorts(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, historyOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token123")
	candles, err := client.FetchCandles(context.Background(), "NSE:RELIANCE-EQ", scanner.TimeframeDaily, 250)
	if err != nil {
		t.Fatalf("FetchCandles: %v", err)
	}

	if !strings.Contains(gotPath, "resolution=D") || !strings.Contains(gotPath, "count=250") {
		t.Fatalf("request path = %q", gotPath)
	}
	if !strings.Contains(gotPath, "symbol=NSE%3ARELIANCE-EQ") {
		t.Fatalf("symbol not escaped: %q", gotPath)
	}
	if gotAuth != "Bearer token123" {
		t.Fatalf("Authorization = %q", gotAuth)
	}

	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(candles))
	}
	if !candles[0].Timestamp.Before(candles[1].Timestamp) {
		t.Fatal("candles not sorted ascending")
	}
	first := candles[0]
	if first.Open != 100 || first.High != 102 || first.Low != 99 || first.Close != 101 || first.Volume != 1200 {
		t.Fatalf("candle = %+v", first)
	}
}

func TestFetchCandlesRetriesServerError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, historyOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token123")
	candles, err := client.FetchCandles(context.Background(), "NSE:TCS-EQ", scanner.TimeframeHourly, 120)
	if err != nil {
		t.Fatalf("FetchCandles after retry: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(candles))
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("server hit %d times, want 2", got)
	}
}

func TestFetchCandlesDoesNotRetryClientError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "expired")
	if _, err := client.FetchCandles(context.Background(), "NSE:INFY-EQ", scanner.TimeframeDaily, 10); err == nil {
		t.Fatal("FetchCandles accepted a 401")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("401 retried, server hit %d times", got)
	}
}

func TestFetchCandlesBrokerRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"error","message":"invalid symbol"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token123")
	_, err := client.FetchCandles(context.Background(), "NSE:BOGUS", scanner.TimeframeDaily, 10)
	if err == nil || !strings.Contains(err.Error(), "invalid symbol") {
		t.Fatalf("err = %v, want broker rejection with message", err)
	}
}

func TestFetchCandlesUnsupportedTimeframe(t *testing.T) {
	client := NewClient("http://localhost:0", "token123")
	if _, err := client.FetchCandles(context.Background(), "NSE:RELIANCE-EQ", "4H", 10); err == nil {
		t.Fatal("FetchCandles accepted an unknown timeframe")
	}
}

func TestReady(t *testing.T) {
	if err := NewClient("http://localhost:0", "token").Ready(); err != nil {
		t.Fatalf("Ready with token: %v", err)
	}
	if err := NewClient("http://localhost:0", "").Ready(); err == nil {
		t.Fatal("Ready without token reported ready")
	}
}
