package gateway

import "testing"

func TestParseBookTicker(t *testing.T) {
	raw := []byte(`{
		"stream":"btcusdt@bookTicker",
		"data":{
		  "s":"BTCUSDT",
		  "b":"100.1",
		  "B":"1.2",
		  "a":"100.2",
		  "A":"2.2"
		}
	}`)
	sym, bid, ask, err := ParseBookTicker(raw)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if sym != "BTCUSDT" || bid != 100.1 || ask != 100.2 {
		t.Fatalf("unexpected parse result: %s %.3f %.3f", sym, bid, ask)
	}
}

func TestParseBookTickerMissingSide(t *testing.T) {
	raw := []byte(`{"stream":"btcusdt@bookTicker","data":{"s":"BTCUSDT","b":"100.1"}}`)
	if _, _, _, err := ParseBookTicker(raw); err == nil {
		t.Fatalf("expected error for missing ask")
	}
}

func TestParseBookTickerBadJSON(t *testing.T) {
	if _, _, _, err := ParseBookTicker([]byte(`{`)); err == nil {
		t.Fatalf("expected error for bad json")
	}
}
