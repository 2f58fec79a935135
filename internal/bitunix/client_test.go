package bitunix

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{APIKey: "k1", APISecret: "s1", BaseURL: baseURL}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestQueryForSign(t *testing.T) {
	got := queryForSign(map[string]string{"symbol": "BTCUSDT", "limit": "200", "skip": "0"})
	want := "limit200skip0symbolBTCUSDT"
	if got != want {
		t.Errorf("queryForSign = %q, want %q", got, want)
	}
	if queryForSign(nil) != "" {
		t.Error("empty params should sign as empty string")
	}
}

func TestBodyForSign(t *testing.T) {
	body, err := bodyForSign(map[string]any{"b": 2, "a": "1"})
	if err != nil {
		t.Fatal(err)
	}
	// Keys sorted, no whitespace.
	if body != `{"a":"1","b":2}` {
		t.Errorf("bodyForSign = %q", body)
	}
	empty, err := bodyForSign(nil)
	if err != nil || empty != "" {
		t.Errorf("bodyForSign(nil) = %q, %v", empty, err)
	}
}

func TestSign(t *testing.T) {
	c := testClient(t, "http://example.invalid")

	// sha256(sha256("abc"+"123"+"key"+""+"") + "secret"), computed externally.
	c.apiKey = "key"
	c.apiSecret = "secret"
	got := c.sign("abc", "123", "", "")
	want := "0b4abc712ed9c37b8f844e63ad01388795d5fd9f3c1f517312d271ea11fbf10d"
	if got != want {
		t.Errorf("sign = %s, want %s", got, want)
	}

	c.apiKey = "k1"
	c.apiSecret = "s1"
	got = c.sign("n1", "t1", "limit200skip0symbolBTCUSDT", `{"a":"1","b":2}`)
	want = "e4fcccda5d8b82b8665bf5f2c2109a121952be87c366f5199374c0936f07e337"
	if got != want {
		t.Errorf("sign with query+body = %s, want %s", got, want)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	data, err := decodeEnvelope([]byte(`{"code":0,"msg":"ok","data":{"x":1}}`), 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"x":1}` {
		t.Errorf("data = %s", data)
	}

	_, err = decodeEnvelope([]byte(`{"code":10003,"msg":"signature error"}`), 200)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Code != 10003 {
		t.Errorf("code = %d", apiErr.Code)
	}

	if _, err := decodeEnvelope([]byte("<html>bad gateway</html>"), 502); err == nil {
		t.Error("non-JSON body should fail")
	}
}

func TestExtractOrderID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"orderId":"123"}`, "123"},
		{`{"id":456}`, "456"},
		{`[{"orderId":"789"}]`, "789"},
		{`[]`, ""},
		{``, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		if got := extractOrderID(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("extractOrderID(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFlexString(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"1.5","b":42,"c":null}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.A.String() != "1.5" || v.B.String() != "42" || v.C.String() != "" {
		t.Errorf("flexString decode = %q %q %q", v.A, v.B, v.C)
	}
	if v.B.Int64() != 42 {
		t.Errorf("Int64 = %d", v.B.Int64())
	}
	if !v.A.Decimal().Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("Decimal = %s", v.A.Decimal())
	}
}

func TestConditionalOrderAccessors(t *testing.T) {
	var o ConditionalOrder
	raw := `{"id":"C1","symbol":"BTCUSDT","slPrice":"99.00","slQty":"0.5","ctime":1700000000000}`
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatal(err)
	}
	if o.Identifier() != "C1" {
		t.Errorf("Identifier = %s", o.Identifier())
	}
	if o.CreatedAtMs() != 1700000000000 {
		t.Errorf("CreatedAtMs = %d", o.CreatedAtMs())
	}
	if o.IsTakeProfit() {
		t.Error("pure SL must not report as take-profit")
	}

	var tp ConditionalOrder
	if err := json.Unmarshal([]byte(`{"orderId":"C2","tpPrice":"105.00"}`), &tp); err != nil {
		t.Fatal(err)
	}
	if tp.Identifier() != "C2" || !tp.IsTakeProfit() {
		t.Errorf("tp accessors: id=%s isTP=%v", tp.Identifier(), tp.IsTakeProfit())
	}
}

func TestSignedRequestHeadersAndEnvelope(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.Write([]byte(`{"code":0,"msg":"ok","data":[{"symbol":"BTCUSDT","positionId":"P1","qty":"0.5","side":"BUY","avgOpenPrice":"100.00"}]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	positions, err := c.GetPendingPositions("BTCUSDT")
	if err != nil {
		t.Fatalf("GetPendingPositions: %v", err)
	}
	if len(positions) != 1 || positions[0].PositionID.String() != "P1" {
		t.Fatalf("positions = %+v", positions)
	}
	if positions[0].NormalizedSide() != PositionSideLong {
		t.Errorf("side = %s", positions[0].NormalizedSide())
	}

	for _, h := range []string{"Api-Key", "Nonce", "Timestamp", "Sign", "Language"} {
		if gotHeaders.Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

func TestCaptureProvisionalSLIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"msg":"ok","data":[
			{"id":"S1","symbol":"BTCUSDT","slPrice":"99.00","slQty":"0.5","ctime":2000},
			{"id":"S2","symbol":"BTCUSDT","slPrice":"99.00","slQty":"0.5","ctime":500},
			{"id":"T1","symbol":"BTCUSDT","slPrice":"99.00","tpPrice":"101.00","slQty":"0.5","ctime":2000},
			{"id":"S3","symbol":"BTCUSDT","slPrice":"98.50","slQty":"0.5","ctime":2000},
			{"id":"S4","symbol":"ETHUSDT","slPrice":"99.00","slQty":"0.5","ctime":2000}
		]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	ids, err := c.CaptureProvisionalSLIDs("BTCUSDT", "99.00", 1000, 2, time.Millisecond)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	// S2 is too old, T1 carries a tpPrice, S3 has the wrong price string,
	// S4 the wrong symbol.
	if len(ids) != 1 || ids[0] != "S1" {
		t.Errorf("ids = %v, want [S1]", ids)
	}
}

func TestCancelConditionalTriesBothSchemas(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		if _, ok := body["orderId"]; ok {
			w.Write([]byte(`{"code":20001,"msg":"order not found"}`))
			return
		}
		w.Write([]byte(`{"code":0,"msg":"ok","data":{}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if err := c.CancelConditional("BTCUSDT", "C9"); err != nil {
		t.Fatalf("CancelConditional: %v", err)
	}
	if len(bodies) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(bodies))
	}
	if bodies[0]["orderId"] != "C9" || bodies[1]["id"] != "C9" {
		t.Errorf("schema attempts = %v", bodies)
	}
}
