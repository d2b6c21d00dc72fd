package intent

import "testing"

func TestParseToken(t *testing.T) {
	cases := []struct {
		token  string
		ok     bool
		method string
		amount string
	}{
		{token: "yape_20", ok: true, method: "YAPE", amount: "20"},
		{token: "USDT_15.5", ok: true, method: "USDT", amount: "15.5"},
		{token: " plin_7 ", ok: true, method: "PLIN", amount: "7"},
		{token: "", ok: false},
		{token: "yape", ok: false},
		{token: "yape_", ok: false},
		{token: "_20", ok: false},
		{token: "yape_0", ok: false},
		{token: "yape_-5", ok: false},
		{token: "yape_abc", ok: false},
		{token: "yape_20_extra", ok: false},
		{token: "ya-pe_20", ok: false},
		{token: "yape_20.50", ok: true, method: "YAPE", amount: "20.5"},
		{token: "yape_999999999999.99", ok: true, method: "YAPE", amount: "999999999999.99"},
		{token: "yape_0.001", ok: false},
		{token: "yape_20.505", ok: false},
		{token: "yape_1e15", ok: false},
		{token: "yape_1000000000000", ok: false},
	}

	for _, tc := range cases {
		method, amount, ok := ParseToken(tc.token)
		if ok != tc.ok {
			t.Fatalf("%q: expected ok=%v, got %v", tc.token, tc.ok, ok)
		}
		if !tc.ok {
			if method != "" || !amount.IsZero() {
				t.Fatalf("%q: expected empty result, got %q %s", tc.token, method, amount)
			}
			continue
		}
		if method != tc.method || amount.String() != tc.amount {
			t.Fatalf("%q: expected %s %s, got %s %s", tc.token, tc.method, tc.amount, method, amount)
		}
	}
}
