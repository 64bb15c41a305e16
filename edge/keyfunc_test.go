package edge

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultKeyFunc(t *testing.T) {
	cases := []struct {
		name      string
		keyHeader string
		trustXFF  bool
		headers   map[string]string
		remote    string
		want      string
	}{
		{"header wins", "X-Client", false, map[string]string{"X-Client": " client-123 "}, "10.0.0.1:1234", "client-123"},
		{"empty header falls back", "X-Client", false, map[string]string{"X-Client": "  "}, "10.0.0.1:1234", "10.0.0.1"},
		{"first xff ip", "", true, map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "10.0.0.9:5555", "1.2.3.4"},
		{"xff ignored when untrusted", "", false, map[string]string{"X-Forwarded-For": "1.2.3.4"}, "10.0.0.9:5555", "10.0.0.9"},
		{"remote without port", "", false, nil, "10.0.0.9", "10.0.0.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://edge/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			if got := DefaultKeyFunc(tc.keyHeader, tc.trustXFF)(r); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
