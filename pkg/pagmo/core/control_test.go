package core

import "testing"

func TestParseControlPayload_Connected(t *testing.T) {
	verb, endpoint, err := ParseControlPayload("connected/10.0.0.7:1832")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verb != "connected" {
		t.Fatalf("expected verb connected, got %s", verb)
	}
	if endpoint.String() != "10.0.0.7:1832" {
		t.Fatalf("unexpected endpoint: %s", endpoint.String())
	}
}

func TestParseControlPayload_Disconnected(t *testing.T) {
	verb, endpoint, err := ParseControlPayload("disconnected/10.0.0.1:1500")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verb != "disconnected" {
		t.Fatalf("expected verb disconnected, got %s", verb)
	}
	if endpoint.Port != 1500 {
		t.Fatalf("unexpected port: %d", endpoint.Port)
	}
}

func TestParseControlPayload_Malformed(t *testing.T) {
	cases := []string{
		"not a population",
		"connected",
		"joined/10.0.0.1:1500",
		"connected/",
		"",
	}
	for _, c := range cases {
		if _, _, err := ParseControlPayload(c); err == nil {
			t.Errorf("expected error for payload %q", c)
		}
	}
}
