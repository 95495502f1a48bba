package bot

import (
	"testing"

	"telegram_rps/internal/domain"
)

func TestDecodeCallback(t *testing.T) {
	cases := []struct {
		data       string
		wantKind   domain.ActionKind
		wantChoice domain.Choice
	}{
		{"rps:cancel:7", domain.ActionCancelOffer, ""},
		{"rps:bot:7", domain.ActionAcceptBot, ""},
		{"rps:accept:7", domain.ActionAcceptOffer, ""},
		{"rps:accept_direct:7", domain.ActionAcceptDirect, ""},
		{"rps:decline_direct:7", domain.ActionDeclineDirect, ""},
		{"rps:pick_bot:7:rock", domain.ActionSubmitPvBChoice, domain.ChoiceRock},
		{"rps:pick:7:scissors", domain.ActionSubmitPvPChoice, domain.ChoiceScissors},
	}

	for _, tc := range cases {
		ev, err := decodeCallback(tc.data)
		if err != nil {
			t.Fatalf("decodeCallback(%q) error: %v", tc.data, err)
		}
		if ev.Kind != tc.wantKind {
			t.Fatalf("decodeCallback(%q) kind = %s; want %s", tc.data, ev.Kind, tc.wantKind)
		}
		if ev.SessionID != 7 {
			t.Fatalf("decodeCallback(%q) session = %d; want 7", tc.data, ev.SessionID)
		}
		if ev.Choice != tc.wantChoice {
			t.Fatalf("decodeCallback(%q) choice = %q; want %q", tc.data, ev.Choice, tc.wantChoice)
		}
	}
}

func TestDecodeCallbackFailsClosed(t *testing.T) {
	bad := []string{
		"",
		"rps",
		"rps:cancel",
		"other:cancel:7",
		"rps:unknown:7",
		"rps:cancel:abc",
		"rps:cancel:0",
		"rps:cancel:-3",
		"rps:cancel:7:rock",       // choice on a non-choice tag
		"rps:pick:7",              // missing choice
		"rps:pick:7:lizard",       // choice outside the closed set
		"rps:pick_bot:7:rock:extra",
	}

	for _, data := range bad {
		if _, err := decodeCallback(data); err == nil {
			t.Fatalf("decodeCallback(%q) accepted; want rejection", data)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data := encodeChoiceCallback(tagPickPvP, 42, domain.ChoicePaper)
	ev, err := decodeCallback(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != domain.ActionSubmitPvPChoice || ev.SessionID != 42 || ev.Choice != domain.ChoicePaper {
		t.Fatalf("round trip mismatch: %+v", ev)
	}
}
