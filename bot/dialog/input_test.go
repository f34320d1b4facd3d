package dialog

import "testing"

func TestExtensionTokenRoundTrip(t *testing.T) {
	d := ExtensionDecision{SpeechID: 42, IssuedAt: 1756600000, ExtendMinutes: 10}
	token := EncodeExtension(d)

	in := CallbackInput(1, 2, "cb", "u", token)
	if in.Kind != KindDecision {
		t.Fatalf("kind = %v, want KindDecision", in.Kind)
	}
	if in.Decision == nil {
		t.Fatal("decision payload lost")
	}
	if *in.Decision != d {
		t.Fatalf("decision = %+v, want %+v", *in.Decision, d)
	}
}

func TestCallbackInputClassification(t *testing.T) {
	cases := []struct {
		token string
		kind  InputKind
	}{
		{"back", KindCommand},
		{"future_events", KindCommand},
		{"123", KindEntity},
		{"-5", KindCommand},
		{"0", KindCommand},
		{"extend_{\"speech\":1,\"ts\":2,\"extend\":5}", KindDecision},
	}
	for _, tc := range cases {
		in := CallbackInput(1, 0, "", "", tc.token)
		if in.Kind != tc.kind {
			t.Errorf("token %q: kind = %v, want %v", tc.token, in.Kind, tc.kind)
		}
	}
}

func TestMalformedExtensionTokenIsDroppedNotMisrouted(t *testing.T) {
	in := CallbackInput(1, 0, "", "", "extend_not-json")
	if in.Kind != KindDecision {
		t.Fatalf("kind = %v, want KindDecision", in.Kind)
	}
	if in.Decision != nil {
		t.Fatal("malformed payload must yield a nil decision")
	}
}

func TestIsStartCommand(t *testing.T) {
	for _, text := range []string{"/start", "start", "  /start  "} {
		if !isStartCommand(TextInput(1, 0, "", text)) {
			t.Errorf("%q not recognized as start", text)
		}
	}
	if isStartCommand(TextInput(1, 0, "", "starting over")) {
		t.Error("prefix match must not trigger start")
	}
	if isStartCommand(CallbackInput(1, 0, "", "", "start")) {
		t.Error("callback token must not trigger start reset")
	}
}
