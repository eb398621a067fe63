package events

import "testing"

func TestKindNamesRoundTrip(t *testing.T) {
	for _, kind := range []Kind{KindKeyDown, KindKeyUp, KindMouseMove, KindMouseButtonDown, KindMouseButtonUp, KindMouseWheel} {
		parsed, err := ParseKind(kind.String())
		if err != nil {
			t.Fatalf("parse %s: %v", kind, err)
		}
		if parsed != kind {
			t.Fatalf("expected %s, got %s", kind, parsed)
		}
	}
	if Kind(0).Valid() || Kind(7).Valid() {
		t.Fatalf("expected out-of-range kinds to be invalid")
	}
	if _, err := ParseKind("hover"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestKeyLookups(t *testing.T) {
	key, ok := KeyByName("A")
	if !ok || key.Code != 30 {
		t.Fatalf("expected key a with code 30, got %+v (ok=%t)", key, ok)
	}
	if key, ok := KeyByName("escape"); !ok || key.Code != KeyEsc {
		t.Fatalf("expected alias to resolve to esc, got %+v", key)
	}
	if key, ok := KeyByMac(36); !ok || key.Code != KeyEnter {
		t.Fatalf("expected mac 36 to map to enter, got %+v", key)
	}

	key, shift, ok := KeyByRune('Q')
	if !ok || !shift || key.Name != "q" {
		t.Fatalf("expected shifted q, got %+v shift=%t", key, shift)
	}
	key, shift, ok = KeyByRune('?')
	if !ok || !shift || key.Name != "slash" {
		t.Fatalf("expected shifted slash, got %+v shift=%t", key, shift)
	}
	if _, _, ok := KeyByRune('é'); ok {
		t.Fatalf("expected no key for é")
	}
	if KeyName(9999) != "key9999" {
		t.Fatalf("unexpected fallback name %q", KeyName(9999))
	}
}

func TestParseButton(t *testing.T) {
	cases := map[string]int32{"": ButtonLeft, "Right": ButtonRight, "middle": ButtonMiddle, "3": ButtonMiddle}
	for input, expected := range cases {
		got, err := ParseButton(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != expected {
			t.Fatalf("parse %q: expected %d, got %d", input, expected, got)
		}
	}
	if _, err := ParseButton("thumb"); err == nil {
		t.Fatalf("expected error for unknown button")
	}
}

func TestFilter(t *testing.T) {
	var zero Filter
	if !zero.Allows(Event{Kind: KindMouseMove}) {
		t.Fatalf("zero filter should allow everything")
	}

	filter, err := NewFilter(true, []string{"f8", " "})
	if err != nil {
		t.Fatalf("new filter: %v", err)
	}
	if filter.Allows(Event{Kind: KindMouseMove}) {
		t.Fatalf("expected moves to be dropped")
	}
	if filter.Allows(Event{Kind: KindKeyDown, Code: 66}) {
		t.Fatalf("expected f8 to be excluded")
	}
	if !filter.Allows(Event{Kind: KindKeyUp, Code: 30}) {
		t.Fatalf("expected a to be allowed")
	}
	if !filter.Allows(Event{Kind: KindMouseButtonDown, Code: ButtonLeft}) {
		t.Fatalf("expected clicks to be allowed")
	}

	filter.Exclude(30)
	if filter.Allows(Event{Kind: KindKeyUp, Code: 30}) {
		t.Fatalf("expected a to be excluded after Exclude")
	}

	if _, err := NewFilter(false, []string{"hyper"}); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}
