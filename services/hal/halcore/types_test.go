package halcore

import "testing"

func TestEdge_RoundTrip(t *testing.T) {
	for _, e := range []Edge{EdgeRising, EdgeFalling, EdgeBoth} {
		if got := ParseEdge(e.String()); got != e {
			t.Fatalf("ParseEdge(%q)=%v want %v", e.String(), got, e)
		}
	}
	if ParseEdge("sideways") != EdgeNone || ParseEdge("") != EdgeNone {
		t.Fatal("unknown names must map to EdgeNone")
	}
}
