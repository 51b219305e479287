package pipeline

import (
	"testing"

	"echoscript/internal/asr"
)

func TestGlobalizeShiftsWithoutMutating(t *testing.T) {
	in := []asr.Segment{
		{Start: 0, End: 5, Text: "hello"},
		{Start: 2, End: 4, Text: "world"},
	}
	out := Globalize(in, 30)

	if in[0].Start != 0 || in[1].Start != 2 {
		t.Fatalf("input mutated: %+v", in)
	}
	if out[0].Start != 30 || out[0].End != 35 {
		t.Fatalf("out[0] got %+v", out[0])
	}
	if out[1].Start != 32 || out[1].End != 34 {
		t.Fatalf("out[1] got %+v", out[1])
	}
}

func TestGlobalizeEmpty(t *testing.T) {
	if out := Globalize(nil, 30); out != nil {
		t.Fatalf("expected nil for empty input, got %v", out)
	}
}

func TestJoinSegments(t *testing.T) {
	cases := []struct {
		segs []asr.Segment
		want string
	}{
		{nil, ""},
		{[]asr.Segment{{Text: " hello "}, {Text: "world"}}, "hello world"},
		{[]asr.Segment{{Text: "a"}, {Text: "  "}, {Text: "b"}}, "a b"},
	}
	for _, c := range cases {
		if got := JoinSegments(c.segs); got != c.want {
			t.Fatalf("JoinSegments(%v)=%q want %q", c.segs, got, c.want)
		}
	}
}

func TestFlagNilSafe(t *testing.T) {
	var f *Flag
	if f.IsSet() {
		t.Fatalf("nil flag must read unset")
	}
	f = &Flag{}
	if f.IsSet() {
		t.Fatalf("fresh flag must read unset")
	}
	f.Set()
	if !f.IsSet() {
		t.Fatalf("flag must read set after Set")
	}
}
