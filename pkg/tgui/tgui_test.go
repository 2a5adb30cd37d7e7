package tgui

import "testing"

func TestData(t *testing.T) {
	t.Parallel()

	cases := []struct {
		action string
		args   []string
		want   string
	}{
		{"home", nil, "home"},
		{"alerts", []string{"0"}, "alerts:0"},
		{"toggle", []string{"a1h", "123456789"}, "toggle:a1h:123456789"},
		{" home ", nil, "home"},
	}
	for _, tc := range cases {
		if got := Data(tc.action, tc.args...); got != tc.want {
			t.Fatalf("Data(%q, %v) = %q, want %q", tc.action, tc.args, got, tc.want)
		}
	}
}

func TestPaginateSlice(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4, 5, 6, 7}

	sub, page, _, from, to, hasPrev, hasNext := PaginateSlice(items, 0, 3)
	if len(sub) != 3 || page != 0 || from != 0 || to != 3 || hasPrev || !hasNext {
		t.Fatalf("page 0: got sub=%v page=%d from=%d to=%d prev=%v next=%v", sub, page, from, to, hasPrev, hasNext)
	}

	sub, _, _, _, _, hasPrev, hasNext = PaginateSlice(items, 2, 3)
	if len(sub) != 1 || sub[0] != 7 || !hasPrev || hasNext {
		t.Fatalf("last page: got sub=%v prev=%v next=%v", sub, hasPrev, hasNext)
	}

	sub, page, _, _, _, _, _ = PaginateSlice(items, -1, 3)
	if page != 0 || len(sub) != 3 {
		t.Fatalf("negative page: got page=%d sub=%v", page, sub)
	}

	sub, _, _, _, _, _, hasNext = PaginateSlice(items, 99, 3)
	if len(sub) != 0 || hasNext {
		t.Fatalf("out of range page: got sub=%v next=%v", sub, hasNext)
	}
}

func TestTruncRunes(t *testing.T) {
	t.Parallel()

	if got := TruncRunes("سلام دنیا", 4); got != "سلام…" {
		t.Fatalf("got %q", got)
	}
	if got := TruncRunes("hi", 10); got != "hi" {
		t.Fatalf("got %q", got)
	}
}

func TestBuilderKVEscapesHTML(t *testing.T) {
	t.Parallel()

	msg := New().KV("err", "<boom>").Build()
	if want := "• <b>err</b>: &lt;boom&gt;"; msg.Text != want {
		t.Fatalf("got %q, want %q", msg.Text, want)
	}
}
