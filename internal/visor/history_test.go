package visor

import "testing"

func TestCommandHistoryAllAndCommitted(t *testing.T) {
	var h CommandHistory
	h.Append("a: \nfn a(){}", Committed)
	h.Append("bad snippet", Failed)
	h.Append("b: a\nfn b(){}", Committed)

	all := h.All()
	if len(all) != 3 {
		t.Fatalf("All() returned %d entries, want 3", len(all))
	}
	if all[1].Verdict != Failed {
		t.Fatalf("All()[1].Verdict = %v, want Failed", all[1].Verdict)
	}

	committed := h.Committed()
	want := []string{"a: \nfn a(){}", "b: a\nfn b(){}"}
	if len(committed) != len(want) {
		t.Fatalf("Committed() = %v, want %v", committed, want)
	}
	for i := range want {
		if committed[i] != want[i] {
			t.Fatalf("Committed()[%d] = %q, want %q", i, committed[i], want[i])
		}
	}
}

func TestCommandHistoryEmpty(t *testing.T) {
	var h CommandHistory
	if got := h.All(); len(got) != 0 {
		t.Fatalf("All() on empty history = %v, want empty", got)
	}
	if got := h.Committed(); len(got) != 0 {
		t.Fatalf("Committed() on empty history = %v, want empty", got)
	}
}
