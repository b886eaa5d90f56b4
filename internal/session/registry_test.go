package session

import (
	"sync"
	"testing"
)

func TestRegistryIdentityStability(t *testing.T) {
	t.Parallel()

	r := NewSpeakerRegistry()
	in := []string{"A", "B", "A", "C", "B"}
	want := []string{"SPEAKER_1", "SPEAKER_2", "SPEAKER_1", "SPEAKER_3", "SPEAKER_2"}
	for i, eph := range in {
		if got := r.Resolve(eph); got != want[i] {
			t.Errorf("Resolve(%q) call %d = %q, want %q", eph, i, got, want[i])
		}
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}

func TestRegistryNoCollisions(t *testing.T) {
	t.Parallel()

	r := NewSpeakerRegistry()
	seen := map[string]string{}
	for _, eph := range []string{"S0", "S1", "S2", "S3", "S4", "S5"} {
		label := r.Resolve(eph)
		if prior, ok := seen[label]; ok {
			t.Fatalf("labels %q and %q both resolved to %q", prior, eph, label)
		}
		seen[label] = eph
	}
}

func TestRegistryConcurrentResolve(t *testing.T) {
	t.Parallel()

	r := NewSpeakerRegistry()
	var wg sync.WaitGroup
	results := make([]string, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Resolve("SAME")
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if got != results[0] {
			t.Fatalf("result %d = %q, differs from %q", i, got, results[0])
		}
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}
