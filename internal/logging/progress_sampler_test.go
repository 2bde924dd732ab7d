package logging

import "testing"

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	want := []bool{true, false, true, false, true, false, true, false, true}
	for done, expect := range want {
		if got := s.ShouldLog(done, 8); got != expect {
			t.Fatalf("ShouldLog(%d, 8) = %v, want %v", done, got, expect)
		}
	}
	if s.ShouldLog(8, 8) {
		t.Fatal("completion should only be logged once")
	}
}

func TestProgressSamplerSmallBatchesAlwaysLog(t *testing.T) {
	s := NewProgressSampler(0)
	if !s.ShouldLog(1, 2) || !s.ShouldLog(2, 2) {
		t.Fatal("each step of a two item batch crosses a bucket")
	}
}

func TestProgressSamplerNilAndReset(t *testing.T) {
	var nilSampler *ProgressSampler
	if !nilSampler.ShouldLog(1, 10) {
		t.Fatal("nil sampler should always log")
	}
	nilSampler.Reset()

	s := NewProgressSampler(50)
	s.ShouldLog(10, 10)
	s.Reset()
	if !s.ShouldLog(0, 10) {
		t.Fatal("reset sampler should log the first event again")
	}
}
