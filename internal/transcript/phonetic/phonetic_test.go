package phonetic

import "testing"

func TestMatchPhoneticallySimilarTerm(t *testing.T) {
	m := New()
	terms := []string{"Grafana", "Kubernetes"}

	corrected, conf, ok := m.Match("gruffana", terms)
	if !ok {
		t.Fatal("expected a match")
	}
	if corrected != "Grafana" {
		t.Errorf("corrected = %q, want Grafana", corrected)
	}
	if conf < 0.70 {
		t.Errorf("confidence = %v, want >= 0.70", conf)
	}
}

func TestMatchUnrelatedWord(t *testing.T) {
	m := New()

	corrected, conf, ok := m.Match("thursday", []string{"Grafana", "Kubernetes"})
	if ok {
		t.Errorf("unexpected match: %q (conf %v)", corrected, conf)
	}
	if corrected != "thursday" {
		t.Errorf("corrected = %q, want input unchanged", corrected)
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	m := New()

	if _, _, ok := m.Match("", []string{"Grafana"}); ok {
		t.Error("empty word must not match")
	}
	if _, _, ok := m.Match("grafana", nil); ok {
		t.Error("empty term list must not match")
	}
}

func TestMatchMultiWordTerm(t *testing.T) {
	m := New()

	corrected, _, ok := m.Match("anna petrof", []string{"Ana Petrov"})
	if !ok {
		t.Fatal("expected a match")
	}
	if corrected != "Ana Petrov" {
		t.Errorf("corrected = %q, want Ana Petrov", corrected)
	}
}

func TestMatchPicksHighestScore(t *testing.T) {
	m := New()
	terms := []string{"Petra", "Petrov"}

	corrected, _, ok := m.Match("petrof", terms)
	if !ok {
		t.Fatal("expected a match")
	}
	if corrected != "Petrov" {
		t.Errorf("corrected = %q, want Petrov", corrected)
	}
}

func TestThresholdOptionsTightenMatching(t *testing.T) {
	strict := New(WithPhoneticThreshold(0.99), WithFuzzyThreshold(0.99))

	if _, _, ok := strict.Match("gruffana", []string{"Grafana"}); ok {
		t.Error("near-perfect thresholds should reject an inexact match")
	}
}
