package ident

import (
	"regexp"
	"strings"
	"testing"
)

func TestNewHasPrefixAndLength(t *testing.T) {
	id := New(PrefixProduct)

	if !strings.HasPrefix(id, "prd_") {
		t.Errorf("New(PrefixProduct) = %s, want prd_ prefix", id)
	}
	// prefix + "_" + 6-char timestamp + 16-char random
	if len(id) != len(PrefixProduct)+1+6+randomLength {
		t.Errorf("unexpected id length: %d in %s", len(id), id)
	}
}

func TestNewRandomAlphabet(t *testing.T) {
	pattern := regexp.MustCompile(`^job_[0-9A-Za-z]+$`)

	for i := 0; i < 100; i++ {
		id := NewRandom(PrefixJob)
		if !pattern.MatchString(id) {
			t.Fatalf("NewRandom(PrefixJob) produced non-base62 id: %s", id)
		}
	}
}

func TestNewUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New(PrefixSchedule)
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestEncodeTimestampSortable(t *testing.T) {
	earlier := encodeTimestamp(1704067200)
	later := encodeTimestamp(1704067201)

	if !(earlier < later) {
		t.Errorf("timestamps not lexicographically sortable: %s >= %s", earlier, later)
	}
	if encodeTimestamp(0) != "000000" {
		t.Errorf("encodeTimestamp(0) = %s, want 000000", encodeTimestamp(0))
	}
}
