// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package history

import (
	"fmt"
	"reflect"
	"testing"
)

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestRingBuffer_Append(t *testing.T) {
	tests := []struct {
		capacity int
		inserts  int
		want     []int
	}{
		{capacity: 3, inserts: 0, want: []int{}},
		{capacity: 3, inserts: 2, want: []int{1, 2}},
		{capacity: 3, inserts: 3, want: []int{1, 2, 3}},
		{capacity: 3, inserts: 7, want: []int{5, 6, 7}},
		{capacity: TemperatureCapacity, inserts: 401, want: seq(2, 401)},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("cap%d_n%d", tt.capacity, tt.inserts), func(t *testing.T) {
			rb := NewRingBuffer[int](tt.capacity)
			for i := 1; i <= tt.inserts; i++ {
				rb.Append(i)
				if rb.Len() > tt.capacity {
					t.Fatalf("Len() = %d exceeds capacity %d", rb.Len(), tt.capacity)
				}
			}
			if got := rb.All(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("All() = %v, want %v", got, tt.want)
			}
			last, ok := rb.Last()
			if tt.inserts == 0 {
				if ok {
					t.Error("Last() on empty buffer should report false")
				}
				return
			}
			if !ok || last != tt.inserts {
				t.Errorf("Last() = %d, %v", last, ok)
			}
		})
	}
}

func TestRingBuffer_ReplaceAll(t *testing.T) {
	rb := NewRingBuffer[int](5)
	rb.AppendAll([]int{100, 200})

	rb.ReplaceAll(seq(1, 3))
	if got := rb.All(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("ReplaceAll short = %v", got)
	}

	rb.ReplaceAll(seq(1, 12))
	if got := rb.All(); !reflect.DeepEqual(got, seq(8, 12)) {
		t.Errorf("ReplaceAll long = %v, want last 5", got)
	}

	rb.Append(13)
	if got := rb.All(); !reflect.DeepEqual(got, seq(9, 13)) {
		t.Errorf("Append after ReplaceAll = %v", got)
	}

	rb.ReplaceAll(nil)
	if rb.Len() != 0 {
		t.Errorf("ReplaceAll(nil) left %d items", rb.Len())
	}
}

func TestRingBuffer_Clear(t *testing.T) {
	rb := NewRingBuffer[string](LogCapacity)
	rb.Append("a")
	rb.Clear()
	if rb.Len() != 0 || len(rb.All()) != 0 {
		t.Error("Clear should empty the buffer")
	}
	if rb.Cap() != LogCapacity {
		t.Errorf("Cap() = %d", rb.Cap())
	}
}

func TestCommandHistory(t *testing.T) {
	h := NewCommandHistory(CommandCapacity)
	for i := 1; i <= 16; i++ {
		h.Add(fmt.Sprintf("G%d", i))
	}

	got := h.All()
	if len(got) != 15 {
		t.Fatalf("Len = %d, want 15", len(got))
	}
	if got[0] != "G16" {
		t.Errorf("front = %q, want most recent", got[0])
	}
	if got[14] != "G2" {
		t.Errorf("back = %q, want G2", got[14])
	}
	for _, c := range got {
		if c == "G1" {
			t.Error("oldest command should have been dropped")
		}
	}

	h.Add("G10")
	got = h.All()
	if got[0] != "G10" || len(got) != 15 {
		t.Errorf("re-adding should move to front without growing: %v", got)
	}
	count := 0
	for _, c := range got {
		if c == "G10" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("G10 appears %d times", count)
	}
}

func TestCommandHistory_Replace(t *testing.T) {
	h := NewCommandHistory(3)
	h.Replace([]string{"M105", "G28", "M105", "G1 X10", "M84"})
	want := []string{"M105", "G28", "G1 X10"}
	if got := h.All(); !reflect.DeepEqual(got, want) {
		t.Errorf("Replace = %v, want %v", got, want)
	}
}
