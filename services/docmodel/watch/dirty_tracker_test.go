// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestDirtyTracker_MarkAndDrain(t *testing.T) {
	tracker := NewDirtyTracker()

	tracker.MarkDirty("Core.Data", "/src/Core/Data.lean")
	tracker.MarkDirty("App.Main", "/src/App/Main.lean")

	if !tracker.IsDirty("Core.Data") {
		t.Error("Core.Data should be dirty")
	}
	if tracker.IsDirty("Untouched") {
		t.Error("Untouched should not be dirty")
	}
	if tracker.Count() != 2 {
		t.Errorf("Count = %d, want 2", tracker.Count())
	}

	got := tracker.Drain()
	if !reflect.DeepEqual(got, []string{"App.Main", "Core.Data"}) {
		t.Errorf("Drain = %v, want sorted names", got)
	}

	// Drain clears the set.
	if tracker.Count() != 0 || tracker.IsDirty("Core.Data") {
		t.Error("tracker should be empty after Drain")
	}
	if again := tracker.Drain(); again != nil {
		t.Errorf("second Drain = %v, want nil", again)
	}
}

func TestDirtyTracker_MarkIsIdempotent(t *testing.T) {
	tracker := NewDirtyTracker()

	tracker.MarkDirty("Core", "/src/Core.lean")
	tracker.MarkDirty("Core", "/src/Core.lean")
	tracker.MarkDirty("Core", "/src/Core/Other.lean")

	if tracker.Count() != 1 {
		t.Errorf("Count = %d, want 1", tracker.Count())
	}
	if got := tracker.Drain(); len(got) != 1 || got[0] != "Core" {
		t.Errorf("Drain = %v", got)
	}
}

func TestDirtyTracker_ConcurrentMarks(t *testing.T) {
	tracker := NewDirtyTracker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				tracker.MarkDirty(fmt.Sprintf("Mod%02d", j), "/src/x.lean")
			}
		}(i)
	}
	wg.Wait()

	if tracker.Count() != 25 {
		t.Errorf("Count = %d, want 25", tracker.Count())
	}
	if got := tracker.Drain(); len(got) != 25 || got[0] != "Mod00" || got[24] != "Mod24" {
		t.Errorf("Drain = %v", got)
	}
}
