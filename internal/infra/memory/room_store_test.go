package memory

import "testing"

func TestRoomStoreLifecycle(t *testing.T) {
	store := NewRoomStore()

	room := store.Acquire("course-1")
	if room == nil || room.ID() != "course-1" {
		t.Fatalf("expected room course-1, got %v", room)
	}
	if again := store.Acquire("course-1"); again != room {
		t.Fatalf("expected the same room on second acquire")
	}

	store.Release("course-1")
	if _, ok := store.Get("course-1"); !ok {
		t.Fatalf("expected room kept while referenced")
	}

	store.Release("course-1")
	if _, ok := store.Get("course-1"); ok {
		t.Fatalf("expected room removed once released")
	}
	if store.Len() != 0 {
		t.Fatalf("expected no live rooms, got %d", store.Len())
	}

	// releasing an unknown room is harmless
	store.Release("course-1")
}
