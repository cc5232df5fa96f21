package overrides

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "overrides.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		store.Close() //nolint:errcheck
	})
	return store
}

func TestGetArrayAbsentKeyYieldsEmpty(t *testing.T) {
	store := openTestStore(t)
	values := store.GetArray(context.Background(), LikedNotesKey("user-1"))
	if len(values) != 0 {
		t.Fatalf("expected empty array, got %v", values)
	}
}

func TestSetArrayRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	key := CollectedNotesKey("user-1")

	if err := store.SetArray(ctx, key, []string{"n1", "n2"}); err != nil {
		t.Fatalf("set array failed: %v", err)
	}
	values := store.GetArray(ctx, key)
	if len(values) != 2 || values[0] != "n1" || values[1] != "n2" {
		t.Fatalf("unexpected array contents: %v", values)
	}
}

func TestGetArrayMalformedValueYieldsEmpty(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.write(ctx, "broken", "{not json"); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}
	values := store.GetArray(ctx, "broken")
	if len(values) != 0 {
		t.Fatalf("malformed value should read as empty, got %v", values)
	}
}

func TestToggleMemberAddsAndRemoves(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	key := LikedNotesKey("user-1")

	present, err := store.ToggleMember(ctx, key, "n1")
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !present {
		t.Fatalf("first toggle should add the member")
	}
	if values := store.GetArray(ctx, key); len(values) != 1 || values[0] != "n1" {
		t.Fatalf("expected [n1], got %v", values)
	}

	present, err = store.ToggleMember(ctx, key, "n1")
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if present {
		t.Fatalf("second toggle should remove the member")
	}
	if values := store.GetArray(ctx, key); len(values) != 0 {
		t.Fatalf("expected empty array, got %v", values)
	}
}

func TestToggleMemberRemovesOnlyTarget(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	key := LikedNotesKey("user-2")

	if err := store.SetArray(ctx, key, []string{"a", "b"}); err != nil {
		t.Fatalf("set array failed: %v", err)
	}
	present, err := store.ToggleMember(ctx, key, "a")
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if present {
		t.Fatalf("toggle should have removed a")
	}
	values := store.GetArray(ctx, key)
	if len(values) != 1 || values[0] != "b" {
		t.Fatalf("expected [b], got %v", values)
	}
}

func TestFlagsRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	key := FollowedKey("u-mock")

	if store.GetFlag(ctx, key) {
		t.Fatalf("absent flag should read false")
	}
	if err := store.SetFlag(ctx, key, true); err != nil {
		t.Fatalf("set flag failed: %v", err)
	}
	if !store.GetFlag(ctx, key) {
		t.Fatalf("expected flag to read true")
	}
	if err := store.SetFlag(ctx, key, false); err != nil {
		t.Fatalf("set flag failed: %v", err)
	}
	if store.GetFlag(ctx, key) {
		t.Fatalf("expected flag to read false")
	}
}

func TestCommentsPrependNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := Comment{ID: "c1", EntityID: "n1", AuthorID: "u1", Author: "Ada", Text: "first", CreatedAt: time.Unix(1700000000, 0).UTC()}
	second := Comment{ID: "c2", EntityID: "n1", AuthorID: "u1", Author: "Ada", Text: "second", CreatedAt: time.Unix(1700000100, 0).UTC()}

	if err := store.AddComment(ctx, first); err != nil {
		t.Fatalf("add comment failed: %v", err)
	}
	if err := store.AddComment(ctx, second); err != nil {
		t.Fatalf("add comment failed: %v", err)
	}

	comments := store.Comments(ctx, "n1")
	if len(comments) != 2 {
		t.Fatalf("expected two comments, got %d", len(comments))
	}
	if comments[0].ID != "c2" || comments[1].ID != "c1" {
		t.Fatalf("expected newest first ordering, got %v", comments)
	}
}

func TestKeySchemeIsStable(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{got: LikedNotesKey("u1"), want: "liked_mock_notes_u1"},
		{got: CollectedNotesKey("u1"), want: "collected_mock_notes_u1"},
		{got: FollowedKey("u2"), want: "followed_mock_u2"},
		{got: CommentsKey("n1"), want: "mock_comments_n1"},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Fatalf("key mismatch: got %q want %q", tc.got, tc.want)
		}
	}
}
