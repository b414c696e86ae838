package session

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
)

func TestSession_AppendKeepsDeliveryOrder(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := New(start)

	if s.ID == uuid.Nil {
		t.Fatal("expected session id to be set")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty session, got %d notes", s.Len())
	}

	s.Append(Note{SnippetID: "zara_001", CharacterID: "zara", Text: "a", DeliveredAt: start})
	s.Append(Note{SnippetID: "finn_001", CharacterID: "finn", Text: "b", DeliveredAt: start.Add(time.Minute)})

	want := []Note{
		{SnippetID: "zara_001", CharacterID: "zara", Text: "a", DeliveredAt: start},
		{SnippetID: "finn_001", CharacterID: "finn", Text: "b", DeliveredAt: start.Add(time.Minute)},
	}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}

	if !s.Delivered("zara_001") || s.Delivered("zara_002") {
		t.Error("Delivered() does not reflect appended notes")
	}
}

func TestSession_SnapshotIsCopy(t *testing.T) {
	s := New(time.Now())
	s.Append(Note{SnippetID: "zara_001", Text: "original"})

	snap := s.Snapshot()
	snap[0].Text = "changed"

	if s.Notes[0].Text != "original" {
		t.Error("modifying snapshot changed the session")
	}
}

func TestCategorization_UpsertIsIdempotent(t *testing.T) {
	c := &Categorization{SnippetID: "zara_001"}

	c.Upsert("Differentiation", snippet.Positive)
	c.Upsert("Differentiation", snippet.Positive)
	c.Upsert("Differentiation", snippet.Negative)
	c.Upsert("Projection", snippet.Positive)

	want := []Entry{
		{Category: "Differentiation", Polarity: snippet.Negative},
		{Category: "Projection", Polarity: snippet.Positive},
	}
	if diff := cmp.Diff(want, c.Entries); diff != "" {
		t.Errorf("Entries mismatch (-want +got):\n%s", diff)
	}
}

func TestCategorization_SuccessfulEntryIsFrozen(t *testing.T) {
	c := &Categorization{SnippetID: "zara_001"}
	c.Upsert("Differentiation", snippet.Negative)
	c.MarkProposed(0, snippet.Negative, true)

	if c.Upsert("Differentiation", snippet.Positive) {
		t.Error("expected upsert on a successful entry to be refused")
	}
	if c.Entries[0].Polarity != snippet.Negative {
		t.Errorf("polarity changed to %q", c.Entries[0].Polarity)
	}
}

func TestCategorization_FailedEntryCanChange(t *testing.T) {
	c := &Categorization{SnippetID: "zara_001"}
	c.Upsert("Differentiation", snippet.Positive)
	c.MarkProposed(0, snippet.Positive, false)

	if !c.Upsert("Differentiation", snippet.Negative) {
		t.Error("expected upsert on a failed entry to succeed")
	}
	if c.Entries[0].Succeeded() {
		t.Error("entry should not be marked successful")
	}
}

func TestCategorization_Clone(t *testing.T) {
	c := &Categorization{SnippetID: "zara_001"}
	c.Upsert("Differentiation", snippet.Negative)
	c.MarkProposed(0, snippet.Negative, true)

	clone := c.Clone()
	*clone.Entries[0].Successful = false
	clone.Entries = append(clone.Entries, Entry{Category: "Projection"})

	if !c.Entries[0].Succeeded() || len(c.Entries) != 1 {
		t.Error("clone shares state with original")
	}
	if diff := cmp.Diff(c, c.Clone(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Clone() mismatch (-want +got):\n%s", diff)
	}
}

func TestCategorizations_GetOrCreate(t *testing.T) {
	cs := make(Categorizations)

	if _, ok := cs.Get("zara_001"); ok {
		t.Fatal("expected no record")
	}
	a := cs.GetOrCreate("zara_001")
	b := cs.GetOrCreate("zara_001")
	if a != b {
		t.Error("GetOrCreate should return the existing record")
	}
	if a.SnippetID != "zara_001" {
		t.Errorf("SnippetID = %q", a.SnippetID)
	}
}
