package drag

import (
	"testing"

	"fitplan/internal/domain"
)

func TestParseZoneID(t *testing.T) {
	cases := []struct {
		id   string
		want ZoneRef
		ok   bool
	}{
		{"sets:p1", ZoneRef{Type: ZoneContainer, Container: domain.ContainerRef{Kind: domain.KindSets, Owner: "p1"}}, true},
		{"exercises:s-9", ZoneRef{Type: ZoneContainer, Container: domain.ContainerRef{Kind: domain.KindExercises, Owner: "s-9"}}, true},
		{"new-set:p1", ZoneRef{Type: ZoneNewSet, Owner: "p1"}, true},
		{"new-part:sess", ZoneRef{Type: ZoneNewPart, Owner: "sess"}, true},
		{"delete", ZoneRef{Type: ZoneDelete}, true},
		{"duplicate", ZoneRef{Type: ZoneDuplicate}, true},
		{"", ZoneRef{}, false},
		{"new-set:", ZoneRef{}, false},
		{"trash", ZoneRef{}, false},
		{"columns:x", ZoneRef{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseZoneID(tc.id)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%q: got %+v,%v want %+v,%v", tc.id, got, ok, tc.want, tc.ok)
		}
	}
}

func TestZoneConstructorsRoundTrip(t *testing.T) {
	for _, z := range []DropZone{
		ContainerZone(domain.ContainerRef{Kind: domain.KindParts, Owner: "s"}, rect0),
		NewSetZone("p", rect0),
		NewPartZone("s", rect0),
		DuplicateZone(rect0),
		DeleteZone(rect0),
	} {
		ref, ok := ParseZoneID(z.ID)
		if !ok || ref.Type != z.Type {
			t.Fatalf("%s does not round trip: %+v", z.ID, ref)
		}
	}
}
