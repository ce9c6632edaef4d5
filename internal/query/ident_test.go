package query

import (
	"errors"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/heartmarshall/proposal-backend/internal/domain"
)

func TestEncodeID_RoundTrip(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		id := NewID()
		oid, err := EncodeID(id)
		if err != nil {
			t.Fatalf("EncodeID(%q): %v", id, err)
		}
		if got := DecodeID(oid); got != id {
			t.Fatalf("DecodeID(EncodeID(%q)) = %q", id, got)
		}
	}
}

func TestDecodeID_Total(t *testing.T) {
	t.Parallel()

	oid := bson.NewObjectID()
	id := DecodeID(oid)
	back, err := EncodeID(id)
	if err != nil {
		t.Fatalf("EncodeID(DecodeID(oid)): %v", err)
	}
	if back != oid {
		t.Fatalf("native id changed across round trip: %v != %v", back, oid)
	}
	if DecodeID(bson.NilObjectID) != strings.Repeat("0", 24) {
		t.Fatalf("nil ObjectID should decode to zeros, got %q", DecodeID(bson.NilObjectID))
	}
}

func TestEncodeID_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"too short", "65f1c0"},
		{"too long", "65f1c0a2b3c4d5e6f7a8b9c0ff"},
		{"non hex", "zzf1c0a2b3c4d5e6f7a8b9c0"},
		{"uppercase", "65F1C0A2B3C4D5E6F7A8B9C0"},
		{"uuid", "3f2504e0-4f89-11d3-9a0c-0305e82c3301"},
		{"tenant key", "org-1"},
		{"whitespace", " 65f1c0a2b3c4d5e6f7a8b9c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := EncodeID(tt.in)
			if !errors.Is(err, domain.ErrInvalidIdentifier) {
				t.Fatalf("EncodeID(%q) error = %v, want ErrInvalidIdentifier", tt.in, err)
			}
			var ie *domain.IdentifierError
			if !errors.As(err, &ie) || ie.Value != tt.in {
				t.Fatalf("EncodeID(%q) should return *IdentifierError carrying the value, got %v", tt.in, err)
			}
		})
	}
}

func TestEncodeID_Injective(t *testing.T) {
	t.Parallel()

	// Upper and lower case spell the same bytes; only one spelling is admitted.
	lower := "65f1c0a2b3c4d5e6f7a8b9c0"
	upper := strings.ToUpper(lower)

	if _, err := EncodeID(lower); err != nil {
		t.Fatalf("EncodeID(lower): %v", err)
	}
	if _, err := EncodeID(upper); err == nil {
		t.Fatal("EncodeID(upper) should fail so two public ids never share a native id")
	}
}

func TestRefs_Has(t *testing.T) {
	t.Parallel()

	refs := NewRefs("authorId")
	if !refs.Has(domain.FieldID) || !refs.Has("authorId") {
		t.Fatal("identifier and declared refs must be reported")
	}
	if refs.Has("organizationId") {
		t.Fatal("undeclared field reported as ref")
	}
	var none Refs
	if !none.Has(domain.FieldID) {
		t.Fatal("identifier is an id field even on a nil Refs")
	}
}
