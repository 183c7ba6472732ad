package book

import "testing"

func TestParsePayloadID(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int64
		wantOK  bool
	}{
		{"plain", "9780002005883 A novel that readers will love", 9780002005883, true},
		{"quoted", `"9780006280897 Lewis' work on the nature of love"`, 9780006280897, true},
		{"leading quote only", `"9780006280934 Selected essays`, 9780006280934, true},
		{"id only", "9780006280897", 9780006280897, true},
		{"surrounding whitespace", "  \t9780002005883 text\n", 9780002005883, true},
		{"tab separated", "9780002005883\tdescription", 9780002005883, true},
		{"empty", "", 0, false},
		{"quotes only", `""`, 0, false},
		{"non numeric", "isbn:9780002005883 text", 0, false},
		{"float", "978.5 text", 0, false},
		{"overflow", "99999999999999999999 text", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePayloadID(tt.payload)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("id = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTaggedLine(t *testing.T) {
	r := Record{ID: 9780002005883, Description: "A NOVEL THAT\nREADERS  and critics"}
	if got := TaggedLine(r); got != "9780002005883 A NOVEL THAT READERS and critics" {
		t.Errorf("TaggedLine() = %q", got)
	}

	id, ok := ParsePayloadID(TaggedLine(r))
	if !ok || id != r.ID {
		t.Errorf("tagged line does not parse back: id=%d ok=%v", id, ok)
	}

	if got := TaggedLine(Record{ID: 42}); got != "42" {
		t.Errorf("TaggedLine(no description) = %q", got)
	}
}
