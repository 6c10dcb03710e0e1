package importer

import (
	"errors"
	"testing"
	"time"

	"github.com/mmynk/housesplit/internal/models"
)

var household = models.Roster{"Alice", "Bob", "Charlie", "Diana"}

func TestParse(t *testing.T) {
	im, err := New(household)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doc := `[
		{"id": "a1", "amount": 100, "description": "Electricity", "category": "Utilities",
		 "paidBy": "Alice", "date": "2024-03-10T08:00:00.000Z", "sharedWith": ["Bob", "Alice"]},
		{"amount": "12.5", "description": "Bread", "category": "groceries",
		 "paidBy": "Bob", "date": "2024-02-01T10:00:00+04:00", "image": null},
		{"amount": 7.255, "description": "Paint", "category": "Boya",
		 "paidBy": "Diana", "date": "2024-01-05T00:00:00Z", "sharedWith": [], "image": "data:image/png;base64,AAAA"}
	]`

	got, err := im.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d expenses, want 3", len(got))
	}

	if got[0].Amount != 10000 || got[0].Category != models.CategoryUtilities {
		t.Errorf("record 0 = %+v", got[0])
	}
	if len(got[0].SharedWith) != 2 || got[0].SharedWith[0] != "Alice" {
		t.Errorf("record 0 sharers = %v, want sorted [Alice Bob]", got[0].SharedWith)
	}

	if got[1].Amount != 1250 || got[1].Category != models.CategoryGroceries {
		t.Errorf("record 1 = %+v", got[1])
	}
	if len(got[1].SharedWith) != len(household) {
		t.Errorf("missing sharedWith: got %v, want whole roster", got[1].SharedWith)
	}
	if _, offset := got[1].Date.Zone(); offset != 4*3600 {
		t.Errorf("record 1 offset = %d, want +04:00 preserved", offset)
	}
	if !got[1].Date.Equal(time.Date(2024, 2, 1, 6, 0, 0, 0, time.UTC)) {
		t.Errorf("record 1 date = %v", got[1].Date)
	}

	if got[2].Amount != 726 || got[2].Category != models.CategoryOther || got[2].Image == "" {
		t.Errorf("record 2 = %+v", got[2])
	}
	if len(got[2].SharedWith) != len(household) {
		t.Errorf("empty sharedWith: got %v, want whole roster", got[2].SharedWith)
	}
}

func TestParseRejects(t *testing.T) {
	im, err := New(household)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"not an array", `{"amount": 1}`},
		{"missing payer", `[{"amount": 1, "description": "x", "category": "Other", "date": "2024-01-01T00:00:00Z"}]`},
		{"negative amount", `[{"amount": -5, "description": "x", "category": "Other", "paidBy": "Bob", "date": "2024-01-01T00:00:00Z"}]`},
		{"zero amount", `[{"amount": 0, "description": "x", "category": "Other", "paidBy": "Bob", "date": "2024-01-01T00:00:00Z"}]`},
		{"bad date", `[{"amount": 1, "description": "x", "category": "Other", "paidBy": "Bob", "date": "yesterday"}]`},
		{"empty description", `[{"amount": 1, "description": "", "category": "Other", "paidBy": "Bob", "date": "2024-01-01T00:00:00Z"}]`},
		{"sharer not a string", `[{"amount": 1, "description": "x", "category": "Other", "paidBy": "Bob", "date": "2024-01-01T00:00:00Z", "sharedWith": [3]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := im.Parse([]byte(tt.doc)); !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("err = %v, want ErrInvalidDocument", err)
			}
		})
	}
}
