// Package importer reads expense documents exported from the earlier
// document-store version of the app.
package importer

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mmynk/housesplit/internal/models"
)

//go:embed legacy.schema.json
var legacySchema []byte

// ErrInvalidDocument is returned when the input does not match the legacy schema.
var ErrInvalidDocument = errors.New("invalid legacy document")

// Record is one expense document as the legacy app stored it.
type Record struct {
	ID          string          `json:"id"`
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	PaidBy      string          `json:"paidBy"`
	Date        string          `json:"date"`
	SharedWith  []string        `json:"sharedWith"`
	Image       *string         `json:"image"`
}

// Importer validates and converts legacy documents for a roster.
type Importer struct {
	schema *jsonschema.Schema
	roster models.Roster
}

// New compiles the legacy schema.
func New(roster models.Roster) (*Importer, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource("legacy.schema.json", bytes.NewReader(legacySchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("legacy.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Importer{schema: schema, roster: roster}, nil
}

// Parse validates data against the legacy schema and converts every record.
//
// Records without sharedWith were shared by the whole household and get the
// full roster. Unknown categories become Other. Participants are not checked
// here: a record naming someone outside the roster is still returned and is
// skipped by aggregation like any other.
func (im *Importer) Parse(data []byte) ([]models.Expense, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := im.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	expenses := make([]models.Expense, 0, len(records))
	for i, r := range records {
		e, err := im.convert(r)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidDocument, i, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func (im *Importer) convert(r Record) (models.Expense, error) {
	amount, err := models.ParseMoney(strings.Trim(string(r.Amount), `"`))
	if err != nil {
		return models.Expense{}, err
	}

	date, err := time.Parse(time.RFC3339Nano, r.Date)
	if err != nil {
		return models.Expense{}, fmt.Errorf("date: %w", err)
	}

	category, err := models.ParseCategory(r.Category)
	if err != nil {
		slog.Warn("Unknown legacy category, using Other", "category", r.Category, "description", r.Description)
		category = models.CategoryOther
	}

	sharedWith := r.SharedWith
	if len(sharedWith) == 0 {
		sharedWith = append([]string(nil), im.roster...)
	}

	e := models.Expense{
		Amount:      amount,
		Description: r.Description,
		Category:    category,
		PaidBy:      r.PaidBy,
		Date:        date,
		SharedWith:  sharedWith,
	}
	if r.Image != nil {
		e.Image = *r.Image
	}
	e.ApplyDefaults(date)
	return e, nil
}
