package repository

import "github.com/eslsoft/gapmap/pkg/filterexpr"

var listConceptsSchema = filterexpr.Schema{
	Filter: map[string]filterexpr.FilterField{
		"keyword": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "Keyword"},
		},
		"name": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpSW: "Keyword"},
		},
		"domain": {
			Kind: filterexpr.KindString,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpEQ: "Domain",
				filterexpr.OpIN: "Domains",
			},
		},
	},
	Order: filterexpr.OrderSchema{
		Default:     "created_at",
		DefaultDesc: true,
		TieBreak:    "id",
		Keys: map[string]string{
			"created_at": "created_at",
			"updated_at": "updated_at",
			"name":       "name",
			"domain":     "domain",
			"id":         "id",
		},
	},
}

var listItemsSchema = filterexpr.Schema{
	Filter: map[string]filterexpr.FilterField{
		"keyword": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "Keyword"},
		},
		"stem": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpSW: "Keyword"},
		},
		"item_type": {
			Kind: filterexpr.KindString,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpEQ: "ItemType",
				filterexpr.OpIN: "ItemTypes",
			},
		},
		"concept_id": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "ConceptID"},
		},
	},
	Order: filterexpr.OrderSchema{
		Default:     "created_at",
		DefaultDesc: true,
		TieBreak:    "id",
		Keys: map[string]string{
			"created_at": "created_at",
			"updated_at": "updated_at",
			"item_type":  "item_type",
			"id":         "id",
		},
	},
}

var listAttemptsSchema = filterexpr.Schema{
	Filter: map[string]filterexpr.FilterField{
		"item_id": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "ItemID"},
		},
		"session_id": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "SessionID"},
		},
		"create_time": {
			Kind: filterexpr.KindTimestamp,
			Ops:  map[filterexpr.Op]string{filterexpr.OpGTE: "Since"},
		},
	},
	Order: filterexpr.OrderSchema{
		Default:     "created_at",
		DefaultDesc: true,
		TieBreak:    "id",
		Keys: map[string]string{
			"created_at": "created_at",
			"id":         "id",
		},
	},
}
