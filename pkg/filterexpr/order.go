package filterexpr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

type orderParams struct {
	PrimaryKey    string
	PrimaryDesc   bool
	SecondaryKey  string
	SecondaryDesc bool
}

// parseOrderBy resolves up to two "key [asc|desc]" segments against the
// schema's whitelist and always yields a distinct secondary key so that
// ordering stays stable.
func parseOrderBy(raw string, schema OrderSchema) (orderParams, error) {
	if schema.Keys == nil {
		schema.Keys = map[string]string{}
	}
	if schema.Default == "" || schema.TieBreak == "" {
		return orderParams{}, errors.New("order schema requires default and tie-break keys")
	}
	if _, ok := schema.Keys[schema.Default]; !ok {
		return orderParams{}, fmt.Errorf("order key %q missing from schema", schema.Default)
	}
	if _, ok := schema.Keys[schema.TieBreak]; !ok {
		return orderParams{}, fmt.Errorf("tie-break key %q missing from schema", schema.TieBreak)
	}

	ord := orderParams{
		PrimaryKey:   schema.Default,
		PrimaryDesc:  schema.DefaultDesc,
		SecondaryKey: schema.TieBreak,
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ord, nil
	}

	seen := make(map[string]struct{})
	idx := 0
	for _, seg := range strings.Split(raw, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		parts := strings.Fields(seg)
		key := parts[0]
		if _, ok := schema.Keys[key]; !ok {
			return orderParams{}, fmt.Errorf("field %q cannot be used for ordering", key)
		}

		var desc bool
		switch len(parts) {
		case 1:
		case 2:
			switch strings.ToLower(parts[1]) {
			case "asc":
			case "desc":
				desc = true
			default:
				return orderParams{}, fmt.Errorf("invalid direction %q for field %q", parts[1], key)
			}
		default:
			return orderParams{}, fmt.Errorf("invalid order segment %q", seg)
		}

		if _, dup := seen[key]; dup {
			return orderParams{}, fmt.Errorf("duplicate order key %q", key)
		}
		seen[key] = struct{}{}

		switch idx {
		case 0:
			ord.PrimaryKey = key
			ord.PrimaryDesc = desc
		case 1:
			ord.SecondaryKey = key
			ord.SecondaryDesc = desc
		default:
			return orderParams{}, errors.New("order_by supports at most two keys")
		}
		idx++
	}

	if idx < 2 {
		ord.SecondaryKey = schema.TieBreak
		ord.SecondaryDesc = false
	}
	if ord.SecondaryKey == ord.PrimaryKey {
		for key := range schema.Keys {
			if key != ord.PrimaryKey {
				ord.SecondaryKey = key
				ord.SecondaryDesc = false
				break
			}
		}
		if ord.SecondaryKey == ord.PrimaryKey {
			return orderParams{}, errors.New("order schema requires at least two distinct keys")
		}
	}
	return ord, nil
}

func setOrderParams(binding any, ord orderParams) error {
	target := reflect.ValueOf(binding).Elem()
	if target.Kind() != reflect.Struct {
		return errors.New("binding must point to a struct")
	}
	for name, value := range map[string]any{
		"PrimaryKey":    ord.PrimaryKey,
		"PrimaryDesc":   ord.PrimaryDesc,
		"SecondaryKey":  ord.SecondaryKey,
		"SecondaryDesc": ord.SecondaryDesc,
	} {
		field := target.FieldByName(name)
		if !field.IsValid() || !field.CanSet() {
			return fmt.Errorf("query struct %s has no settable field %q", target.Type(), name)
		}
		field.Set(reflect.ValueOf(value))
	}
	return nil
}
