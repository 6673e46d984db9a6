package entities

import (
	"encoding/json"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cedar-policy/cedar-schema-go/internal/valuejson"
	"github.com/cedar-policy/cedar-schema-go/types"
)

// MarshalValue renders a value in the JSON entity-attribute format, using
// the `__entity` and `__extn` escape forms where needed.
func MarshalValue(v types.Value) ([]byte, error) {
	return valuejson.Encode(v)
}

type entityJSON struct {
	UID     uidJSON                    `json:"uid"`
	Attrs   map[string]json.RawMessage `json:"attrs"`
	Parents []uidJSON                  `json:"parents"`
}

type uidJSON struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func uidToJSON(uid types.EntityUID) uidJSON {
	return uidJSON{Type: string(uid.Type.Name), ID: string(uid.ID)}
}

// MarshalEntities renders entities as a JSON array, sorted by UID so the
// output is deterministic.
func MarshalEntities(em types.EntityMap) ([]byte, error) {
	uids := maps.Keys(em)
	slices.SortFunc(uids, func(x, y types.EntityUID) int {
		if c := slices.Compare([]byte(x.Type.Name), []byte(y.Type.Name)); c != 0 {
			return c
		}
		return slices.Compare([]byte(x.ID), []byte(y.ID))
	})
	out := make([]entityJSON, 0, len(uids))
	for _, uid := range uids {
		e := em[uid]
		ej := entityJSON{
			UID:     uidToJSON(uid),
			Attrs:   make(map[string]json.RawMessage, e.Attributes.Len()),
			Parents: make([]uidJSON, 0, len(e.Parents)),
		}
		var encErr error
		e.Attributes.Iterate(func(k types.String, v types.Value) bool {
			b, err := valuejson.Encode(v)
			if err != nil {
				encErr = err
				return false
			}
			ej.Attrs[string(k)] = b
			return true
		})
		if encErr != nil {
			return nil, encErr
		}
		for _, parent := range e.Parents {
			ej.Parents = append(ej.Parents, uidToJSON(parent))
		}
		out = append(out, ej)
	}
	return json.Marshal(out)
}
