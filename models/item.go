package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// ResourceKind names one of the collections exposed through the generic
// resource endpoints.
type ResourceKind string

const (
	ResourceTracks  ResourceKind = "tracks"
	ResourceCatalog ResourceKind = "catalog"
	ResourceUsers   ResourceKind = "users"
	ResourceEvents  ResourceKind = "events"
)

var resourceKinds = []ResourceKind{ResourceTracks, ResourceCatalog, ResourceUsers, ResourceEvents}

func ResourceKinds() []ResourceKind {
	return append([]ResourceKind(nil), resourceKinds...)
}

func ParseResourceKind(name string) (ResourceKind, bool) {
	for _, k := range resourceKinds {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// SerialKey is the field holding the positional serial number of an Item.
const SerialKey = "sr"

// Item is a free-form row of a serial-numbered collection.
type Item map[string]any

// SR reports the serial number of the item, if it has a numeric one.
func (it Item) SR() (int, bool) {
	return toInt(it[SerialKey])
}

func (it Item) SetSR(n int) {
	it[SerialKey] = n
}

func (it Item) Clone() Item {
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}
