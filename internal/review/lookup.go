// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package review

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Optional holds a value that may be absent. The zero value is absent.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// Or returns the held value, or def when absent.
func (o Optional[T]) Or(def T) T {
	if !o.Valid {
		return def
	}
	return o.Value
}

// Any returns the held value as an interface, or nil when absent.
func (o Optional[T]) Any() any {
	if !o.Valid {
		return nil
	}
	return o.Value
}

// Value is the result of a nested lookup: either a present raw JSON value
// or the absent marker. JSON null is treated as absent.
type Value struct {
	raw     any
	present bool
}

// Absent is the marker returned whenever a lookup chain breaks.
var Absent = Value{}

// Lookup follows path through nested maps starting at node. Any missing key,
// null link, or non-map intermediate yields Absent. It never panics.
func Lookup(node any, path ...string) Value {
	cur := node
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return Absent
		}
		next, ok := m[key]
		if !ok {
			return Absent
		}
		cur = next
	}
	if cur == nil {
		return Absent
	}
	return Value{raw: cur, present: true}
}

// Present reports whether the lookup resolved to a non-null value.
func (v Value) Present() bool {
	return v.present
}

// Raw returns the underlying decoded JSON value, nil when absent.
func (v Value) Raw() any {
	return v.raw
}

// String converts scalars to their textual form. Objects and arrays are absent.
func (v Value) String() Optional[string] {
	if !v.present {
		return Optional[string]{}
	}
	switch x := v.raw.(type) {
	case string:
		return Some(x)
	case json.Number:
		return Some(x.String())
	case float64:
		return Some(strconv.FormatFloat(x, 'f', -1, 64))
	case int:
		return Some(strconv.Itoa(x))
	case int64:
		return Some(strconv.FormatInt(x, 10))
	case bool:
		return Some(strconv.FormatBool(x))
	}
	return Optional[string]{}
}

// Number returns numeric scalars in their JSON text form, keeping fractions
// and exponents as received. Numeric strings are accepted; anything else is
// absent.
func (v Value) Number() Optional[json.Number] {
	if !v.present {
		return Optional[json.Number]{}
	}
	switch x := v.raw.(type) {
	case json.Number:
		return Some(x)
	case float64:
		if !math.IsInf(x, 0) && !math.IsNaN(x) {
			return Some(json.Number(strconv.FormatFloat(x, 'f', -1, 64)))
		}
	case int:
		return Some(json.Number(strconv.Itoa(x)))
	case int64:
		return Some(json.Number(strconv.FormatInt(x, 10)))
	case string:
		s := strings.TrimSpace(x)
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return Some(json.Number(s))
		}
	}
	return Optional[json.Number]{}
}
