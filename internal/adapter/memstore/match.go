package memstore

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Match reports whether doc satisfies the native filter document.
// Supported: implicit equality, $eq $ne $in $nin $gt $gte $lt $lte $regex
// $options $not $exists at field level and $and $or $nor at top level.
func Match(doc bson.M, filter bson.D) (bool, error) {
	for _, e := range filter {
		ok, err := matchEntry(doc, e)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchEntry(doc bson.M, e bson.E) (bool, error) {
	switch e.Key {
	case "$and", "$or", "$nor":
		clauses, ok := asArray(e.Value)
		if !ok || len(clauses) == 0 {
			return false, fmt.Errorf("memstore: %s needs a non-empty array", e.Key)
		}
		for _, clause := range clauses {
			sub, err := asDoc(clause)
			if err != nil {
				return false, fmt.Errorf("memstore: %s: %w", e.Key, err)
			}
			ok, err := Match(doc, sub)
			if err != nil {
				return false, err
			}
			switch {
			case e.Key == "$and" && !ok:
				return false, nil
			case e.Key == "$or" && ok:
				return true, nil
			case e.Key == "$nor" && ok:
				return false, nil
			}
		}
		return e.Key != "$or", nil
	}
	if strings.HasPrefix(e.Key, "$") {
		return false, fmt.Errorf("memstore: unsupported top-level operator %s", e.Key)
	}

	val, present := doc[e.Key]
	if ops, err := asDoc(e.Value); err == nil && isOperatorDoc(ops) {
		return matchOps(val, present, ops)
	}
	if re, ok := e.Value.(bson.Regex); ok {
		return matchRegex(val, re.Pattern, re.Options)
	}
	return matchEq(val, present, e.Value), nil
}

func matchOps(val any, present bool, ops bson.D) (bool, error) {
	for _, op := range ops {
		ok, err := matchOp(val, present, op, ops)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchOp(val any, present bool, op bson.E, siblings bson.D) (bool, error) {
	switch op.Key {
	case "$eq":
		return matchEq(val, present, op.Value), nil
	case "$ne":
		return !matchEq(val, present, op.Value), nil
	case "$in", "$nin":
		set, ok := asArray(op.Value)
		if !ok {
			return false, fmt.Errorf("memstore: %s needs an array", op.Key)
		}
		in := false
		for _, candidate := range set {
			if matchEq(val, present, candidate) {
				in = true
				break
			}
		}
		if op.Key == "$nin" {
			return !in, nil
		}
		return in, nil
	case "$gt", "$gte", "$lt", "$lte":
		return matchCompare(val, present, op.Key, op.Value), nil
	case "$regex":
		pattern, options, err := regexOperand(op.Value, siblings)
		if err != nil {
			return false, err
		}
		return matchRegex(val, pattern, options)
	case "$options":
		return true, nil
	case "$exists":
		want, ok := op.Value.(bool)
		if !ok {
			return false, fmt.Errorf("memstore: $exists needs a boolean")
		}
		return present == want, nil
	case "$not":
		if re, ok := op.Value.(bson.Regex); ok {
			matched, err := matchRegex(val, re.Pattern, re.Options)
			return !matched, err
		}
		inner, err := asDoc(op.Value)
		if err != nil || !isOperatorDoc(inner) {
			return false, fmt.Errorf("memstore: $not needs a regex or operator document")
		}
		matched, err := matchOps(val, present, inner)
		return !matched, err
	default:
		return false, fmt.Errorf("memstore: unsupported operator %s", op.Key)
	}
}

// matchEq follows MongoDB equality: null matches missing, and an array
// field matches when any element is equal.
func matchEq(val any, present bool, want any) bool {
	if isNull(want) {
		return !present || isNull(val)
	}
	if !present {
		return false
	}
	if equal(val, want) {
		return true
	}
	if arr, ok := asArray(val); ok {
		for _, el := range arr {
			if equal(el, want) {
				return true
			}
		}
	}
	return false
}

func matchCompare(val any, present bool, op string, operand any) bool {
	if isNull(operand) {
		if op == "$gte" || op == "$lte" {
			return !present || isNull(val)
		}
		return false
	}
	if !present {
		return false
	}
	c, ok := compareSameType(val, operand)
	if !ok {
		return false
	}
	switch op {
	case "$gt":
		return c > 0
	case "$gte":
		return c >= 0
	case "$lt":
		return c < 0
	default:
		return c <= 0
	}
}

func regexOperand(v any, siblings bson.D) (string, string, error) {
	switch re := v.(type) {
	case bson.Regex:
		return re.Pattern, re.Options, nil
	case string:
		options := ""
		for _, s := range siblings {
			if s.Key == "$options" {
				options, _ = s.Value.(string)
			}
		}
		return re, options, nil
	default:
		return "", "", fmt.Errorf("memstore: $regex needs a pattern, got %T", v)
	}
}

func matchRegex(val any, pattern, options string) (bool, error) {
	s, ok := val.(string)
	if !ok {
		return false, nil
	}
	flags := ""
	for _, o := range options {
		switch o {
		case 'i', 'm', 's':
			flags += string(o)
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("memstore: bad regex: %w", err)
	}
	return re.MatchString(s), nil
}

// Type classes in MongoDB's cross-type sort order. Values of different
// classes never satisfy a range comparison.
const (
	classNull = iota
	classNumber
	classString
	classDocument
	classArray
	classObjectID
	classBool
	classDate
	classOther
)

func isNull(v any) bool {
	switch v.(type) {
	case nil, bson.Null, bson.Undefined:
		return true
	}
	return false
}

func classify(v any) (int, any) {
	switch x := v.(type) {
	case nil, bson.Null, bson.Undefined:
		return classNull, nil
	case int:
		return classNumber, float64(x)
	case int32:
		return classNumber, float64(x)
	case int64:
		return classNumber, float64(x)
	case float32:
		return classNumber, float64(x)
	case float64:
		return classNumber, x
	case string:
		return classString, x
	case bson.ObjectID:
		return classObjectID, x.Hex()
	case bool:
		return classBool, x
	case bson.DateTime:
		return classDate, int64(x)
	case time.Time:
		return classDate, x.UnixMilli()
	case bson.D, bson.M, map[string]any:
		return classDocument, x
	case bson.A, []any:
		return classArray, x
	default:
		return classOther, x
	}
}

func compareSameType(a, b any) (int, bool) {
	ca, va := classify(a)
	cb, vb := classify(b)
	if ca != cb {
		return 0, false
	}
	switch ca {
	case classNull:
		return 0, true
	case classNumber:
		return cmp3(va.(float64) < vb.(float64), va.(float64) > vb.(float64)), true
	case classString, classObjectID:
		return strings.Compare(va.(string), vb.(string)), true
	case classBool:
		x, y := va.(bool), vb.(bool)
		return cmp3(!x && y, x && !y), true
	case classDate:
		return cmp3(va.(int64) < vb.(int64), va.(int64) > vb.(int64)), true
	default:
		if reflect.DeepEqual(va, vb) {
			return 0, true
		}
		return 0, false
	}
}

// compareOrder is the total order used for sorting and grouping: values
// of different classes order by class.
func compareOrder(a, b any) int {
	if c, ok := compareSameType(a, b); ok {
		return c
	}
	ca, _ := classify(a)
	cb, _ := classify(b)
	return cmp3(ca < cb, ca > cb)
}

func equal(a, b any) bool {
	c, ok := compareSameType(a, b)
	return ok && c == 0
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func asDoc(v any) (bson.D, error) {
	switch d := v.(type) {
	case bson.D:
		return d, nil
	case bson.M:
		return mapToDoc(d), nil
	case map[string]any:
		return mapToDoc(d), nil
	default:
		return nil, fmt.Errorf("expected a document, got %T", v)
	}
}

func mapToDoc(m map[string]any) bson.D {
	d := make(bson.D, 0, len(m))
	for k, v := range m {
		d = append(d, bson.E{Key: k, Value: v})
	}
	return d
}

func asArray(v any) ([]any, bool) {
	switch a := v.(type) {
	case bson.A:
		return a, true
	case []any:
		return a, true
	}
	return nil, false
}

func isOperatorDoc(d bson.D) bool {
	return len(d) > 0 && strings.HasPrefix(d[0].Key, "$")
}
