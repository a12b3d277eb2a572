package docstore

// Kind selects how a Write is applied.
type Kind int

const (
	// KindSet replaces the whole document, creating it when absent.
	KindSet Kind = iota
	// KindUpdate merges fields into an existing document. A missing document
	// fails the whole batch with common.ErrorNotFound.
	KindUpdate
	// KindMerge merges fields, creating the document when absent.
	KindMerge
	// KindDelete removes the document. Deleting an absent document succeeds.
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindUpdate:
		return "update"
	case KindMerge:
		return "merge"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// FieldUpdate assigns Value to the field addressed by Path. Intermediate
// objects are created as needed. Value may be DeleteField or an ArrayUnion.
type FieldUpdate struct {
	Path  []string
	Value any
}

// Field updates a top-level field.
func Field(name string, value any) FieldUpdate {
	return FieldUpdate{Path: []string{name}, Value: value}
}

// Nested updates a field inside nested objects, e.g.
// Nested(hearts, "placeHearts", placeID) for placeHearts.<placeID>.
func Nested(value any, path ...string) FieldUpdate {
	return FieldUpdate{Path: path, Value: value}
}

// Write is one element of an atomic batch.
type Write struct {
	Kind   Kind
	Path   Path
	Data   any
	Fields []FieldUpdate
}

// Set overwrites the document at p with data (a struct with json tags or a map).
func Set(p Path, data any) Write {
	return Write{Kind: KindSet, Path: p, Data: data}
}

// Update merges fields into the existing document at p.
func Update(p Path, fields ...FieldUpdate) Write {
	return Write{Kind: KindUpdate, Path: p, Fields: fields}
}

// Merge merges fields into the document at p, creating it when absent.
func Merge(p Path, fields ...FieldUpdate) Write {
	return Write{Kind: KindMerge, Path: p, Fields: fields}
}

// Delete removes the document at p.
func Delete(p Path) Write {
	return Write{Kind: KindDelete, Path: p}
}

type deleteSentinel struct{}

// DeleteField removes the addressed field when used as a FieldUpdate value.
var DeleteField any = deleteSentinel{}

// Union is the FieldUpdate value produced by ArrayUnion.
type Union struct {
	Key   string
	Items []any
}

// ArrayUnion appends each item to the addressed array unless an element with
// the same value under key is already present. An empty key compares whole
// elements. A missing array is created.
func ArrayUnion(key string, items ...any) Union {
	return Union{Key: key, Items: items}
}
