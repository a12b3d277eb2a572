package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/dmitrijs2005/placeshare/internal/common"
)

// normalize turns v into the shape encoding/json would decode it to, keeping
// DeleteField and Union values intact so they can be applied later.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case deleteSentinel:
		return t, nil
	case Union:
		items := make([]any, 0, len(t.Items))
		for _, it := range t.Items {
			n, err := normalize(it)
			if err != nil {
				return nil, err
			}
			items = append(items, n)
		}
		return Union{Key: t.Key, Items: items}, nil
	case Document:
		return normalize(map[string]any(t))
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			n, err := normalize(x)
			if err != nil {
				return nil, err
			}
			m[k] = n
		}
		return m, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedRecord, err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedRecord, err)
	}
	return out, nil
}

// toDocument normalizes data and requires the result to be a JSON object.
func toDocument(data any) (Document, error) {
	n, err := normalize(data)
	if err != nil {
		return nil, err
	}
	m, ok := n.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: document must be an object, got %T", common.ErrMalformedRecord, n)
	}
	if err := rejectSentinels(m); err != nil {
		return nil, err
	}
	return Document(m), nil
}

func rejectSentinels(v any) error {
	switch t := v.(type) {
	case deleteSentinel, Union:
		return fmt.Errorf("%w: field transforms are only allowed in field updates", common.ErrMalformedRecord)
	case map[string]any:
		for _, x := range t {
			if err := rejectSentinels(x); err != nil {
				return err
			}
		}
	case []any:
		for _, x := range t {
			if err := rejectSentinels(x); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyFields applies updates to doc in order.
func applyFields(doc Document, updates []FieldUpdate) error {
	for _, u := range updates {
		if len(u.Path) == 0 {
			return fmt.Errorf("%w: empty field path", common.ErrInvalidArgument)
		}
		value, err := normalize(u.Value)
		if err != nil {
			return err
		}
		applyField(map[string]any(doc), u.Path, value)
	}
	return nil
}

func applyField(m map[string]any, path []string, value any) {
	parent := m
	for _, seg := range path[:len(path)-1] {
		next, ok := parent[seg].(map[string]any)
		if !ok {
			if _, isDelete := value.(deleteSentinel); isDelete {
				return
			}
			next = map[string]any{}
			parent[seg] = next
		}
		parent = next
	}

	key := path[len(path)-1]
	switch v := value.(type) {
	case deleteSentinel:
		delete(parent, key)
	case Union:
		existing, _ := parent[key].([]any)
		parent[key] = unionItems(existing, v)
	default:
		parent[key] = v
	}
}

func unionItems(existing []any, u Union) []any {
	out := make([]any, 0, len(existing)+len(u.Items))
	out = append(out, existing...)
	for _, it := range u.Items {
		if !containsItem(out, it, u.Key) {
			out = append(out, it)
		}
	}
	return out
}

func containsItem(items []any, item any, key string) bool {
	if key == "" {
		for _, x := range items {
			if reflect.DeepEqual(x, item) {
				return true
			}
		}
		return false
	}

	m, ok := item.(map[string]any)
	if !ok {
		return false
	}
	want, ok := m[key]
	if !ok {
		return false
	}
	for _, x := range items {
		xm, ok := x.(map[string]any)
		if !ok {
			continue
		}
		if got, ok := xm[key]; ok && reflect.DeepEqual(got, want) {
			return true
		}
	}
	return false
}

// txn is the storage side of a batch: every backend provides one per
// transaction.
type txn interface {
	load(ctx context.Context, p Path) (Document, bool, error)
	put(ctx context.Context, p Path, doc Document) error
	remove(ctx context.Context, p Path) error
}

type staged struct {
	doc    Document
	exists bool
}

// runBatch applies writes in order against t. Documents are read at most once
// and written once at the end, so the backend's transaction sees the final
// state of every touched path.
func runBatch(ctx context.Context, t txn, writes []Write) error {
	state := make(map[Path]*staged, len(writes))
	order := make([]Path, 0, len(writes))

	current := func(p Path) (*staged, error) {
		if s, ok := state[p]; ok {
			return s, nil
		}
		doc, ok, err := t.load(ctx, p)
		if err != nil {
			return nil, err
		}
		s := &staged{doc: doc, exists: ok}
		state[p] = s
		order = append(order, p)
		return s, nil
	}

	for _, w := range writes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Path.ValidateDocument(); err != nil {
			return err
		}

		switch w.Kind {
		case KindSet:
			doc, err := toDocument(w.Data)
			if err != nil {
				return fmt.Errorf("set %s: %w", w.Path, err)
			}
			if _, ok := state[w.Path]; !ok {
				order = append(order, w.Path)
			}
			state[w.Path] = &staged{doc: doc, exists: true}

		case KindUpdate, KindMerge:
			s, err := current(w.Path)
			if err != nil {
				return err
			}
			if !s.exists {
				if w.Kind == KindUpdate {
					return fmt.Errorf("update %s: %w", w.Path, common.ErrorNotFound)
				}
				s.doc, s.exists = Document{}, true
			}
			if err := applyFields(s.doc, w.Fields); err != nil {
				return fmt.Errorf("%s %s: %w", w.Kind, w.Path, err)
			}

		case KindDelete:
			if _, ok := state[w.Path]; !ok {
				order = append(order, w.Path)
			}
			state[w.Path] = &staged{}

		default:
			return fmt.Errorf("%w: unknown write kind %d", common.ErrInvalidArgument, w.Kind)
		}
	}

	for _, p := range order {
		s := state[p]
		if s.exists {
			if err := t.put(ctx, p, s.doc); err != nil {
				return err
			}
			continue
		}
		if err := t.remove(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
