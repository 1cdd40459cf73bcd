// Package registry implements the Type Registry (spec.md §4.2): per-type
// id-selector, id-comparer, safe-name, and id-path bookkeeping shared by
// the Document and Blob engines.
package registry

import (
	"reflect"
	"strings"
	"sync"

	"github.com/tychodb/tycho/internal/terr"
	"github.com/tychodb/tycho/path"
)

// IDSelector extracts the id value from a document value.
type IDSelector func(obj any) any

// IDComparer reports whether two id values are equal. The zero value
// (nil) falls back to value equality via reflect.DeepEqual.
type IDComparer func(a, b any) bool

func defaultComparer(a, b any) bool { return reflect.DeepEqual(a, b) }

// TypeInfo is the record the registry keeps for one registered type.
type TypeInfo struct {
	Type          reflect.Type
	SafeName      string
	IDPath        string
	IDIsNumeric   bool
	HasIDSelector bool
	selector      IDSelector
	comparer      IDComparer
}

// Registry records per-type id-selector/comparer/safe-name/id-path
// information. It is append-only after construction: concurrent
// registrations are not supported (spec.md §5), but concurrent reads
// (IDFor, CompareIDs, SafeName, Lookup) are safe since registration only
// happens during setup.
type Registry struct {
	mu     sync.RWMutex
	types  map[reflect.Type]*TypeInfo
	strict bool
}

// New constructs a Registry. strict mirrors the engine's
// requireTypeRegistration option: when true, Lookup fails with
// NotRegistered for unknown types instead of allowing an explicit
// per-call id-selector to stand in.
func New(strict bool) *Registry {
	return &Registry{types: make(map[reflect.Type]*TypeInfo), strict: strict}
}

// Strict reports whether the registry enforces required registration.
func (r *Registry) Strict() bool { return r.strict }

func typeOf[T any]() reflect.Type {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		// T is an interface or pointer type whose zero value is nil;
		// fall back to the generic instantiation via a typed nil pointer.
		t = reflect.TypeOf((*T)(nil)).Elem()
	}
	return t
}

// Register compiles idField (a path.Path declared once for T) and a Go
// selector function into a registry record. comparer may be nil, in
// which case ids compare by reflect.DeepEqual.
func Register[T any](r *Registry, idField path.Path, selector func(T) any, comparer IDComparer) {
	t := typeOf[T]()
	if comparer == nil {
		comparer = defaultComparer
	}
	info := &TypeInfo{
		Type:          t,
		SafeName:      SafeName(t),
		IDPath:        idField.String(),
		IDIsNumeric:   idField.IsNumeric(),
		HasIDSelector: true,
		selector:      func(obj any) any { return selector(obj.(T)) },
		comparer:      comparer,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t] = info
}

// RegisterWithCustomKeySelector registers T with a selector function but
// no accessor expression; the id path is synthetic and flagged
// non-numeric, per spec.md §4.2.
func RegisterWithCustomKeySelector[T any](r *Registry, selector func(T) any, comparer IDComparer) {
	t := typeOf[T]()
	if comparer == nil {
		comparer = defaultComparer
	}
	info := &TypeInfo{
		Type:          t,
		SafeName:      SafeName(t),
		IDPath:        "$.__key__",
		IDIsNumeric:   false,
		HasIDSelector: true,
		selector:      func(obj any) any { return selector(obj.(T)) },
		comparer:      comparer,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t] = info
}

// RegisterByConvention attempts to auto-detect an id field on T following
// the rule in Open Question Decision #2: a field tagged `tycho:"id"`; a
// field named exactly ID or Id; a field named <TypeName>ID or
// <TypeName>Id. Registration always succeeds; if no field matches,
// HasIDSelector is false and any later call that needs an id-selector
// must fail with MissingIdSelector.
func RegisterByConvention[T any](r *Registry) {
	t := typeOf[T]()
	info := &TypeInfo{Type: t, SafeName: SafeName(t)}

	if st := t; st.Kind() == reflect.Struct {
		if f, ok := findConventionField(st); ok {
			info.HasIDSelector = true
			info.IDPath = path.String(f.Name).String()
			info.IDIsNumeric = isNumericKind(f.Type.Kind())
			fieldIndex := f.Index
			info.selector = func(obj any) any {
				v := reflect.ValueOf(obj)
				for v.Kind() == reflect.Ptr {
					v = v.Elem()
				}
				return v.FieldByIndex(fieldIndex).Interface()
			}
			info.comparer = defaultComparer
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t] = info
}

func findConventionField(st reflect.Type) (reflect.StructField, bool) {
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if tag, ok := f.Tag.Lookup("tycho"); ok && tag == "id" {
			return f, true
		}
	}
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Name == "ID" || f.Name == "Id" {
			return f, true
		}
	}
	typeName := st.Name()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Name == typeName+"ID" || f.Name == typeName+"Id" {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// Lookup returns the TypeInfo for t, or NotRegistered if strict and
// unknown.
func (r *Registry) Lookup(t reflect.Type) (*TypeInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.types[t]
	if !ok {
		if r.strict {
			return nil, terr.NotRegistered(t.String())
		}
		return nil, nil
	}
	return info, nil
}

// IDFor invokes the stored selector for obj's type.
func (info *TypeInfo) IDFor(obj any) (any, error) {
	if !info.HasIDSelector || info.selector == nil {
		return nil, terr.MissingIdSelector(info.Type.String())
	}
	return info.selector(obj), nil
}

// CompareIDs uses the registered comparer, defaulting to value equality.
func (info *TypeInfo) CompareIDs(a, b any) bool {
	if info.comparer == nil {
		return defaultComparer(a, b)
	}
	return info.comparer(a, b)
}

// FullName returns t's fully qualified type name as stored in the
// FullTypeName column: Go's own `reflect.Type.String()` already yields a
// package-qualified, generics-instantiated name, so no separate
// mangling step is needed the way CLR runtime type names require.
func FullName(t reflect.Type) string { return t.String() }

// SafeName returns a cached generics-free textual form of t's name: Go's
// instantiated generic types already print without backtick-arity
// markers (`pkg.List[pkg.User]` rather than C#'s `` List`1[User] ``), but
// the brackets, dots, and commas in that string are not safe inside a SQL
// identifier suffix, so they are flattened to underscores the same way
// the spec's List_1__User__ flattens the CLR form.
func SafeName(t reflect.Type) string {
	name := t.String()
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '.' || r == '[' || r == ']' || r == ',' || r == ' ' || r == '*':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
