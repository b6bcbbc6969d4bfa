package typeinfo

import "strings"

// Resolver looks up a declared record or object type by name. It returns the
// table of a record type, or an empty table for an object type.
type Resolver func(name string) (table string, ok bool)

var scalarWireTypes = map[string]string{
	"String": "string", "str": "string", "char": "string",
	"bool": "bool",
	"f32":  "float", "f64": "float",
	"Decimal":  "decimal",
	"DateTime": "datetime", "Datetime": "datetime",
	"Duration": "duration",
	"Uuid":     "uuid",
	"Bytes":    "bytes",
}

var intTypes = []string{"i8", "i16", "i32", "i64", "i128", "isize", "u8", "u16", "u32", "u64", "u128", "usize"}

// transparent types are stored as their element.
var transparent = map[string]bool{
	"Box": true, "Rc": true, "Arc": true, "Cow": true, "RefCell": true, "Cell": true,
}

// WireType infers the storage type the query engine uses for values of t,
// e.g. array<int> for Vec<i32>. Types it cannot classify are "any".
func WireType(t *Type, resolve Resolver) string {
	t = ungroup(t)
	switch {
	case t == nil:
		return "any"
	case t.Reference != nil:
		return WireType(t.Reference.Elem, resolve)
	case t.Bracket != nil:
		elem := WireType(t.Bracket.Elem, resolve)
		if t.Bracket.IsArray() && isDigits(*t.Bracket.Len) {
			return "array<" + elem + ", " + *t.Bracket.Len + ">"
		}
		return "array<" + elem + ">"
	case t.Paren != nil:
		return "array"
	case t.Path != nil:
		return pathWireType(t.Path, resolve)
	}
	return "any"
}

func pathWireType(p *Path, resolve Resolver) string {
	seg := p.Last()
	if wire, ok := scalarWireTypes[seg.Name]; ok {
		return wire
	}
	for _, it := range intTypes {
		if seg.Name == it {
			return "int"
		}
	}

	args := seg.TypeArgs()
	elem := func() string {
		if len(args) == 0 {
			return "any"
		}
		return WireType(args[len(args)-1], resolve)
	}

	if arity, ok := linkWrappers[seg.Name]; ok {
		record := "record"
		if len(args) == 1 && resolve != nil {
			if target := ungroup(args[0]); target.Path != nil {
				if table, ok := resolve(target.Path.Last().Name); ok && table != "" {
					record = "record<" + table + ">"
				}
			}
		}
		if arity == LinkMany {
			return "array<" + record + ">"
		}
		return record
	}

	switch {
	case seg.Name == "Option":
		return "option<" + elem() + ">"
	case seg.Name == "HashSet" || seg.Name == "BTreeSet":
		return "set<" + elem() + ">"
	case seg.Name == "Vec" || seg.Name == "VecDeque" || seg.Name == "LinkedList" || seg.Name == "BinaryHeap":
		return "array<" + elem() + ">"
	case seg.Name == "HashMap" || seg.Name == "BTreeMap":
		return "object"
	case transparent[seg.Name] && len(args) > 0:
		return elem()
	case strings.HasPrefix(seg.Name, "Surreal") && strings.HasSuffix(seg.Name, "Id"), seg.Name == "Thing", seg.Name == "RecordId":
		return "record"
	}
	if resolve != nil {
		if _, ok := resolve(seg.Name); ok {
			return "object"
		}
	}
	return "any"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
