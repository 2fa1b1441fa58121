package primitives

// Predicate identifies the comparison a histogram or value-domain operation
// is asked to reason about.
type Predicate int

const (
	Equals Predicate = iota
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	Between
	Like
	NotLike
)

func (p Predicate) String() string {
	switch p {
	case Equals:
		return "="
	case NotEqual:
		return "!="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	case Between:
		return "BETWEEN"
	case Like:
		return "LIKE"
	case NotLike:
		return "NOT LIKE"
	default:
		return "UNKNOWN"
	}
}

// IsRange reports whether the predicate compares against a single ordered
// boundary (as opposed to Between, which needs two).
func (p Predicate) IsRange() bool {
	switch p {
	case LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual:
		return true
	default:
		return false
	}
}
