package query

import (
	"strconv"
	"strings"
)

// Render prints node back to query text. It is used by the round-trip
// property (parsing Render(ast) reproduces ast) and is not needed for
// any runtime evaluation path.
func Render(node Node) string {
	var sb strings.Builder
	render(&sb, node)
	return sb.String()
}

func render(sb *strings.Builder, node Node) {
	switch n := node.(type) {
	case Latest:
		sb.WriteString("latest")
		if n.Inner != nil {
			sb.WriteString("(")
			render(sb, n.Inner)
			sb.WriteString(")")
		}
	case Single:
		sb.WriteString("single(")
		render(sb, n.Inner)
		sb.WriteString(")")
	case Negation:
		sb.WriteString("!")
		render(sb, n.Inner)
	case Brackets:
		sb.WriteString("(")
		render(sb, n.Inner)
		sb.WriteString(")")
	case BooleanOp:
		render(sb, n.Left)
		if n.Op == And {
			sb.WriteString(" && ")
		} else {
			sb.WriteString(" || ")
		}
		render(sb, n.Right)
	case Test:
		renderValue(sb, n.Left)
		sb.WriteString(" ")
		sb.WriteString(renderCompareOp(n.Op))
		sb.WriteString(" ")
		renderValue(sb, n.Right)
	}
}

func renderCompareOp(op CompareOp) string {
	switch op {
	case Equal:
		return "=="
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
	default:
		return "?"
	}
}

func renderValue(sb *strings.Builder, v Value) {
	switch val := v.(type) {
	case Lookup:
		switch val.Kind {
		case LookupName:
			sb.WriteString("name")
		case LookupID:
			sb.WriteString("id")
		case LookupParameter:
			sb.WriteString("parameter:" + val.Name)
		case LookupThis:
			sb.WriteString("this:" + val.Name)
		case LookupEnvironment:
			sb.WriteString("environment:" + val.Name)
		}
	case Literal:
		if b, ok := val.IsBool(); ok {
			sb.WriteString(strconv.FormatBool(b))
			return
		}
		if n, ok := val.IsNumber(); ok {
			// 'f' never emits an exponent, which the lexer does not accept.
			sb.WriteString(strconv.FormatFloat(n, 'f', -1, 64))
			return
		}
		if s, ok := val.IsString(); ok {
			sb.WriteString(quoteString(s))
			return
		}
	}
}

// quoteString renders s as a double-quoted string literal using only the
// escape sequences scanString understands (\\, \' and \"): fmt's %q would
// emit \n, \t, \uXXXX and similar, which the lexer rejects as invalid
// escapes and would break the parse/render round trip.
func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\', '"':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
