// Package sqlstmt understands a small SQL-like dialect for editing a single
// table: UPDATE ... SET and DELETE FROM with an optional WHERE clause. SELECT
// is recognized but never executed locally.
package sqlstmt

import (
	"regexp"
	"strings"

	"github.com/KaramelBytes/datafix-cli/internal/report"
	"github.com/KaramelBytes/datafix-cli/internal/table"
)

// Kind is the statement verb.
type Kind string

const (
	Update Kind = "UPDATE"
	Delete Kind = "DELETE"
	Select Kind = "SELECT"
)

// Condition operators.
const (
	OpEq = "="
	OpIn = "IN"
	OpGt = ">"
	OpGe = ">="
	OpLt = "<"
	OpLe = "<="
	OpNe = "!="
	// OpNumEq is numeric equality, only produced for DELETE.
	OpNumEq = "=="
	// OpIsNull and OpNotNull test emptiness the way table.IsEmpty does.
	OpIsNull  = "IS NULL"
	OpNotNull = "IS NOT NULL"
)

// Condition is a parsed WHERE clause.
type Condition struct {
	Column string
	Op     string
	// Values holds the literal for equality and the list for IN.
	Values []string
	Number float64
}

// Statement is a parsed statement.
type Statement struct {
	Kind     Kind
	Table    string
	Column   string
	Value    string
	Where    *Condition
	Original string
}

const (
	name    = `"[^"]+"|` + "`[^`]+`" + `|\[[^\]]+\]|[\w.]+`
	literal = `'(?:[^']|'')*'|"[^"]*"|-?\d+(?:\.\d+)?`
	number  = `-?\d+(?:\.\d+)?`
)

var (
	updateRe = regexp.MustCompile(`(?is)^UPDATE\s+(?P<table>` + name + `)\s+SET\s+(?P<col>` + name + `)\s*=\s*(?P<lit>` + literal + `)(?:\s+WHERE\s+(?P<where>.+))?$`)
	deleteRe = regexp.MustCompile(`(?is)^DELETE\s+FROM\s+(?P<table>` + name + `)(?:\s+WHERE\s+(?P<where>.+))?$`)
	selectRe = regexp.MustCompile(`(?is)^SELECT\b`)
	verbRe   = regexp.MustCompile(`(?i)^(UPDATE|DELETE)\b`)

	inRe       = regexp.MustCompile(`(?is)^(?P<col>` + name + `)\s+IN\s*\((?P<list>.*)\)$`)
	compareRe  = regexp.MustCompile(`(?is)^(?P<col>` + name + `)\s*(?P<op>>=|<=|<>|!=|>|<|=)\s*(?P<num>` + number + `)$`)
	nullRe     = regexp.MustCompile(`(?is)^(?P<col>` + name + `)\s+IS\s+(?P<not>NOT\s+)?NULL$`)
	equalRe    = regexp.MustCompile(`(?is)^(?P<col>` + name + `)\s*=\s*(?P<lit>` + literal + `)$`)
	listItemRe = regexp.MustCompile(`^\s*(` + literal + `)\s*(?:,|$)`)
)

// conditionParser recognizes one WHERE shape.
type conditionParser func(where string, kind Kind) (*Condition, bool)

// conditionParsers are tried in order; the first match wins.
var conditionParsers = []conditionParser{
	func(where string, _ Kind) (*Condition, bool) {
		g := submatch(nullRe, where)
		if g == nil {
			return nil, false
		}
		op := OpIsNull
		if g["not"] != "" {
			op = OpNotNull
		}
		return &Condition{Column: ident(g["col"]), Op: op}, true
	},
	func(where string, _ Kind) (*Condition, bool) {
		g := submatch(inRe, where)
		if g == nil {
			return nil, false
		}
		vals, ok := parseList(g["list"])
		if !ok {
			return nil, false
		}
		return &Condition{Column: ident(g["col"]), Op: OpIn, Values: vals}, true
	},
	func(where string, kind Kind) (*Condition, bool) {
		if kind != Delete {
			return nil, false
		}
		g := submatch(compareRe, where)
		if g == nil {
			return nil, false
		}
		n, ok := table.ParseNumber(g["num"])
		if !ok {
			return nil, false
		}
		op := g["op"]
		switch op {
		case "=":
			op = OpNumEq
		case "<>":
			op = OpNe
		}
		return &Condition{Column: ident(g["col"]), Op: op, Number: n, Values: []string{g["num"]}}, true
	},
	func(where string, _ Kind) (*Condition, bool) {
		g := submatch(equalRe, where)
		if g == nil {
			return nil, false
		}
		return &Condition{Column: ident(g["col"]), Op: OpEq, Values: []string{unquoteLiteral(g["lit"])}}, true
	},
}

// Parse recognizes a statement. Unknown verbs yield UnsupportedStatement and
// malformed UPDATE or DELETE statements yield ParseError.
func Parse(sql string) (Statement, error) {
	s := strings.TrimSpace(sql)
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	st := Statement{Original: s}
	if s == "" {
		return st, report.Errorf(report.ParseError, "empty statement")
	}

	if selectRe.MatchString(s) {
		st.Kind = Select
		return st, nil
	}
	if g := submatch(updateRe, s); g != nil {
		st.Kind = Update
		st.Table = ident(g["table"])
		st.Column = ident(g["col"])
		st.Value = unquoteLiteral(g["lit"])
		return st, parseWhere(&st, g["where"])
	}
	if g := submatch(deleteRe, s); g != nil {
		st.Kind = Delete
		st.Table = ident(g["table"])
		if strings.TrimSpace(g["where"]) == "" {
			return st, report.Errorf(report.UnsupportedStatement,
				"DELETE without a WHERE clause would remove every row; add a condition")
		}
		return st, parseWhere(&st, g["where"])
	}
	if m := verbRe.FindStringSubmatch(s); m != nil {
		return st, report.Errorf(report.ParseError, "could not parse %s statement %q", strings.ToUpper(m[1]), s)
	}
	return st, report.Errorf(report.UnsupportedStatement,
		"only UPDATE <table> SET <col> = <value> [WHERE ...], DELETE FROM <table> WHERE ... and SELECT are supported")
}

func parseWhere(st *Statement, where string) error {
	where = strings.TrimSpace(where)
	if where == "" {
		return nil
	}
	for _, p := range conditionParsers {
		if c, ok := p(where, st.Kind); ok {
			st.Where = c
			return nil
		}
	}
	return report.Errorf(report.ParseError,
		"unsupported WHERE clause %q (use col = 'value', col IN ('a','b'), col IS [NOT] NULL or, for DELETE, col > number)", where)
}

func submatch(re *regexp.Regexp, s string) map[string]string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for i, n := range re.SubexpNames() {
		if n != "" {
			out[n] = m[i]
		}
	}
	return out
}

func parseList(list string) ([]string, bool) {
	var vals []string
	rest := list
	for strings.TrimSpace(rest) != "" {
		m := listItemRe.FindStringSubmatchIndex(rest)
		if m == nil {
			return nil, false
		}
		vals = append(vals, unquoteLiteral(rest[m[2]:m[3]]))
		rest = rest[m[1]:]
	}
	return vals, len(vals) > 0
}

// ident strips identifier quoting: "name", `name` or [name].
func ident(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch {
		case s[0] == '"' && s[len(s)-1] == '"',
			s[0] == '`' && s[len(s)-1] == '`',
			s[0] == '[' && s[len(s)-1] == ']':
			return s[1 : len(s)-1]
		}
	}
	return s
}

// unquoteLiteral turns 'it''s' into it's and leaves numbers as written.
func unquoteLiteral(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
