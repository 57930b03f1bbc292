// Package command turns a free-text cleaning instruction into a single table
// mutation. Instructions are classified by trying ordered lists of matchers,
// one list per intent class, and the first match wins.
package command

import (
	"regexp"
	"strings"

	"github.com/KaramelBytes/datafix-cli/internal/stats"
)

// Kind identifies the mutation an instruction asks for.
type Kind string

const (
	FillMissing   Kind = "FILL_MISSING"
	ReplaceValue  Kind = "REPLACE_VALUE"
	ChangeCase    Kind = "CHANGE_CASE"
	FillStatistic Kind = "FILL_MISSING_NUMERIC"
	Sort          Kind = "SORT"
	Filter        Kind = "FILTER_ROWS"
)

// Filter operators.
const (
	OpEq       = "eq"
	OpNe       = "ne"
	OpGt       = "gt"
	OpGe       = "ge"
	OpLt       = "lt"
	OpLe       = "le"
	OpContains = "contains"
	OpEmpty    = "empty"
	OpNotEmpty = "notempty"
)

// Intent is the parsed form of an instruction.
type Intent struct {
	Kind   Kind
	Column string
	// Value is the new value for fills and replacements and the operand for
	// filters.
	Value string
	// Old is the value being replaced.
	Old        string
	Method     stats.Method
	Case       string
	Descending bool
	// Keep is true when matching rows are kept and the rest dropped.
	Keep bool
	Op   string
}

// matcher recognizes one phrasing of an instruction.
type matcher func(string) (Intent, bool)

var tokens = strings.NewReplacer(
	"COL", `(?P<col>'[^']*'|"[^"]*"|`+"`[^`]*`"+`|[\w.\-]+)`,
	"OLD", `(?P<old>'[^']*'|"[^"]*"|\S+)`,
	"VAL", `(?P<val>'[^']*'|"[^"]*"|.+?)`,
	"STAT", `(?P<stat>mean|median|mode|average|avg)`,
	"DIR", `(?P<dir>ascending|descending|asc|desc)`,
	"CASE", `(?P<case>upper|lower|title)`,
	"VERB", `(?P<verb>remove|delete|drop|exclude|keep|filter)`,
	"OP", `(?P<op>>=|<=|!=|<>|==|=|>|<|is not equal to|is greater than or equal to|is less than or equal to|greater than or equal to|less than or equal to|is greater than|is less than|greater than|less than|is above|is below|above|below|more than|over|under|does not equal|not equals?|equals?|is not|is|contains)`,
	"EMPTY", `(?:missing|null|nulls|empty|blank|blanks|nan|na|n/a)`,
)

// pattern expands the token placeholders and anchors the expression. THECOL
// expands to text containing COL, so it is replaced first. ANYCOL captures an
// unquoted multi-word name up to the keyword that follows it.
func pattern(expr string) *regexp.Regexp {
	expr = strings.ReplaceAll(expr, "ANYCOL", `(?:the\s+)?(?:column\s+)?(?P<col>.+?)(?:\s+column)?`)
	expr = strings.ReplaceAll(expr, "THECOL", `(?:the\s+)?(?:column\s+)?COL(?:\s+column)?`)
	return regexp.MustCompile(`(?i)^` + tokens.Replace(expr) + `$`)
}

// groups returns the named captures of re in s with quotes removed.
func groups(re *regexp.Regexp, s string) (map[string]string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	out := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" && m[i] != "" {
			out[name] = m[i]
		}
	}
	return out, true
}

// unquote strips one pair of matching quotes and surrounding space.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		f, l := s[0], s[len(s)-1]
		if (f == '\'' || f == '"' || f == '`') && f == l {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func isQuoted(s string) bool { return unquote(s) != strings.TrimSpace(s) }

// isStatWord reports whether an unquoted value names a statistic, as in
// "with the mean value".
func isStatWord(raw string) bool {
	if isQuoted(raw) {
		return false
	}
	w := strings.ToLower(strings.TrimSpace(raw))
	w = strings.TrimPrefix(w, "the ")
	w = strings.TrimPrefix(w, "column ")
	w = strings.TrimSuffix(w, " value")
	_, err := stats.ParseMethod(w)
	return err == nil
}

var (
	caseWords  = regexp.MustCompile(`(?i)^(upper|lower|title)\s*case$`)
	emptyWords = regexp.MustCompile(`(?i)^(missing|null|nulls|empty|blank|blanks|nan|na|n/a)$`)
)

func fillMatcher(expr string) matcher {
	re := pattern(expr)
	return func(s string) (Intent, bool) {
		g, ok := groups(re, s)
		if !ok || isStatWord(g["val"]) {
			return Intent{}, false
		}
		return Intent{Kind: FillMissing, Column: unquote(g["col"]), Value: unquote(g["val"])}, true
	}
}

func replaceMatcher(expr string) matcher {
	re := pattern(expr)
	return func(s string) (Intent, bool) {
		g, ok := groups(re, s)
		if !ok || caseWords.MatchString(strings.TrimSpace(g["val"])) {
			return Intent{}, false
		}
		// "replace missing values in X with the mean" belongs to the statistic class.
		if !isQuoted(g["old"]) && emptyWords.MatchString(g["old"]) {
			return Intent{}, false
		}
		return Intent{Kind: ReplaceValue, Column: unquote(g["col"]), Old: unquote(g["old"]), Value: unquote(g["val"])}, true
	}
}

func caseMatcher(expr string, fixed string) matcher {
	re := pattern(expr)
	return func(s string) (Intent, bool) {
		g, ok := groups(re, s)
		if !ok {
			return Intent{}, false
		}
		mode := fixed
		if mode == "" {
			mode = strings.ToLower(g["case"])
		}
		return Intent{Kind: ChangeCase, Column: unquote(g["col"]), Case: mode}, true
	}
}

func statMatcher(expr string) matcher {
	re := pattern(expr)
	return func(s string) (Intent, bool) {
		g, ok := groups(re, s)
		if !ok {
			return Intent{}, false
		}
		m, err := stats.ParseMethod(g["stat"])
		if err != nil {
			return Intent{}, false
		}
		return Intent{Kind: FillStatistic, Column: unquote(g["col"]), Method: m}, true
	}
}

func sortMatcher(expr string) matcher {
	re := pattern(expr)
	return func(s string) (Intent, bool) {
		g, ok := groups(re, s)
		if !ok {
			return Intent{}, false
		}
		return Intent{Kind: Sort, Column: unquote(g["col"]), Descending: strings.HasPrefix(strings.ToLower(g["dir"]), "desc")}, true
	}
}

func filterMatcher(expr string, fixedOp string) matcher {
	re := pattern(expr)
	return func(s string) (Intent, bool) {
		g, ok := groups(re, s)
		if !ok {
			return Intent{}, false
		}
		verb := strings.ToLower(g["verb"])
		in := Intent{
			Kind:   Filter,
			Column: unquote(g["col"]),
			Value:  unquote(g["val"]),
			Keep:   verb == "keep" || verb == "filter",
			Op:     fixedOp,
		}
		if in.Op == "" {
			in.Op = opCode(g["op"])
		}
		if (in.Op == OpEq || in.Op == OpNe) && !isQuoted(g["val"]) {
			switch strings.ToLower(in.Value) {
			case "empty", "missing", "null", "blank":
				if in.Op == OpEq {
					in.Op = OpEmpty
				} else {
					in.Op = OpNotEmpty
				}
				in.Value = ""
			}
		}
		return in, in.Op != ""
	}
}

func opCode(op string) string {
	op = strings.Join(strings.Fields(strings.ToLower(op)), " ")
	switch op {
	case "=", "==", "is", "equal", "equals":
		return OpEq
	case "!=", "<>", "is not", "is not equal to", "does not equal", "not equal", "not equals":
		return OpNe
	case ">", "greater than", "is greater than", "above", "is above", "more than", "over":
		return OpGt
	case ">=", "greater than or equal to", "is greater than or equal to":
		return OpGe
	case "<", "less than", "is less than", "below", "is below", "under":
		return OpLt
	case "<=", "less than or equal to", "is less than or equal to":
		return OpLe
	case "contains":
		return OpContains
	}
	return ""
}

// classes lists the intent classes in priority order; within a class the
// patterns go from specific to permissive.
var classes = [][]matcher{
	{
		fillMatcher(`(?:fill|replace|change|set)\s+(?:in\s+)?(?:all\s+)?(?:the\s+)?EMPTY\s+(?:values?\s+|cells?\s+|entries\s+|fields?\s+)?(?:in|of|for)\s+THECOL\s+(?:with|to|as|by)\s+VAL`),
		fillMatcher(`(?:fill|replace|change|set)\s+(?:all\s+)?(?:the\s+)?EMPTY\s+(?:values?\s+|cells?\s+)?(?:with|to|as|by)\s+VAL\s+(?:in|for)\s+THECOL`),
		fillMatcher(`(?:fill|set)\s+THECOL\s+EMPTY\s+(?:values?\s+|cells?\s+)?(?:with|to|as)\s+VAL`),
		fillMatcher(`(?:in|for)\s+THECOL,?\s+(?:fill|replace|set)\s+(?:all\s+)?(?:the\s+)?EMPTY\s+(?:values?\s+|cells?\s+)?(?:with|to|as|by)\s+VAL`),
		fillMatcher(`(?:fill|set)\s+(?:all\s+)?EMPTY\s+THECOL\s+(?:values?\s+|cells?\s+)?(?:with|to|as)\s+VAL`),
		fillMatcher(`fill\s+(?:in\s+)?THECOL\s+with\s+VAL`),
		fillMatcher(`(?:fill|replace|change|set)\s+(?:in\s+)?(?:all\s+)?(?:the\s+)?EMPTY\s+(?:values?\s+|cells?\s+|entries\s+|fields?\s+)?(?:in|of|for)\s+ANYCOL\s+(?:with|to|as|by)\s+VAL`),
	},
	{
		replaceMatcher(`(?:replace|change|convert)\s+(?:all\s+)?OLD\s+(?:values?\s+)?(?:with|by|to|into)\s+VAL\s+in\s+THECOL`),
		replaceMatcher(`(?:in|for)\s+THECOL,?\s+(?:replace|change|convert)\s+(?:all\s+)?OLD\s+(?:values?\s+)?(?:with|by|to|into)\s+VAL`),
		replaceMatcher(`(?:replace|change)\s+(?:all\s+)?OLD\s+(?:values?\s+)?in\s+THECOL\s+(?:with|by|to)\s+VAL`),
		replaceMatcher(`(?:replace|change)\s+THECOL\s+OLD\s+(?:with|by|to)\s+VAL`),
	},
	{
		caseMatcher(`(?:convert|change|make|transform|set|turn)\s+(?:all\s+)?(?:values\s+in\s+)?THECOL(?:\s+values)?\s+(?:to|into)\s+CASE\s*case`, ""),
		caseMatcher(`(?:make|convert)\s+(?:all\s+)?THECOL\s+CASE\s*case`, ""),
		caseMatcher(`CASE\s*case\s+(?:all\s+)?(?:values\s+in\s+)?THECOL`, ""),
		caseMatcher(`(?:capitalize|capitalise)\s+(?:all\s+)?(?:values\s+in\s+)?THECOL`, "title"),
	},
	{
		statMatcher(`(?:fill|impute|replace)\s+(?:in\s+)?(?:all\s+)?(?:the\s+)?EMPTY\s+(?:values?\s+|cells?\s+)?(?:in|of|for)\s+THECOL\s+(?:with|using|by)\s+(?:the\s+)?(?:column\s+)?STAT(?:\s+value)?`),
		statMatcher(`(?:fill|impute)\s+THECOL\s+(?:EMPTY\s+)?(?:values?\s+)?(?:with|using|by)\s+(?:the\s+)?STAT(?:\s+value)?`),
		statMatcher(`(?:fill|impute|replace)\s+(?:the\s+)?EMPTY\s+(?:values?\s+)?(?:with|using)\s+(?:the\s+)?STAT\s+(?:in|of|for)\s+THECOL`),
		statMatcher(`(?:fill|impute|replace)\s+(?:in\s+)?(?:all\s+)?(?:the\s+)?EMPTY\s+(?:values?\s+|cells?\s+)?(?:in|of|for)\s+ANYCOL\s+(?:with|using|by)\s+(?:the\s+)?(?:column\s+)?STAT(?:\s+value)?`),
	},
	{
		sortMatcher(`sort\s+(?:the\s+)?(?:table\s+|data\s+|rows\s+|dataset\s+)?by\s+THECOL(?:\s+(?:in\s+)?DIR(?:\s+order)?)?`),
		sortMatcher(`(?:order|arrange)\s+(?:the\s+)?(?:table\s+|data\s+|rows\s+)?by\s+THECOL(?:\s+(?:in\s+)?DIR(?:\s+order)?)?`),
		sortMatcher(`sort\s+THECOL(?:\s+(?:in\s+)?DIR(?:\s+order)?)?`),
	},
	{
		filterMatcher(`(?:remove|delete|drop|exclude)\s+(?:all\s+)?(?:the\s+)?rows?\s+(?:with|where|having)\s+EMPTY\s+(?:values?\s+)?(?:in|for)\s+THECOL`, OpEmpty),
		filterMatcher(`VERB\s+(?:only\s+)?(?:all\s+)?(?:the\s+)?rows?\s+(?:where|with|whose|if|having|that have)\s+THECOL\s+OP\s+VAL`, ""),
		filterMatcher(`VERB\s+(?:only\s+)?(?:all\s+)?(?:the\s+)?rows?\s+(?:where|with|whose|if|having)\s+THECOL\s+(?:is\s+)?EMPTY`, OpEmpty),
	},
}

// Parse classifies an instruction. It reports false when no class matches.
func Parse(instruction string) (Intent, bool) {
	s := clean(instruction)
	if s == "" {
		return Intent{}, false
	}
	for _, class := range classes {
		for _, m := range class {
			if in, ok := m(s); ok {
				return in, true
			}
		}
	}
	return Intent{}, false
}

// clean trims whitespace and a sentence-ending period.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if n := len(s); n > 1 && (s[n-1] == '.' || s[n-1] == '!') && (s[n-2] < '0' || s[n-2] > '9') {
		s = strings.TrimSpace(s[:n-1])
	}
	return s
}
