// Package filter implements the boolean action-filter expression used to
// select which clients contribute to the aggregate report.
package filter

import (
	"strings"

	"mailsift/internal/domain"
)

// Expression is a compiled filter: a disjunction of conjunctions of action
// names, e.g. "PREGREET&DNSBL|HANGUP" reads (PREGREET and DNSBL) or HANGUP.
// The zero value matches every client.
type Expression struct {
	disjuncts [][]string
}

// Compile parses the textual form. An empty string compiles to match-all.
// Malformed input never fails: empty literals and empty disjuncts are dropped
// as vacuously satisfied, so "A&|B" behaves like "A|B" and "|" matches all.
func Compile(expr string) Expression {
	if expr == "" {
		return Expression{}
	}
	disjuncts := make([][]string, 0, strings.Count(expr, "|")+1)
	for _, disjunct := range strings.Split(expr, "|") {
		var literals []string
		for _, literal := range strings.Split(disjunct, "&") {
			literal = strings.TrimSpace(literal)
			if literal != "" {
				literals = append(literals, literal)
			}
		}
		disjuncts = append(disjuncts, literals)
	}
	return Expression{disjuncts: disjuncts}
}

// Matches reports whether the client's action counts satisfy the expression:
// at least one disjunct must have all of its literals present with a nonzero
// count.
func (e Expression) Matches(actions map[domain.ActionKind]int64) bool {
	if e.disjuncts == nil {
		return true
	}
	for _, literals := range e.disjuncts {
		satisfied := true
		for _, literal := range literals {
			if !literalHolds(literal, actions) {
				satisfied = false
				break
			}
		}
		if satisfied {
			return true
		}
	}
	return false
}

// literalHolds uses token-prefix containment against the canonical action
// names, so "NOQUEUE" covers every NOQUEUE sub-verdict while "NOQUEUE 450
// deep protocol test reconnection" still matches exactly.
func literalHolds(literal string, actions map[domain.ActionKind]int64) bool {
	for kind, count := range actions {
		if count <= 0 {
			continue
		}
		name := kind.Name()
		if name == literal || strings.HasPrefix(name, literal+" ") {
			return true
		}
	}
	return false
}
