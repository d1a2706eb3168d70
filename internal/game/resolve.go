// Package game holds the rules of Guess Who: how a question is answered for a member, which questions are worth
// offering for a board, and how a game moves from one turn to the next.
package game

import (
	"slices"
	"strings"

	"github.com/myrjola/guesswho/internal/models"
)

// Resolve answers question for member.
//
// The attribute path is walked through the member's attribute tree. A missing step answers "no". Sequences answer
// "yes" when they contain the question's value, text answers "yes" on exact equality, and booleans answer with
// their own value regardless of the question's value. Every other value type answers "no".
func Resolve(question models.Question, member models.Member) bool {
	return resolveAttributes(question, member.Attributes())
}

func resolveAttributes(question models.Question, attributes map[string]any) bool {
	value, ok := lookup(attributes, question.AttributePath)
	if !ok {
		return false
	}

	switch v := value.(type) {
	case bool:
		return v
	case string:
		return question.AttributeValue != nil && v == *question.AttributeValue
	case []string:
		return question.AttributeValue != nil && slices.Contains(v, *question.AttributeValue)
	case []any:
		if question.AttributeValue == nil {
			return false
		}
		return slices.ContainsFunc(v, func(item any) bool {
			s, isString := item.(string)
			return isString && s == *question.AttributeValue
		})
	default:
		return false
	}
}

// lookup walks the dot-separated path through nested maps.
func lookup(attributes map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = attributes
	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = node[key]; !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}
