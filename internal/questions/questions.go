// Package questions models interactive configuration as a tree of
// prompts.
//
// A tree is a slice of tagged nodes: a leaf prompt with a stable answer
// key, an unconditional group, or a conditional group gated by a
// predicate over a previously collected answer. Collect walks the tree
// once, depth first, filling an Answers index; a conditional subtree is
// skipped entirely when its predicate evaluates false against the
// answers gathered so far.
package questions

import (
	"context"
	"fmt"
)

// Kind discriminates the node variants of a question tree.
type Kind int

const (
	// KindPrompt is a leaf that asks one question.
	KindPrompt Kind = iota
	// KindGroup is an unconditional group of child nodes.
	KindGroup
	// KindConditional is a group asked only when its predicate holds.
	KindConditional
)

// Node is one vertex of a question tree. Only the fields belonging to
// its Kind are set.
type Node struct {
	Kind Kind

	// Key and Prompt are set for KindPrompt.
	Key    string
	Prompt Prompt

	// Children are set for KindGroup and KindConditional.
	Children []Node

	// When is set for KindConditional.
	When Predicate
}

// Predicate gates a conditional group on an earlier answer.
type Predicate struct {
	// Key is the answer key the predicate inspects.
	Key string
	// Accept decides whether the gated group is asked.
	Accept func(v any) bool
}

// NewPrompt builds a leaf node.
func NewPrompt(key string, p Prompt) Node {
	return Node{Kind: KindPrompt, Key: key, Prompt: p}
}

// NewGroup builds an unconditional group.
func NewGroup(children ...Node) Node {
	return Node{Kind: KindGroup, Children: children}
}

// NewConditional builds a group asked only when pred holds.
func NewConditional(pred Predicate, children ...Node) Node {
	return Node{Kind: KindConditional, When: pred, Children: children}
}

// WhenTrue gates on a boolean answer being true.
func WhenTrue(key string) Predicate {
	return Predicate{
		Key: key,
		Accept: func(v any) bool {
			b, ok := v.(bool)
			return ok && b
		},
	}
}

// WhenEquals gates on an answer comparing equal to want.
func WhenEquals(key string, want any) Predicate {
	return Predicate{
		Key: key,
		Accept: func(v any) bool {
			return v == want
		},
	}
}

// Answers indexes collected answers by stable key, preserving the
// order they were collected in.
type Answers struct {
	values map[string]any
	order  []string
}

// NewAnswers creates an empty answer index.
func NewAnswers() *Answers {
	return &Answers{values: make(map[string]any)}
}

func (a *Answers) set(key string, v any) {
	if _, exists := a.values[key]; !exists {
		a.order = append(a.order, key)
	}
	a.values[key] = v
}

// Lookup returns the raw answer for a key.
func (a *Answers) Lookup(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Keys returns every answered key in collection order.
func (a *Answers) Keys() []string {
	keys := make([]string, len(a.order))
	copy(keys, a.order)
	return keys
}

// String returns the answer for key as a string, or "".
func (a *Answers) String(key string) string {
	if v, ok := a.values[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the answer for key as an int, or 0.
func (a *Answers) Int(key string) int {
	if v, ok := a.values[key].(int); ok {
		return v
	}
	return 0
}

// Bool returns the answer for key as a bool, or false.
func (a *Answers) Bool(key string) bool {
	if v, ok := a.values[key].(bool); ok {
		return v
	}
	return false
}

// Collect walks the nodes in order, asking each prompt and recording
// its answer. It returns the first prompt error unchanged, so callers
// can recognize a user abort.
func Collect(ctx context.Context, nodes []Node, answers *Answers) error {
	for _, n := range nodes {
		switch n.Kind {
		case KindPrompt:
			v, err := n.Prompt.Ask(ctx)
			if err != nil {
				return err
			}
			answers.set(n.Key, v)
		case KindGroup:
			if err := Collect(ctx, n.Children, answers); err != nil {
				return err
			}
		case KindConditional:
			v, ok := answers.Lookup(n.When.Key)
			if !ok || !n.When.Accept(v) {
				continue
			}
			if err := Collect(ctx, n.Children, answers); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown question node kind %d", n.Kind)
		}
	}
	return nil
}
