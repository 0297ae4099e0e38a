package questions

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
)

// Prompt asks one question and returns the typed answer.
type Prompt interface {
	Ask(ctx context.Context) (any, error)
}

// Fixed supplies an answer without asking anything.
type Fixed struct {
	Value any
}

func (f Fixed) Ask(_ context.Context) (any, error) {
	return f.Value, nil
}

// Input prompts for a free-form string.
type Input struct {
	Title    string
	Default  string
	Validate func(string) error
}

func (p Input) Ask(ctx context.Context) (any, error) {
	value := p.Default

	input := huh.NewInput().
		Title(p.Title).
		Value(&value)
	if p.Validate != nil {
		input = input.Validate(p.Validate)
	}

	err := huh.NewForm(huh.NewGroup(input)).RunWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Int prompts for an integer within [Min, Max]. Max 0 means unbounded.
type Int struct {
	Title   string
	Min     int
	Max     int
	Default int
}

func (p Int) Ask(ctx context.Context) (any, error) {
	text := ""
	if p.Default != 0 {
		text = strconv.Itoa(p.Default)
	}

	input := huh.NewInput().
		Title(p.Title).
		Value(&text).
		Validate(func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("please enter a valid integer")
			}
			if n < p.Min {
				return fmt.Errorf("please enter a value of at least %d", p.Min)
			}
			if p.Max > 0 && n > p.Max {
				return fmt.Errorf("please enter a value of at most %d", p.Max)
			}
			return nil
		})

	if err := huh.NewForm(huh.NewGroup(input)).RunWithContext(ctx); err != nil {
		return nil, err
	}

	n, err := strconv.Atoi(text)
	if err != nil {
		return nil, fmt.Errorf("invalid integer answer %q: %w", text, err)
	}
	return n, nil
}

// Select picks one answer from a fixed set.
type Select struct {
	Title   string
	Options []string
	Default string
}

func (p Select) Ask(ctx context.Context) (any, error) {
	value := p.Default
	if value == "" && len(p.Options) > 0 {
		value = p.Options[0]
	}

	sel := huh.NewSelect[string]().
		Title(p.Title).
		Options(huh.NewOptions(p.Options...)...).
		Value(&value)

	if err := huh.NewForm(huh.NewGroup(sel)).RunWithContext(ctx); err != nil {
		return nil, err
	}
	return value, nil
}

// Confirm asks a yes/no question.
type Confirm struct {
	Title   string
	Default bool
}

func (p Confirm) Ask(ctx context.Context) (any, error) {
	value := p.Default

	confirm := huh.NewConfirm().
		Title(p.Title).
		Value(&value)

	if err := huh.NewForm(huh.NewGroup(confirm)).RunWithContext(ctx); err != nil {
		return nil, err
	}
	return value, nil
}
