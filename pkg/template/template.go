// Package template provides slot-based text templates for code generation.
// Templates use {name} placeholders which are substituted at render time;
// rendering fails if any placeholder is left unresolved.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var slotPattern = regexp.MustCompile(`\{(\w+)\}`)

// PlaceholderError is returned when a template references a slot the caller
// provided no substitution for. The rendered text is never emitted partially.
type PlaceholderError struct {
	Slot string
}

func (e *PlaceholderError) Error() string {
	return fmt.Sprintf("template placeholder {%s} has no substitution", e.Slot)
}

// Template is a piece of text with named {slot} placeholders.
type Template struct {
	text  string
	slots []string
}

// New parses the placeholder slots out of text and returns a Template.
func New(text string) *Template {
	matches := slotPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool)
	slots := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			slots = append(slots, m[1])
		}
	}
	return &Template{text: text, slots: slots}
}

// Text returns the raw template text with placeholders intact.
func (t *Template) Text() string {
	return t.text
}

// Slots returns the distinct placeholder names in declaration order.
func (t *Template) Slots() []string {
	out := make([]string, len(t.slots))
	copy(out, t.slots)
	return out
}

// Has reports whether the template references the given slot.
func (t *Template) Has(slot string) bool {
	for _, s := range t.slots {
		if s == slot {
			return true
		}
	}
	return false
}

// Render substitutes every slot with its value from subs.
// A slot missing from subs yields a *PlaceholderError.
func (t *Template) Render(subs map[string]string) (string, error) {
	for _, slot := range t.slots {
		if _, ok := subs[slot]; !ok {
			return "", &PlaceholderError{Slot: slot}
		}
	}

	out := t.text
	for slot, value := range subs {
		out = strings.ReplaceAll(out, "{"+slot+"}", value)
	}
	return out, nil
}

// MustRender is Render for templates whose substitutions are known complete
// at compile time. It panics on a missing slot.
func (t *Template) MustRender(subs map[string]string) string {
	out, err := t.Render(subs)
	if err != nil {
		panic(err)
	}
	return out
}
