package capture

import (
	"fmt"
	"slices"

	"github.com/pkordes/carless/internal/domain"
)

// Option is anything a picker can offer: a comparable value with a display label.
type Option interface {
	comparable
	String() string
}

// Selectable is the state behind a single-choice picker. It knows nothing
// about rendering; a view lists Options, calls Select, and may subscribe with
// OnChange.
type Selectable[T Option] struct {
	options  []T
	selected T
	has      bool
	onChange func(T, bool)
}

// NewSelectable returns a picker over options with nothing selected.
func NewSelectable[T Option](options []T) *Selectable[T] {
	return &Selectable[T]{options: slices.Clone(options)}
}

// Options returns the choices in display order.
func (s *Selectable[T]) Options() []T { return slices.Clone(s.options) }

// Labels returns the display label of every option.
func (s *Selectable[T]) Labels() []string {
	labels := make([]string, len(s.options))
	for i, o := range s.options {
		labels[i] = o.String()
	}
	return labels
}

// Select picks v. Values outside Options are rejected.
func (s *Selectable[T]) Select(v T) error {
	if !slices.Contains(s.options, v) {
		return fmt.Errorf("%w: %q is not a valid choice", domain.ErrValidation, v.String())
	}
	s.selected, s.has = v, true
	if s.onChange != nil {
		s.onChange(v, true)
	}
	return nil
}

// Clear removes the selection.
func (s *Selectable[T]) Clear() {
	var zero T
	s.selected, s.has = zero, false
	if s.onChange != nil {
		s.onChange(zero, false)
	}
}

// Selected returns the current choice, if any.
func (s *Selectable[T]) Selected() (T, bool) { return s.selected, s.has }

// OnChange registers fn to be called after every Select or Clear.
func (s *Selectable[T]) OnChange(fn func(v T, ok bool)) { s.onChange = fn }

// Imaged is implemented by options that carry an icon, such as domain.Mode.
type Imaged interface {
	ImageName() string
}

// ImageNames returns the icon name of each option, or "" for options without one.
func ImageNames[T Option](s *Selectable[T]) []string {
	names := make([]string, len(s.options))
	for i, o := range s.options {
		if im, ok := any(o).(Imaged); ok {
			names[i] = im.ImageName()
		}
	}
	return names
}
