// Package pathmatch компилирует шаблоны путей вида "/plugins/:name" в
// последовательность типизированных сегментов и сопоставляет с ними пути.
package pathmatch

import (
	"errors"
	"fmt"
	"strings"
)

// SegmentKind - тип сегмента шаблона
type SegmentKind int

const (
	Literal SegmentKind = iota // сегмент должен совпасть буквально
	Param                      // сегмент захватывает любое непустое значение
)

// String возвращает строковое представление типа сегмента
func (k SegmentKind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Param:
		return "param"
	default:
		return "unknown"
	}
}

// Segment - один сегмент скомпилированного шаблона.
// Для Literal поле Value содержит текст, для Param - имя параметра.
type Segment struct {
	Kind  SegmentKind
	Value string
}

// Params содержит значения захваченных параметров
type Params map[string]string

// Get возвращает значение параметра или пустую строку
func (p Params) Get(name string) string {
	if p == nil {
		return ""
	}
	return p[name]
}

// Pattern - скомпилированный шаблон пути
type Pattern struct {
	raw      string
	segments []Segment
}

var (
	ErrEmptyPattern   = errors.New("pattern is empty")
	ErrNoLeadingSlash = errors.New("pattern must start with '/'")
)

// Compile разбирает шаблон в последовательность сегментов.
// Параметрический сегмент начинается с ':' ("/plugins/:name").
func Compile(pattern string) (Pattern, error) {
	if pattern == "" {
		return Pattern{}, ErrEmptyPattern
	}
	if !strings.HasPrefix(pattern, "/") {
		return Pattern{}, fmt.Errorf("%w: %q", ErrNoLeadingSlash, pattern)
	}

	parts := splitPath(pattern)
	segments := make([]Segment, 0, len(parts))
	seen := make(map[string]struct{})
	for _, part := range parts {
		if part == "" {
			return Pattern{}, fmt.Errorf("pattern %q contains an empty segment", pattern)
		}
		if !strings.HasPrefix(part, ":") {
			segments = append(segments, Segment{Kind: Literal, Value: part})
			continue
		}
		name := part[1:]
		if name == "" {
			return Pattern{}, fmt.Errorf("pattern %q has a parameter without a name", pattern)
		}
		if _, dup := seen[name]; dup {
			return Pattern{}, fmt.Errorf("pattern %q declares parameter %q twice", pattern, name)
		}
		seen[name] = struct{}{}
		segments = append(segments, Segment{Kind: Param, Value: name})
	}

	return Pattern{raw: pattern, segments: segments}, nil
}

// MustCompile как Compile, но паникует при ошибке. Для статических таблиц.
func MustCompile(pattern string) Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// String возвращает исходный шаблон
func (p Pattern) String() string {
	return p.raw
}

// Segments возвращает копию сегментов шаблона
func (p Pattern) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// IsLiteral возвращает true, если в шаблоне нет параметров
func (p Pattern) IsLiteral() bool {
	for _, s := range p.segments {
		if s.Kind == Param {
			return false
		}
	}
	return true
}

// Match сопоставляет путь с шаблоном. Количество сегментов должно совпадать,
// литералы сравниваются точно, параметр принимает любой непустой сегмент.
// Пути "/about/" и "//" не совпадают с "/about" и "/".
func (p Pattern) Match(path string) (Params, bool) {
	if !strings.HasPrefix(path, "/") {
		return nil, false
	}
	parts := splitPath(path)
	if len(parts) != len(p.segments) {
		return nil, false
	}

	var params Params
	for i, seg := range p.segments {
		part := parts[i]
		switch seg.Kind {
		case Literal:
			if part != seg.Value {
				return nil, false
			}
		case Param:
			if part == "" {
				return nil, false
			}
			if params == nil {
				params = make(Params, len(p.segments))
			}
			params[seg.Value] = part
		}
	}
	if params == nil {
		params = Params{}
	}
	return params, true
}

// splitPath режет путь на сегменты после ведущего слэша. Для "/" возвращает
// пустой срез, лишние слэши дают пустые сегменты.
func splitPath(path string) []string {
	if path == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}
