package pagemeta

import (
	"fmt"
	"strings"

	"hubgateway/pathmatch"
)

// Metadata - метаданные страницы для SEO и заголовков
type Metadata struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords"`
}

// Descriptor связывает шаблон пути с метаданными
type Descriptor struct {
	Pattern string   `yaml:"pattern"`
	Meta    Metadata `yaml:"meta"`
}

// Match - результат сопоставления пути
type Match struct {
	Pattern string
	Meta    Metadata
	Params  pathmatch.Params
}

// Matcher сопоставляет путь со статическим реестром дескрипторов.
// Реестр компилируется один раз и далее только читается.
type Matcher struct {
	table *pathmatch.Table[Metadata]
}

// NewMatcher компилирует дескрипторы в порядке их следования
func NewMatcher(descriptors ...Descriptor) (*Matcher, error) {
	table := pathmatch.NewTable[Metadata]()
	for i, d := range descriptors {
		if err := table.Add(d.Pattern, d.Meta); err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", i, err)
		}
	}
	return &Matcher{table: table}, nil
}

// MustNewMatcher как NewMatcher, но паникует при ошибке
func MustNewMatcher(descriptors ...Descriptor) *Matcher {
	m, err := NewMatcher(descriptors...)
	if err != nil {
		panic(err)
	}
	return m
}

// Match возвращает метаданные первого совпавшего дескриптора
func (m *Matcher) Match(path string) (Metadata, bool) {
	meta, _, ok := m.table.Lookup(path)
	return meta, ok
}

// Resolve как Match, но также возвращает шаблон и параметры
// и подставляет параметры в метаданные.
func (m *Matcher) Resolve(path string) (Match, bool) {
	for _, r := range m.table.Routes() {
		params, ok := r.Pattern.Match(path)
		if !ok {
			continue
		}
		return Match{
			Pattern: r.Pattern.String(),
			Meta:    Render(r.Value, params),
			Params:  params,
		}, true
	}
	return Match{}, false
}

// Render подставляет значения параметров вместо "{name}" в текстовые поля
func Render(meta Metadata, params pathmatch.Params) Metadata {
	if len(params) == 0 {
		return meta
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)

	out := Metadata{
		Title:       r.Replace(meta.Title),
		Description: r.Replace(meta.Description),
	}
	if len(meta.Keywords) > 0 {
		out.Keywords = make([]string, len(meta.Keywords))
		for i, kw := range meta.Keywords {
			out.Keywords[i] = r.Replace(kw)
		}
	}
	return out
}
