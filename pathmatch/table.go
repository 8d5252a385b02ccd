package pathmatch

import "fmt"

// Route связывает скомпилированный шаблон со значением
type Route[T any] struct {
	Pattern Pattern
	Value   T
}

// Table - упорядоченная таблица шаблонов. Lookup возвращает первое совпадение,
// поэтому литеральные шаблоны нужно добавлять раньше параметрических.
type Table[T any] struct {
	routes []Route[T]
}

// NewTable создает пустую таблицу
func NewTable[T any]() *Table[T] {
	return &Table[T]{}
}

// Add компилирует шаблон и добавляет его в конец таблицы
func (t *Table[T]) Add(pattern string, value T) error {
	p, err := Compile(pattern)
	if err != nil {
		return err
	}
	for _, r := range t.routes {
		if r.Pattern.String() == pattern {
			return fmt.Errorf("pattern %q registered twice", pattern)
		}
	}
	t.routes = append(t.routes, Route[T]{Pattern: p, Value: value})
	return nil
}

// MustAdd как Add, но паникует при ошибке
func (t *Table[T]) MustAdd(pattern string, value T) {
	if err := t.Add(pattern, value); err != nil {
		panic(err)
	}
}

// Lookup возвращает значение первого шаблона, совпавшего с путем
func (t *Table[T]) Lookup(path string) (T, Params, bool) {
	for _, r := range t.routes {
		if params, ok := r.Pattern.Match(path); ok {
			return r.Value, params, true
		}
	}
	var zero T
	return zero, nil, false
}

// Len возвращает количество зарегистрированных шаблонов
func (t *Table[T]) Len() int {
	return len(t.routes)
}

// Routes возвращает копию таблицы в порядке регистрации
func (t *Table[T]) Routes() []Route[T] {
	out := make([]Route[T], len(t.routes))
	copy(out, t.routes)
	return out
}
