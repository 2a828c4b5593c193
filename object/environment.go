package object

// Environment is one scope in a chain of scopes. Functions keep a pointer to
// the environment they were defined in, so an Environment lives as long as any
// closure or active call still refers to it.
type Environment struct {
	store map[string]Object
	outer *Environment
}

// NewEnvironment creates a new, top-level environment.
func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]Object)}
}

// NewEnclosedEnvironment creates a new environment that is enclosed by an outer one.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

// Get retrieves an object by name, checking outer scopes if necessary.
func (e *Environment) Get(name string) (Object, bool) {
	if obj, ok := e.store[name]; ok {
		return obj, true
	}
	if e.outer != nil {
		return e.outer.Get(name)
	}
	return nil, false
}

// Set binds name in this environment only. A binding with the same name in an
// outer scope is shadowed, never modified.
func (e *Environment) Set(name string, val Object) Object {
	e.store[name] = val
	return val
}
