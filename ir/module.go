package ir

// CurrentFormat is the interchange format version this package is
// written against. Files with the same major version and an equal or
// lower minor version are accepted.
const CurrentFormat = "1.0.0"

// Module is a whole translation unit: globals plus functions.
type Module struct {
	Name    string
	Format  string
	Globals []*Global
	Funcs   []*Function
}

// NewModule returns an empty module carrying the current format
// version.
func NewModule(name string) *Module {
	return &Module{Name: name, Format: CurrentFormat}
}

// NewFunc adds a function with the given signature and attributes and
// returns it. Parameters not covered by paramNames are named p0, p1
// and so on. The function starts without blocks; it stays a
// declaration until blocks are added.
func (m *Module) NewFunc(name string, sig *FuncType, attrs Attr, paramNames ...string) *Function {
	f := &Function{Sig: sig, Attrs: attrs, mod: m, typ: PtrTo(sig)}
	f.name = name
	f.defineParams(paramNames)
	m.Funcs = append(m.Funcs, f)
	return f
}

// NewGlobal adds a module variable holding one elem cell.
func (m *Module) NewGlobal(name string, elem Type, init *Const) *Global {
	g := &Global{Elem: elem, Init: init, typ: PtrTo(elem)}
	g.name = name
	m.Globals = append(m.Globals, g)
	return g
}

// FuncByName returns the function named name, nil if absent.
func (m *Module) FuncByName(name string) *Function {
	for _, f := range m.Funcs {
		if f.name == name {
			return f
		}
	}
	return nil
}

// GlobalByName returns the global named name, nil if absent.
func (m *Module) GlobalByName(name string) *Global {
	for _, g := range m.Globals {
		if g.name == name {
			return g
		}
	}
	return nil
}
