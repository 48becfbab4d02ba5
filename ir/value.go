package ir

// Value is an SSA value: anything an instruction can take as an
// operand. The closed set of implementations is *Const, *Global,
// *Argument, *Function, *Block and *Instr.
type Value interface {
	// Type returns the value's type.
	Type() Type
	// Name returns the value's name without sigil, "" if unnamed.
	Name() string
	// String returns the form the value takes as an operand.
	String() string

	addUse(u use)
	removeUse(u use)
	allUses() []use
}

// use records one operand slot referring to a value.
type use struct {
	user *Instr
	idx  int
}

// valueBase carries the name and use list shared by all values.
type valueBase struct {
	name    string
	useList []use
}

func (v *valueBase) Name() string     { return v.name }
func (v *valueBase) SetName(n string) { v.name = n }

func (v *valueBase) addUse(u use) { v.useList = append(v.useList, u) }

func (v *valueBase) removeUse(u use) {
	for i := range v.useList {
		if v.useList[i] == u {
			v.useList = append(v.useList[:i], v.useList[i+1:]...)
			return
		}
	}
}

func (v *valueBase) allUses() []use { return v.useList }

// NumUses returns the number of operand slots referring to the value.
func (v *valueBase) NumUses() int { return len(v.useList) }

// Users returns the instructions using the value as an operand, in
// first-use order. An instruction using it in several slots appears
// once.
func (v *valueBase) Users() []*Instr {
	var out []*Instr
	seen := make(map[*Instr]bool, len(v.useList))
	for _, u := range v.useList {
		if !seen[u.user] {
			seen[u.user] = true
			out = append(out, u.user)
		}
	}
	return out
}

// ReplaceAllUsesWith rewrites every operand slot referring to old so
// it refers to repl instead. For a *Block this retargets branches and
// phi predecessor entries alike.
func ReplaceAllUsesWith(old, repl Value) {
	uses := append([]use(nil), old.allUses()...)
	for _, u := range uses {
		u.user.SetOperand(u.idx, repl)
	}
}

// Argument is a function parameter.
type Argument struct {
	valueBase
	typ Type
	fn  *Function
	idx int
}

func (a *Argument) Type() Type        { return a.typ }
func (a *Argument) String() string    { return "%" + a.name }
func (a *Argument) Parent() *Function { return a.fn }
func (a *Argument) Index() int        { return a.idx }

// Global is a module-level variable. As a value it is the address of
// its contents, a local-space pointer.
type Global struct {
	valueBase
	Elem Type
	Init *Const
	typ  *PointerType
}

func (g *Global) Type() Type     { return g.typ }
func (g *Global) String() string { return "@" + g.name }
