// Package compiler implements the single-pass Pratt compiler: it scans
// source directly into a bytecode.Chunk, with no intermediate AST. Scope
// and upvalue resolution, class state, and jump patching are all tracked
// on a stack of compiler frames threaded through the parser, mirroring
// the reference implementation's compiler.c one function at a time.
package compiler

import (
	"github.com/salmon-lang/salmon/lang/bytecode"
	"github.com/salmon-lang/salmon/lang/machine"
	"github.com/salmon-lang/salmon/lang/scanner"
	"github.com/salmon-lang/salmon/lang/token"
)

const (
	maxLocals   = 256
	maxUpvalues = 256
	maxParams   = 255
)

// funcType distinguishes the four shapes a compiled function body can
// take; it controls the implicit return emitted at the end of the body
// and the name bound to local slot 0.
type funcType uint8

const (
	typeFunction funcType = iota
	typeInitializer
	typeMethod
	typeScript
)

type local struct {
	name     string
	depth    int // -1: declared but not yet initialized
	captured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

// funcState is one compiler frame: the Function being built and the
// locals/upvalues/scope bookkeeping for it. Frames chain through
// enclosing the way nested function/method/lambda bodies nest in source.
type funcState struct {
	enclosing *funcState
	fn        *machine.Function
	typ       funcType

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int
}

// classState tracks the class currently being compiled, chained through
// enclosing for nested class declarations.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// parser holds all single-pass compiler state for one chunk: the scanner,
// the current/previous token pair (and the token before that, needed for
// array-index assignment target tracking), the function-frame and
// class-frame stacks, and the accumulated diagnostics.
type parser struct {
	heap *machine.Heap
	scan scanner.Scanner
	path string

	previous     token.Token
	current      token.Token
	beforePrevious token.Token

	errors    ErrorList
	panicMode bool

	cur   *funcState
	class *classState
}

// Compile compiles src (already preprocessed: imports resolved and
// concatenated) into a top-level script Function. On success the
// returned error is nil; on failure it is a non-nil *ErrorList and the
// Function return value is nil, matching compile()'s "had_error ? NULL
// : function" contract.
func Compile(heap *machine.Heap, path, src string) (*machine.Function, error) {
	p := &parser{heap: heap, path: path}
	// The scanner's own error callback is left nil: an ILLEGAL token
	// already carries its message in Lexeme, and advance() reports it
	// from there, the way compiler.c's advance() calls error_at_current
	// directly rather than through a side channel.
	p.scan.Init(src, nil)
	p.pushFunc(typeScript, "")

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	fn := p.endCompiler()

	if err := p.errors.Err(); err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *parser) chunk() *bytecode.Chunk { return &p.cur.fn.Chunk }

// --- token stream -----------------------------------------------------

func (p *parser) advance() {
	p.beforePrevious = p.previous
	p.previous = p.current
	for {
		p.current = p.scan.Scan()
		if p.current.Kind != token.ILLEGAL {
			return
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) check(k token.Kind) bool { return p.current.Kind == k }

func (p *parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(k token.Kind, msg string) {
	if p.current.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

// --- error reporting ----------------------------------------------------

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	e := &Error{Path: p.path, Line: tok.Line, Msg: msg}
	switch tok.Kind {
	case token.EOF:
		e.AtEnd = true
	case token.ILLEGAL:
		// lexeme left blank: the message already names the problem.
	default:
		e.Lexeme = tok.Lexeme
	}
	p.errors.Add(e)
}

// synchronize recovers from a parse error by skipping tokens until a
// likely statement boundary, so one mistake reports one diagnostic
// instead of a cascade.
func (p *parser) synchronize() {
	p.panicMode = false
	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.SEMICOLON {
			return
		}
		switch p.current.Kind {
		case token.CLASS, token.FUNCTION, token.VAR, token.IF, token.WHILE, token.RETURN:
			return
		}
		p.advance()
	}
}

// --- emission -----------------------------------------------------------

func (p *parser) emitByte(b byte) { p.chunk().WriteByte(b, p.previous.Line) }
func (p *parser) emitOp(op bytecode.Opcode) { p.chunk().WriteOpcode(op, p.previous.Line) }
func (p *parser) emitOpByte(op bytecode.Opcode, b byte) {
	p.emitOp(op)
	p.emitByte(b)
}

func (p *parser) emitLoop(loopStart int) {
	p.emitOp(bytecode.LOOP)
	offset := len(p.chunk().Code) - loopStart + 2
	if offset > 0xFFFF {
		p.error("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

func (p *parser) emitJump(op bytecode.Opcode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 2
}

func (p *parser) patchJump(offset int) {
	jump := len(p.chunk().Code) - offset - 2
	if jump > 0xFFFF {
		p.error("Too much code to jump over.")
	}
	p.chunk().Code[offset] = byte(jump >> 8)
	p.chunk().Code[offset+1] = byte(jump)
}

func (p *parser) emitReturn() {
	if p.cur.typ == typeInitializer {
		p.emitOpByte(bytecode.GET_LOCAL, 0)
	} else {
		p.emitOp(bytecode.NIL)
	}
	p.emitOp(bytecode.RETURN)
}

// makeConstant interns v into the current chunk's constant pool. The
// value is already heap-rooted (strings via InternString, functions via
// Heap.NewFunction) before this runs, so there is no push/pop-around-
// allocation dance needed here the way the reference's add_constant does
// it for its own GC: a Go slice append never triggers a Salmon
// collection.
func (p *parser) makeConstant(v bytecode.Value) byte {
	idx, err := p.chunk().AddConstant(v)
	if err != nil {
		p.error(err.Error())
		return 0
	}
	return byte(idx)
}

func (p *parser) emitConstant(v bytecode.Value) {
	p.emitOpByte(bytecode.CONSTANT, p.makeConstant(v))
}

func (p *parser) identifierConstant(name string) byte {
	return p.makeConstant(p.heap.InternString(name, false))
}

// --- compiler frames ------------------------------------------------------

func (p *parser) pushFunc(typ funcType, name string) {
	fs := &funcState{enclosing: p.cur, typ: typ}
	var fnName *machine.String
	if typ != typeScript {
		fnName = p.heap.InternString(name, false)
	}
	fs.fn = p.heap.NewFunction(fnName)
	p.heap.PushCompilerRoot(fs.fn)

	// Slot 0 is reserved: "this" for anything that isn't a plain
	// function/lambda, unnamed (and unreadable) otherwise.
	slot0 := local{depth: 0}
	if typ != typeFunction {
		slot0.name = "this"
	}
	fs.locals = append(fs.locals, slot0)
	p.cur = fs
}

// endCompiler closes the current frame, emitting the implicit return, and
// pops back to the enclosing frame (nil at the top-level script).
func (p *parser) endCompiler() *machine.Function {
	p.emitReturn()
	fn := p.cur.fn
	p.heap.PopCompilerRoot()
	p.cur.fn.Upvalues = len(p.cur.upvalues)
	p.cur = p.cur.enclosing
	return fn
}

func (p *parser) beginScope() { p.cur.scopeDepth++ }

func (p *parser) endScope() {
	p.cur.scopeDepth--
	for len(p.cur.locals) > 0 && p.cur.locals[len(p.cur.locals)-1].depth > p.cur.scopeDepth {
		if p.cur.locals[len(p.cur.locals)-1].captured {
			p.emitOp(bytecode.CLOSE_UPVALUE)
		} else {
			p.emitOp(bytecode.POP)
		}
		p.cur.locals = p.cur.locals[:len(p.cur.locals)-1]
	}
}

// --- variable resolution --------------------------------------------------

func resolveLocal(fs *funcState, name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return i
		}
	}
	return -1
}

func (p *parser) resolveLocal(fs *funcState, name string) int {
	idx := resolveLocal(fs, name)
	if idx != -1 && fs.locals[idx].depth == -1 {
		p.error("Can't read local variable in its own initializer.")
	}
	return idx
}

func (p *parser) addUpvalue(fs *funcState, index byte, isLocal bool) int {
	for i, uv := range fs.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fs.upvalues) == maxUpvalues {
		p.error("Too many closure variables in function.")
		return 0
	}
	fs.upvalues = append(fs.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(fs.upvalues) - 1
}

func (p *parser) resolveUpvalue(fs *funcState, name string) int {
	if fs.enclosing == nil {
		return -1
	}
	if localIdx := p.resolveLocal(fs.enclosing, name); localIdx != -1 {
		fs.enclosing.locals[localIdx].captured = true
		return p.addUpvalue(fs, byte(localIdx), true)
	}
	if upIdx := p.resolveUpvalue(fs.enclosing, name); upIdx != -1 {
		return p.addUpvalue(fs, byte(upIdx), false)
	}
	return -1
}

func (p *parser) addLocal(name string) {
	if len(p.cur.locals) == maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.cur.locals = append(p.cur.locals, local{name: name, depth: -1})
}

func (p *parser) declareVariable() {
	if p.cur.scopeDepth == 0 {
		return
	}
	name := p.previous.Lexeme
	for i := len(p.cur.locals) - 1; i >= 0; i-- {
		l := p.cur.locals[i]
		if l.depth != -1 && l.depth < p.cur.scopeDepth {
			break
		}
		if l.name == name {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

// parseVariable consumes an identifier, declares it as a local (if inside
// a scope) and returns the constant-pool index to use with
// DEFINE_GLOBAL/CLASS if it turns out to be a global instead.
func (p *parser) parseVariable(errMsg string) byte {
	p.consume(token.IDENT, errMsg)
	p.declareVariable()
	if p.cur.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous.Lexeme)
}

func (p *parser) markInitialized() {
	if p.cur.scopeDepth == 0 {
		return
	}
	p.cur.locals[len(p.cur.locals)-1].depth = p.cur.scopeDepth
}

func (p *parser) defineVariable(global byte) {
	if p.cur.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(bytecode.DEFINE_GLOBAL, global)
}

// emitClosure emits CLOSURE for fn plus one (is_local, index) pair per
// upvalue fs captured, the layout OP_CLOSURE's handler expects to find
// immediately following the opcode.
func (p *parser) emitClosure(fs *funcState, fn *machine.Function) {
	idx := p.makeConstant(fn)
	p.emitOpByte(bytecode.CLOSURE, idx)
	for _, uv := range fs.upvalues {
		if uv.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(uv.index)
	}
}

// emitPath stamps the current chunk with a PATH constant+opcode pair
// naming p.path, the way every named function/method body (and every
// preprocessor file boundary) does, so VM runtime errors can name a file
// rather than only a line. The VM keeps a single current path: every line
// of a stack trace shows the file most recently stamped, not a file
// tracked per frame.
func (p *parser) emitPath() {
	idx := p.makeConstant(p.heap.InternString(p.path, false))
	p.emitOpByte(bytecode.PATH, idx)
}
