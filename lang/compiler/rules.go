package compiler

import (
	"strconv"

	"github.com/salmon-lang/salmon/lang/bytecode"
	"github.com/salmon-lang/salmon/lang/machine"
	"github.com/salmon-lang/salmon/lang/scanner"
	"github.com/salmon-lang/salmon/lang/token"
)

// precedence orders binding strength from weakest to strongest, exactly
// mirroring compiler.c's Precedence enum.
type precedence uint8

const (
	precNone       precedence = iota
	precAssignment            // :=  += -= *= /=
	precTernary               // ?:
	precOr                    // |
	precAnd                   // &
	precEquality              // = !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . () []
	precPrimary
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[token.Kind]parseRule

func init() {
	rules = map[token.Kind]parseRule{
		token.LPAREN:    {prefix: (*parser).grouping, infix: (*parser).call, precedence: precCall},
		token.LBRACK:    {prefix: (*parser).arrayLiteral, infix: (*parser).index, precedence: precCall},
		token.DOT:       {infix: (*parser).dot, precedence: precCall},
		token.MINUS:     {prefix: (*parser).unary, infix: (*parser).binary, precedence: precTerm},
		token.PLUS:      {infix: (*parser).binary, precedence: precTerm},
		token.SLASH:     {infix: (*parser).binary, precedence: precFactor},
		token.STAR:      {infix: (*parser).binary, precedence: precFactor},
		token.BANG:      {prefix: (*parser).unary},
		token.BANG_EQ:   {infix: (*parser).binary, precedence: precEquality},
		token.EQ_EQ:     {infix: (*parser).binary, precedence: precEquality},
		token.GT:        {infix: (*parser).binary, precedence: precComparison},
		token.GT_EQ:     {infix: (*parser).binary, precedence: precComparison},
		token.LT:        {infix: (*parser).binary, precedence: precComparison},
		token.LT_EQ:     {infix: (*parser).binary, precedence: precComparison},
		token.IDENT:     {prefix: (*parser).variable},
		token.STRING:    {prefix: (*parser).stringLit},
		token.NUMBER:    {prefix: (*parser).number},
		token.PIPE:      {prefix: (*parser).lambda, infix: (*parser).or, precedence: precOr},
		token.AMPERSAND: {infix: (*parser).and, precedence: precAnd},
		token.FALSE:     {prefix: (*parser).literal},
		token.TRUE:      {prefix: (*parser).literal},
		token.NIL:       {prefix: (*parser).literal},
		token.THIS:      {prefix: (*parser).this},
		token.SUPER:     {prefix: (*parser).super},
		token.QUESTION:  {infix: (*parser).ternary, precedence: precTernary},
	}
}

func (p *parser) getRule(k token.Kind) parseRule { return rules[k] }

// expression parses and compiles a full expression, starting at the
// assignment precedence: the weakest level above "no expression at all".
func (p *parser) expression() { p.parsePrecedence(precAssignment) }

func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	prefix := p.getRule(p.previous.Kind).prefix
	if prefix == nil {
		p.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefix(p, canAssign)

	for prec <= p.getRule(p.current.Kind).precedence {
		p.advance()
		infix := p.getRule(p.previous.Kind).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQ) {
		p.error("Invalid assignment target.")
	}
}

// --- literals -------------------------------------------------------------

func (p *parser) number(canAssign bool) {
	v, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.error("Invalid number literal.")
		return
	}
	p.emitConstant(machine.Number(v))
}

func (p *parser) stringLit(canAssign bool) {
	p.emitConstant(p.heap.InternString(scanner.Unescape(p.previous.Lexeme), false))
}

func (p *parser) literal(canAssign bool) {
	switch p.previous.Kind {
	case token.FALSE:
		p.emitOp(bytecode.FALSE)
	case token.TRUE:
		p.emitOp(bytecode.TRUE)
	case token.NIL:
		p.emitOp(bytecode.NIL)
	}
}

func (p *parser) grouping(canAssign bool) {
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after expression.")
}

func (p *parser) unary(canAssign bool) {
	opKind := p.previous.Kind
	p.parsePrecedence(precUnary)
	switch opKind {
	case token.BANG:
		p.emitOp(bytecode.NOT)
	case token.MINUS:
		p.emitOp(bytecode.NEGATE)
	}
}

func (p *parser) binary(canAssign bool) {
	opKind := p.previous.Kind
	rule := p.getRule(opKind)
	p.parsePrecedence(rule.precedence + 1)

	switch opKind {
	case token.BANG_EQ:
		p.emitOp(bytecode.EQUAL)
		p.emitOp(bytecode.NOT)
	case token.EQ_EQ:
		p.emitOp(bytecode.EQUAL)
	case token.GT:
		p.emitOp(bytecode.GREATER)
	case token.GT_EQ:
		p.emitOp(bytecode.LESS)
		p.emitOp(bytecode.NOT)
	case token.LT:
		p.emitOp(bytecode.LESS)
	case token.LT_EQ:
		p.emitOp(bytecode.GREATER)
		p.emitOp(bytecode.NOT)
	case token.PLUS:
		p.emitOp(bytecode.ADD)
	case token.MINUS:
		p.emitOp(bytecode.SUBTRACT)
	case token.STAR:
		p.emitOp(bytecode.MULTIPLY)
	case token.SLASH:
		p.emitOp(bytecode.DIVIDE)
	}
}

// or compiles the short-circuiting '|' operator: if the left operand is
// truthy, skip the right operand entirely rather than evaluate and
// discard it.
func (p *parser) or(canAssign bool) {
	elseJump := p.emitJump(bytecode.JUMP_IF_FALSE)
	endJump := p.emitJump(bytecode.JUMP)

	p.patchJump(elseJump)
	p.emitOp(bytecode.POP)

	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func (p *parser) and(canAssign bool) {
	endJump := p.emitJump(bytecode.JUMP_IF_FALSE)
	p.emitOp(bytecode.POP)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

// ternary compiles "cond ? then : else" and the else-less "cond ? then",
// which evaluates to nil when cond is falsey.
func (p *parser) ternary(canAssign bool) {
	thenJump := p.emitJump(bytecode.JUMP_IF_FALSE)
	p.emitOp(bytecode.POP)
	p.expression()
	elseJump := p.emitJump(bytecode.JUMP)

	p.patchJump(thenJump)
	p.emitOp(bytecode.POP)
	if p.match(token.COLON) {
		p.expression()
	} else {
		p.emitOp(bytecode.NIL)
	}
	p.patchJump(elseJump)
}

// --- variables and assignment ---------------------------------------------

func (p *parser) variable(canAssign bool) { p.namedVariable(p.previous.Lexeme, canAssign) }

func (p *parser) namedVariable(name string, canAssign bool) {
	var getOp, setOp bytecode.Opcode
	var arg int

	if idx := p.resolveLocal(p.cur, name); idx != -1 {
		arg = idx
		getOp, setOp = bytecode.GET_LOCAL, bytecode.SET_LOCAL
	} else if idx := p.resolveUpvalue(p.cur, name); idx != -1 {
		arg = idx
		getOp, setOp = bytecode.GET_UPVALUE, bytecode.SET_UPVALUE
	} else {
		arg = int(p.identifierConstant(name))
		getOp, setOp = bytecode.GET_GLOBAL, bytecode.SET_GLOBAL
	}

	switch {
	case canAssign && p.match(token.EQ):
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	case canAssign && p.matchCompound():
		compoundOp := p.compoundArith(p.previous.Kind)
		p.emitOpByte(getOp, byte(arg))
		p.expression()
		p.emitOp(compoundOp)
		p.emitOpByte(setOp, byte(arg))
	default:
		p.emitOpByte(getOp, byte(arg))
	}
}

// setNamedArray stores the value left on the stack (by a just-emitted
// SET_ELEMENT) back into name's local slot, upvalue, or global — whichever
// resolve_local/resolve_upvalue would have found for an ordinary read.
func (p *parser) setNamedArray(name string) {
	if idx := p.resolveLocal(p.cur, name); idx != -1 {
		p.emitOpByte(bytecode.SET_LOCAL, byte(idx))
		return
	}
	if idx := p.resolveUpvalue(p.cur, name); idx != -1 {
		p.emitOpByte(bytecode.SET_UPVALUE, byte(idx))
		return
	}
	p.emitOpByte(bytecode.SET_GLOBAL, p.identifierConstant(name))
}

func (p *parser) matchCompound() bool {
	switch p.current.Kind {
	case token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ:
		p.advance()
		return true
	}
	return false
}

func (p *parser) compoundArith(k token.Kind) bytecode.Opcode {
	switch k {
	case token.PLUS_EQ:
		return bytecode.ADD
	case token.MINUS_EQ:
		return bytecode.SUBTRACT
	case token.STAR_EQ:
		return bytecode.MULTIPLY
	default:
		return bytecode.DIVIDE
	}
}

// --- calls, properties, arrays ---------------------------------------------

func (p *parser) argumentList() byte {
	var argCount int
	if !p.check(token.RPAREN) {
		for {
			p.expression()
			if argCount == maxParams {
				p.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(argCount)
}

func (p *parser) call(canAssign bool) {
	argCount := p.argumentList()
	p.emitOpByte(bytecode.CALL, argCount)
}

func (p *parser) dot(canAssign bool) {
	p.consume(token.IDENT, "Expect property name after '.'.")
	name := p.identifierConstant(p.previous.Lexeme)

	switch {
	case canAssign && p.match(token.EQ):
		p.expression()
		p.emitOpByte(bytecode.SET_PROPERTY, name)
	case p.match(token.LPAREN):
		argCount := p.argumentList()
		p.emitOpByte(bytecode.INVOKE, name)
		p.emitByte(argCount)
	default:
		p.emitOpByte(bytecode.GET_PROPERTY, name)
	}
}

// arrayLiteral compiles "[ expr, expr, ... ]" into an empty array constant
// followed, for each element, by a push of that element and an ADD — the
// same "build up functionally" shape every other array mutation in the
// language uses.
func (p *parser) arrayLiteral(canAssign bool) {
	p.emitConstant(p.heap.NewArray(nil))
	if !p.check(token.RBRACK) {
		for {
			p.expression()
			// ADD's array+value overload appends functionally, so a
			// literal is just an empty array folded over with ADD.
			p.emitOp(bytecode.ADD)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RBRACK, "Expect ']' after array literal.")
}

// index compiles both array reads ("arr[i]") and functional writes
// ("arr[i] := v"). SET_ELEMENT never mutates in place — it produces a
// brand-new array — so a write also has to store that new array back
// into wherever "arr" came from, the same way the reference compiler's
// array_access keeps the token before '[' around for set_named_array.
func (p *parser) index(canAssign bool) {
	arrayName := p.beforePrevious.Lexeme
	p.expression()
	p.consume(token.RBRACK, "Expect ']' after index.")

	if canAssign && p.match(token.EQ) {
		p.expression()
		p.emitOp(bytecode.SET_ELEMENT)
		p.setNamedArray(arrayName)
		return
	}
	p.emitOp(bytecode.GET_ELEMENT)
}

// --- this / super -----------------------------------------------------------

func (p *parser) this(canAssign bool) {
	if p.class == nil {
		p.error("Can't use 'this' outside of a class.")
		return
	}
	p.variable(false)
}

func (p *parser) super(canAssign bool) {
	if p.class == nil {
		p.error("Can't use 'super' outside of a class.")
	} else if !p.class.hasSuperclass {
		p.error("Can't use 'super' in a class with no superclass.")
	}

	// "super(args)" calls the superclass initializer directly, with no
	// method name to look up.
	if p.match(token.LPAREN) {
		name := p.identifierConstant("init")
		p.namedVariable("this", false)
		argCount := p.argumentList()
		p.namedVariable("super", false)
		p.emitOpByte(bytecode.SUPER_INVOKE, name)
		p.emitByte(argCount)
		return
	}

	p.consume(token.DOT, "Expect '.' after 'super'.")
	p.consume(token.IDENT, "Expect superclass method name.")
	name := p.identifierConstant(p.previous.Lexeme)

	p.namedVariable("this", false)
	if p.match(token.LPAREN) {
		argCount := p.argumentList()
		p.namedVariable("super", false)
		p.emitOpByte(bytecode.SUPER_INVOKE, name)
		p.emitByte(argCount)
	} else {
		p.namedVariable("super", false)
		p.emitOpByte(bytecode.GET_SUPER, name)
	}
}

// --- lambdas ----------------------------------------------------------------

// lambda compiles "| params | => { body }" as an anonymous function
// literal. It can't reuse function()'s "(params)" parsing since a lambda
// delimits its parameter list with a second '|' instead of parens, so it
// repeats function()'s frame-push/body/CLOSURE shape with that one
// difference, the way the reference compiler's own lambda() does.
// lambda bodies, unlike named function/method bodies, never get their own
// PATH marker: a stack trace through a lambda call reports whatever file
// was last stamped by the enclosing function or block.
func (p *parser) lambda(canAssign bool) {
	p.pushFunc(typeFunction, "")
	p.beginScope()

	if !p.check(token.PIPE) {
		for {
			p.cur.fn.Arity++
			if p.cur.fn.Arity > maxParams {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.PIPE, "Expect '|' after parameters.")
	p.consume(token.EQ_EQ, "Expect '=>' after parameters.")
	p.consume(token.GT, "Expect '=>' after parameters.")
	p.consume(token.LBRACE, "Expect '{' before lambda body.")
	p.block()

	fs := p.cur
	fn := p.endCompiler()
	p.emitClosure(fs, fn)
}
