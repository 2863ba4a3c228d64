package compiler

import (
	"github.com/salmon-lang/salmon/lang/bytecode"
	"github.com/salmon-lang/salmon/lang/token"
)

// declaration compiles one top-level-or-block item: a class, function, or
// var declaration, or (falling through) an ordinary statement. A parse
// error here is recovered from at the next likely statement boundary so
// one mistake doesn't cascade into a wall of spurious diagnostics.
func (p *parser) declaration() {
	switch {
	case p.match(token.CLASS):
		p.classDeclaration()
	case p.match(token.FUNCTION):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) classDeclaration() {
	p.consume(token.IDENT, "Expect class name.")
	className := p.previous.Lexeme
	nameConstant := p.identifierConstant(className)
	p.declareVariable()

	p.emitOpByte(bytecode.CLASS, nameConstant)
	p.defineVariable(nameConstant)

	cs := &classState{enclosing: p.class}
	p.class = cs

	if p.match(token.LT) {
		p.consume(token.IDENT, "Expect superclass name.")
		p.variable(false)
		if p.previous.Lexeme == className {
			p.error("A class can't inherit from itself.")
		}

		p.beginScope()
		p.addLocal("super")
		p.defineVariable(0)

		p.namedVariable(className, false)
		p.emitOp(bytecode.INHERIT)
		cs.hasSuperclass = true
	}

	p.namedVariable(className, false)
	p.consume(token.LBRACE, "Expect '{' before class body.")
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RBRACE, "Expect '}' after class body.")
	p.emitOp(bytecode.POP) // the class value pushed for namedVariable above

	if cs.hasSuperclass {
		p.endScope()
	}
	p.class = cs.enclosing
}

// method compiles one "[private] name(params) { body }" member, emitting
// METHOD or PRIVATE_METHOD to bind it onto the class value left on the
// stack by classDeclaration.
func (p *parser) method() {
	isPrivate := p.match(token.PRIVATE)

	p.consume(token.IDENT, "Expect method name.")
	name := p.previous.Lexeme
	nameConstant := p.identifierConstant(name)

	typ := typeMethod
	if name == "init" {
		typ = typeInitializer
	}
	p.function(typ, name)

	op := bytecode.METHOD
	if isPrivate {
		op = bytecode.PRIVATE_METHOD
	}
	p.emitOpByte(op, nameConstant)
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(typeFunction, p.previous.Lexeme)
	p.defineVariable(global)
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")

	if p.match(token.EQ) {
		p.expression()
	} else {
		p.emitOp(bytecode.NIL)
	}
	p.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

// function compiles a parameter list and body block as a new function
// frame, then emits CLOSURE plus one (is_local, index) pair per captured
// upvalue, the way the reference VM's OP_CLOSURE handler expects to find
// them immediately following the opcode.
func (p *parser) function(typ funcType, name string) {
	p.pushFunc(typ, name)
	p.beginScope()
	p.emitPath()

	p.consume(token.LPAREN, "Expect '(' after function name.")
	if !p.check(token.RPAREN) {
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
	p.consume(token.RPAREN, "Expect ')' after parameters.")
	p.consume(token.LBRACE, "Expect '{' before function body.")
	p.block()

	fs := p.cur
	fn := p.endCompiler()
	p.emitClosure(fs, fn)
}

// lambda (rules.go) does not go through function: it parses its own
// '|'-delimited parameter list and emits no PATH marker.

func (p *parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "Expect '}' after block.")
}

// --- statements -----------------------------------------------------------

func (p *parser) statement() {
	switch {
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.PATH):
		p.pathStatement()
	case p.match(token.LBRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after expression.")
	p.emitOp(bytecode.POP)
}

// pathStatement consumes a preprocessor-synthesized "____path____
// ~/some/file.salmon" statement pair and re-stamps the chunk's current
// file, so later runtime errors in this stretch of (concatenated) source
// report the file they actually came from.
func (p *parser) pathStatement() {
	p.consume(token.FILE_PATH, "Expect file path after path marker.")
	p.path = p.previous.Lexeme
	p.emitPath()
}

func (p *parser) forStatement() {
	p.beginScope()
	p.consume(token.LPAREN, "Expect '(' after 'for'.")

	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.chunk().Code)
	exitJump := -1
	if !p.match(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = p.emitJump(bytecode.JUMP_IF_FALSE)
		p.emitOp(bytecode.POP)
	}

	if !p.check(token.RPAREN) {
		bodyJump := p.emitJump(bytecode.JUMP)
		incrementStart := len(p.chunk().Code)
		p.expression()
		p.emitOp(bytecode.POP)
		p.consume(token.RPAREN, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	} else {
		p.consume(token.RPAREN, "Expect ')' after for clauses.")
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(bytecode.POP)
	}
	p.endScope()
}

func (p *parser) ifStatement() {
	p.consume(token.LPAREN, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := p.emitJump(bytecode.JUMP_IF_FALSE)
	p.emitOp(bytecode.POP)
	p.statement()

	elseJump := p.emitJump(bytecode.JUMP)
	p.patchJump(thenJump)
	p.emitOp(bytecode.POP)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) returnStatement() {
	if p.cur.typ == typeScript {
		p.error("Can't return from top-level code.")
	}
	if p.match(token.SEMICOLON) {
		p.emitReturn()
		return
	}
	if p.cur.typ == typeInitializer {
		p.error("Can't return a value from an initializer.")
	}
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after return value.")
	p.emitOp(bytecode.RETURN)
}

func (p *parser) whileStatement() {
	loopStart := len(p.chunk().Code)
	p.consume(token.LPAREN, "Expect '(' after 'while'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := p.emitJump(bytecode.JUMP_IF_FALSE)
	p.emitOp(bytecode.POP)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(bytecode.POP)
}
