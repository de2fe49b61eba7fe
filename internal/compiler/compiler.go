package compiler

import (
	"fmt"
	"io"
	"strconv"

	"loxy-vm/internal/chunk"
	"loxy-vm/internal/lexer"
	"loxy-vm/internal/token"
	"loxy-vm/internal/value"
)

// Precedence levels, lowest to highest.
type Precedence int

const (
	PREC_NONE Precedence = iota
	PREC_ASSIGNMENT            // =
	PREC_OR                    // or
	PREC_AND                   // and
	PREC_EQUALITY              // == !=
	PREC_COMPARISON            // < > <= >=
	PREC_TERM                  // + -
	PREC_FACTOR                // * /
	PREC_UNARY                 // ! -
	PREC_CALL                  // . ()
	PREC_PRIMARY
)

type parseFn func(canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// MaxLocals caps the per-function local table; slots are addressed by one
// byte.
const MaxLocals = 256

// Local is a compile-time stack binding. A depth of -1 marks a variable
// that has been declared but whose initializer is still being compiled.
type Local struct {
	name  token.Token
	depth int
}

// Compiler lowers source text straight to bytecode in a single pass. There
// is no AST: the Pratt sub-parsers emit as they consume tokens.
type Compiler struct {
	lexer    *lexer.Lexer
	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool

	chunk   *chunk.Chunk
	strings *value.StringPool

	locals     [MaxLocals]Local
	localCount int
	scopeDepth int

	rules map[token.TokenType]parseRule

	errOut io.Writer
}

// Compile compiles source into ch, interning string constants through
// strings. Errors are written to errOut; the return value reports whether
// compilation succeeded.
func Compile(source string, ch *chunk.Chunk, strings *value.StringPool, errOut io.Writer) bool {
	c := &Compiler{
		lexer:   lexer.New(source),
		chunk:   ch,
		strings: strings,
		errOut:  errOut,
	}
	c.rules = map[token.TokenType]parseRule{
		token.LPAREN:     {c.grouping, nil, PREC_NONE},
		token.MINUS:      {c.unary, c.binary, PREC_TERM},
		token.PLUS:       {nil, c.binary, PREC_TERM},
		token.SLASH:      {nil, c.binary, PREC_FACTOR},
		token.STAR:       {nil, c.binary, PREC_FACTOR},
		token.BANG:       {c.unary, nil, PREC_NONE},
		token.BANG_EQ:    {nil, c.binary, PREC_EQUALITY},
		token.EQ:         {nil, c.binary, PREC_EQUALITY},
		token.GT:         {nil, c.binary, PREC_COMPARISON},
		token.GTE:        {nil, c.binary, PREC_COMPARISON},
		token.LT:         {nil, c.binary, PREC_COMPARISON},
		token.LTE:        {nil, c.binary, PREC_COMPARISON},
		token.IDENTIFIER: {c.variable, nil, PREC_NONE},
		token.STRING:     {c.stringLiteral, nil, PREC_NONE},
		token.NUMBER:     {c.number, nil, PREC_NONE},
		token.AND:        {nil, c.and, PREC_AND},
		token.OR:         {nil, c.or, PREC_OR},
		token.FALSE:      {c.literal, nil, PREC_NONE},
		token.TRUE:       {c.literal, nil, PREC_NONE},
		token.NIL:        {c.literal, nil, PREC_NONE},
	}

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	c.emitReturn()

	return !c.hadError
}

// ---- declarations and statements ----

func (c *Compiler) declaration() {
	if c.match(token.VAR) {
		c.varDeclaration()
	} else {
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(token.ASSIGN) {
		c.expression()
	} else {
		// implicit nil initializer
		c.emitOp(chunk.OP_NIL)
	}
	c.match(token.SEMICOLON)

	c.defineVariable(global)
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) forStatement() {
	// loop variable scope
	c.beginScope()

	c.consume(token.LPAREN, "Expect '(' after 'for'.")

	// initializer
	if c.match(token.SEMICOLON) {
		// no initializer
	} else if c.match(token.VAR) {
		c.varDeclaration()
	} else {
		c.expressionStatement()
	}

	loopStart := c.chunk.Size()

	// condition; an absent one is an unconditional true
	if !c.check(token.SEMICOLON) {
		c.expression()
	} else {
		c.emitOp(chunk.OP_TRUE)
	}
	c.consume(token.SEMICOLON, "Expect ';' after loop condition.")

	exitJump := c.emitJump(chunk.OP_JUMP_IF_FALSE)
	c.emitOp(chunk.OP_POP)

	// increment runs after the body, so jump over it on the way in
	if !c.match(token.RPAREN) {
		bodyJump := c.emitJump(chunk.OP_JUMP)
		incrementStart := c.chunk.Size()

		c.expression()
		c.emitOp(chunk.OP_POP)
		c.consume(token.RPAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(chunk.OP_POP)

	c.endScope()
}

func (c *Compiler) whileStatement() {
	loopStart := c.chunk.Size()

	c.consume(token.LPAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(chunk.OP_JUMP_IF_FALSE)
	c.emitOp(chunk.OP_POP)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(chunk.OP_POP)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	// jump over the then branch if the condition is false
	elseJump := c.emitJump(chunk.OP_JUMP_IF_FALSE)
	c.emitOp(chunk.OP_POP)
	c.statement()

	endJump := c.emitJump(chunk.OP_JUMP)

	c.patchJump(elseJump)
	c.emitOp(chunk.OP_POP)
	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(endJump)
}

func (c *Compiler) printStatement() {
	c.expression()
	c.emitOp(chunk.OP_PRINT)
	c.match(token.SEMICOLON)
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "Expect '}' after block.")
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.emitOp(chunk.OP_POP)
	c.match(token.SEMICOLON)
}

// ---- expressions ----

func (c *Compiler) expression() {
	c.parsePrecedence(PREC_ASSIGNMENT)
}

// parsePrecedence is the Pratt driver: one prefix rule, then infix rules as
// long as the next token binds at least as tightly as prec.
func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := c.rules[c.previous.Type].prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= PREC_ASSIGNMENT
	prefix(canAssign)

	for prec <= c.rules[c.current.Type].precedence {
		c.advance()
		infix := c.rules[c.previous.Type].infix
		infix(canAssign)
	}

	// If no rule consumed the '=', nothing else will.
	if canAssign && c.match(token.ASSIGN) {
		c.error("Invalid assignment target.")
		c.expression()
	}
}

func (c *Compiler) binary(canAssign bool) {
	operator := c.previous.Type

	// right operand binds one level tighter: left-associative
	rule := c.rules[operator]
	c.parsePrecedence(rule.precedence + 1)

	switch operator {
	case token.BANG_EQ:
		c.emitOps(chunk.OP_EQUAL, chunk.OP_NOT)
	case token.EQ:
		c.emitOp(chunk.OP_EQUAL)
	case token.GT:
		c.emitOp(chunk.OP_GREATER)
	case token.GTE:
		c.emitOps(chunk.OP_LESS, chunk.OP_NOT)
	case token.LT:
		c.emitOp(chunk.OP_LESS)
	case token.LTE:
		c.emitOps(chunk.OP_GREATER, chunk.OP_NOT)
	case token.PLUS:
		c.emitOp(chunk.OP_ADD)
	case token.MINUS:
		c.emitOp(chunk.OP_SUBTRACT)
	case token.STAR:
		c.emitOp(chunk.OP_MULTIPLY)
	case token.SLASH:
		c.emitOp(chunk.OP_DIVIDE)
	}
}

func (c *Compiler) and(canAssign bool) {
	// lhs is on the stack; skip the rhs when it is already false
	endJump := c.emitJump(chunk.OP_JUMP_IF_FALSE)

	c.emitOp(chunk.OP_POP)
	c.parsePrecedence(PREC_AND)

	c.patchJump(endJump)
}

func (c *Compiler) or(canAssign bool) {
	elseJump := c.emitJump(chunk.OP_JUMP_IF_FALSE)
	endJump := c.emitJump(chunk.OP_JUMP)

	c.patchJump(elseJump)
	c.emitOp(chunk.OP_POP)

	c.parsePrecedence(PREC_OR)
	c.patchJump(endJump)
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Type {
	case token.FALSE:
		c.emitOp(chunk.OP_FALSE)
	case token.TRUE:
		c.emitOp(chunk.OP_TRUE)
	case token.NIL:
		c.emitOp(chunk.OP_NIL)
	}
}

func (c *Compiler) number(canAssign bool) {
	n, _ := strconv.ParseFloat(c.previous.Literal, 64)
	c.emitConstant(value.NewNumber(n))
}

func (c *Compiler) stringLiteral(canAssign bool) {
	// trim the surrounding quotes
	chars := c.previous.Literal[1 : len(c.previous.Literal)-1]
	s := c.strings.Intern(chars)
	c.emitConstant(value.NewString(s))
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	operator := c.previous.Type

	c.parsePrecedence(PREC_UNARY)

	switch operator {
	case token.BANG:
		c.emitOp(chunk.OP_NOT)
	case token.MINUS:
		c.emitOp(chunk.OP_NEGATE)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp chunk.OpCode

	arg := c.resolveLocal(name)
	if arg != -1 {
		getOp = chunk.OP_GET_LOCAL
		setOp = chunk.OP_SET_LOCAL
	} else {
		arg = int(c.identifierConstant(name))
		getOp = chunk.OP_GET_GLOBAL
		setOp = chunk.OP_SET_GLOBAL
	}

	if canAssign && c.match(token.ASSIGN) {
		c.expression()
		c.emitOp(setOp)
		c.emitByte(byte(arg))
	} else {
		c.emitOp(getOp)
		c.emitByte(byte(arg))
	}
}

// ---- variables and scope ----

func (c *Compiler) parseVariable(errorMsg string) byte {
	c.consume(token.IDENTIFIER, errorMsg)

	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}

	return c.identifierConstant(c.previous)
}

func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}

	name := c.previous

	// a conflicting name in the same scope is an error; shadowing an outer
	// scope is fine
	for i := c.localCount - 1; i >= 0; i-- {
		local := &c.locals[i]
		if local.depth != -1 && local.depth < c.scopeDepth {
			break
		}
		if identifiersEqual(name, local.name) {
			c.error("Variable with this name has already been declared in this scope.")
		}
	}

	c.addLocal(name)
}

func (c *Compiler) addLocal(name token.Token) {
	if c.localCount == MaxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.locals[c.localCount] = Local{name: name, depth: -1}
	c.localCount++
}

func (c *Compiler) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		// The initializer already left the value on the stack, and that
		// slot is the local.
		c.markInitialized()
		return
	}

	c.emitOp(chunk.OP_DEFINE_GLOBAL)
	c.emitByte(global)
}

func (c *Compiler) markInitialized() {
	c.locals[c.localCount-1].depth = c.scopeDepth
}

func (c *Compiler) resolveLocal(name token.Token) int {
	for i := c.localCount - 1; i >= 0; i-- {
		local := &c.locals[i]
		if identifiersEqual(local.name, name) {
			if local.depth == -1 {
				c.error("Cannot read an uninitialized local variable.")
			}
			return i
		}
	}
	return -1
}

func (c *Compiler) identifierConstant(name token.Token) byte {
	s := c.strings.Intern(name.Literal)
	return c.makeConstant(value.NewString(s))
}

func identifiersEqual(a, b token.Token) bool {
	return a.Literal == b.Literal
}

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

func (c *Compiler) endScope() {
	c.scopeDepth--

	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		c.emitOp(chunk.OP_POP)
		c.localCount--
	}
}

// ---- emitters ----

func (c *Compiler) emitByte(b byte) {
	c.chunk.Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op chunk.OpCode) {
	c.emitByte(byte(op))
}

func (c *Compiler) emitOps(first, second chunk.OpCode) {
	c.emitOp(first)
	c.emitOp(second)
}

func (c *Compiler) emitReturn() {
	c.emitOp(chunk.OP_RETURN)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitOp(chunk.OP_CONSTANT)
	c.emitByte(c.makeConstant(v))
}

func (c *Compiler) makeConstant(v value.Value) byte {
	constant := c.chunk.AddConstant(v)
	if constant > 255 {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(constant)
}

// emitJump writes op with a two-byte placeholder and returns the
// placeholder's offset for patchJump.
func (c *Compiler) emitJump(op chunk.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return c.chunk.Size() - 2
}

// patchJump back-fills the placeholder at offset with the distance to the
// current end of the bytecode, big-endian.
func (c *Compiler) patchJump(offset int) {
	// the two placeholder bytes are consumed by the VM before jumping
	jump := c.chunk.Size() - offset - 2

	if jump > 65535 {
		c.error("Too much code to jump over.")
	}

	c.chunk.Code[offset] = byte(jump >> 8)
	c.chunk.Code[offset+1] = byte(jump)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(chunk.OP_LOOP)

	offset := c.chunk.Size() - loopStart + 2
	if offset > 65535 {
		c.error("Loop body too large.")
	}

	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

// ---- parser state ----

func (c *Compiler) advance() {
	c.previous = c.current

	for {
		c.current = c.lexer.NextToken()
		if c.current.Type != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Literal)
	}
}

func (c *Compiler) consume(tokenType token.TokenType, msg string) {
	if c.current.Type == tokenType {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) check(tokenType token.TokenType) bool {
	return c.current.Type == tokenType
}

func (c *Compiler) match(tokenType token.TokenType) bool {
	if !c.check(tokenType) {
		return false
	}
	c.advance()
	return true
}

// synchronize discards tokens until a statement boundary so one mistake
// does not cascade into a wall of errors.
func (c *Compiler) synchronize() {
	c.panicMode = false

	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}

		switch c.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// ---- error reporting ----

func (c *Compiler) error(msg string) {
	c.errorAt(c.previous, msg)
}

func (c *Compiler) errorAtCurrent(msg string) {
	c.errorAt(c.current, msg)
}

func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	fmt.Fprintf(c.errOut, "[line %d] Error", tok.Line)
	if tok.Type == token.EOF {
		fmt.Fprintf(c.errOut, " at end")
	} else if tok.Type != token.ERROR {
		fmt.Fprintf(c.errOut, " at '%s'", tok.Literal)
	}
	fmt.Fprintf(c.errOut, ": %s\n", msg)

	c.hadError = true
}
