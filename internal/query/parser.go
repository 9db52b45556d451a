package query

// Parse parses src as a query expression and returns its AST. A parse
// failure is an apperror.InvalidInput carrying the byte offset at which
// it occurred.
func Parse(src string) (Node, error) {
	p := &parser{lex: newLexer(src)}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	tok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokEOF {
		return nil, parseErrorf(tok.offset, "unexpected trailing input")
	}
	return node, nil
}

type parser struct {
	lex *lexer
}

// orExpr := andExpr ("||" andExpr)*
func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.lex.peek()
		if err != nil {
			return nil, err
		}
		if tok.kind != tokOr {
			return left, nil
		}
		if _, err := p.lex.next(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BooleanOp{Op: Or, Left: left, Right: right}
	}
}

// andExpr := notExpr ("&&" notExpr)*
func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.lex.peek()
		if err != nil {
			return nil, err
		}
		if tok.kind != tokAnd {
			return left, nil
		}
		if _, err := p.lex.next(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = BooleanOp{Op: And, Left: left, Right: right}
	}
}

// notExpr := "!" notExpr | primary
func (p *parser) parseNot() (Node, error) {
	tok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokNot {
		if _, err := p.lex.next(); err != nil {
			return nil, err
		}
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Negation{Inner: inner}, nil
	}
	return p.parsePrimary()
}

// primary := "latest" ( "(" query? ")" )?
//
//	| "single" "(" query ")"
//	| "(" query ")"
//	| test
func (p *parser) parsePrimary() (Node, error) {
	tok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}

	switch {
	case tok.kind == tokIdent && tok.text == "latest":
		if _, err := p.lex.next(); err != nil {
			return nil, err
		}
		return p.parseLatest()
	case tok.kind == tokIdent && tok.text == "single":
		if _, err := p.lex.next(); err != nil {
			return nil, err
		}
		return p.parseSingle()
	case tok.kind == tokLParen:
		if _, err := p.lex.next(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return Brackets{Inner: inner}, nil
	default:
		return p.parseTest()
	}
}

func (p *parser) parseLatest() (Node, error) {
	tok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokLParen {
		return Latest{}, nil
	}
	if _, err := p.lex.next(); err != nil {
		return nil, err
	}

	closeTok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}
	if closeTok.kind == tokRParen {
		if _, err := p.lex.next(); err != nil {
			return nil, err
		}
		return Latest{}, nil
	}

	inner, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return Latest{Inner: inner}, nil
}

func (p *parser) parseSingle() (Node, error) {
	if err := p.expect(tokLParen, "'(' after 'single'"); err != nil {
		return nil, err
	}
	inner, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return Single{Inner: inner}, nil
}

// test := value cmp value
func (p *parser) parseTest() (Node, error) {
	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	tok, err := p.lex.next()
	if err != nil {
		return nil, err
	}
	op, ok := compareOpFor(tok.kind)
	if !ok {
		return nil, parseErrorf(tok.offset, "expected a comparison operator")
	}

	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	return Test{Op: op, Left: left, Right: right}, nil
}

func compareOpFor(kind tokenKind) (CompareOp, bool) {
	switch kind {
	case tokEq:
		return Equal, true
	case tokNotEq:
		return NotEqual, true
	case tokLt:
		return LessThan, true
	case tokLe:
		return LessThanOrEqual, true
	case tokGt:
		return GreaterThan, true
	case tokGe:
		return GreaterThanOrEqual, true
	default:
		return 0, false
	}
}

// value := literal | lookup
// literal := string | number | "true" | "false"
// lookup  := "name" | "id" | "parameter:" ident | "this:" ident | "environment:" ident
func (p *parser) parseValue() (Value, error) {
	tok, err := p.lex.next()
	if err != nil {
		return nil, err
	}

	switch tok.kind {
	case tokString:
		return StringLiteral(tok.text), nil
	case tokNumber:
		return NumberLiteral(tok.number), nil
	case tokIdent:
		return p.parseIdentValue(tok)
	default:
		return nil, parseErrorf(tok.offset, "expected a value")
	}
}

func (p *parser) parseIdentValue(tok token) (Value, error) {
	switch tok.text {
	case "true":
		return BoolLiteral(true), nil
	case "false":
		return BoolLiteral(false), nil
	case "name":
		return Lookup{Kind: LookupName}, nil
	case "id":
		return Lookup{Kind: LookupID}, nil
	}

	switch {
	case hasNamespace(tok.text, "parameter:"):
		return Lookup{Kind: LookupParameter, Name: tok.text[len("parameter:"):]}, nil
	case hasNamespace(tok.text, "this:"):
		return Lookup{Kind: LookupThis, Name: tok.text[len("this:"):]}, nil
	case hasNamespace(tok.text, "environment:"):
		return Lookup{Kind: LookupEnvironment, Name: tok.text[len("environment:"):]}, nil
	}

	return nil, parseErrorf(tok.offset, "unrecognised identifier '%s'", tok.text)
}

func hasNamespace(text, prefix string) bool {
	return len(text) > len(prefix) && text[:len(prefix)] == prefix
}

func (p *parser) expect(kind tokenKind, want string) error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	if tok.kind != kind {
		return parseErrorf(tok.offset, "expected %s", want)
	}
	return nil
}
