package types

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/storage/errors"
)

// Parse reads a type string such as "var * {x: int64, y: ?float64}". A leading
// "N *" is read as a RegularType; use ParseArray for whole-array types.
func Parse(s string) (Type, error) {
	p := &parser{src: s}
	p.next()
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %q after type", p.tok.text)
	}
	return t, nil
}

// ParseArray reads "N * T" as an ArrayType of length N.
func ParseArray(s string) (ArrayType, error) {
	t, err := Parse(s)
	if err != nil {
		return ArrayType{}, err
	}
	reg, ok := t.(RegularType)
	if !ok || !reg.Params.IsEmpty() {
		return ArrayType{}, errors.Typef("types.ParseArray", "%q does not start with a length", s)
	}
	return ArrayType{Content: reg.Content, Length: reg.Size}, nil
}

// MustParse is Parse that panics on error; intended for tests and literals.
func MustParse(s string) Type {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokString
	tokPunct
	tokParams
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type parser struct {
	src string
	pos int
	tok token
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.New(errors.ErrType).
		Op("types.Parse").
		Offset(int64(p.tok.pos)).
		Message(format, args...).
		Context("input", p.src).
		Build()
}

func (p *parser) next() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
	start := p.pos
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}
	c := p.src[p.pos]
	switch {
	case strings.HasPrefix(p.src[p.pos:], "parameters="):
		p.pos += len("parameters=")
		end := scanJSONObject(p.src, p.pos)
		p.tok = token{kind: tokParams, text: p.src[p.pos:end], pos: start}
		p.pos = end
	case c == '"':
		end := p.pos + 1
		for end < len(p.src) && p.src[end] != '"' {
			if p.src[end] == '\\' {
				end++
			}
			end++
		}
		if end < len(p.src) {
			end++
		}
		p.tok = token{kind: tokString, text: p.src[p.pos:end], pos: start}
		p.pos = end
	case c >= '0' && c <= '9':
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		p.tok = token{kind: tokInt, text: p.src[start:p.pos], pos: start}
	case c == '_' || unicode.IsLetter(rune(c)):
		for p.pos < len(p.src) && (p.src[p.pos] == '_' || unicode.IsLetter(rune(p.src[p.pos])) || unicode.IsDigit(rune(p.src[p.pos]))) {
			p.pos++
		}
		p.tok = token{kind: tokIdent, text: p.src[start:p.pos], pos: start}
	default:
		p.pos++
		p.tok = token{kind: tokPunct, text: string(c), pos: start}
	}
}

// scanJSONObject returns the end of the balanced JSON object starting at i.
func scanJSONObject(s string, i int) int {
	depth := 0
	inString := false
	for ; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}

func (p *parser) expect(punct string) error {
	if p.tok.kind != tokPunct || p.tok.text != punct {
		return p.errorf("expected %q, got %q", punct, p.tok.text)
	}
	p.next()
	return nil
}

func (p *parser) isPunct(punct string) bool {
	return p.tok.kind == tokPunct && p.tok.text == punct
}

func (p *parser) parseParams() (Parameters, error) {
	var params Parameters
	if err := params.UnmarshalJSON([]byte(p.tok.text)); err != nil {
		return Parameters{}, p.errorf("invalid parameters: %v", err)
	}
	p.next()
	return params, nil
}

// optionalParams reads ", parameters={...}" if present.
func (p *parser) optionalParams() (Parameters, error) {
	if !p.isPunct(",") {
		return Parameters{}, nil
	}
	p.next()
	if p.tok.kind != tokParams {
		return Parameters{}, p.errorf("expected parameters, got %q", p.tok.text)
	}
	return p.parseParams()
}

// bracketParams reads "[parameters={...}]" if present.
func (p *parser) bracketParams() (Parameters, error) {
	if !p.isPunct("[") {
		return Parameters{}, nil
	}
	p.next()
	if p.tok.kind != tokParams {
		return Parameters{}, p.errorf("expected parameters, got %q", p.tok.text)
	}
	params, err := p.parseParams()
	if err != nil {
		return Parameters{}, err
	}
	return params, p.expect("]")
}

func (p *parser) parseType() (Type, error) {
	switch p.tok.kind {
	case tokInt:
		size, _ := strconv.Atoi(p.tok.text)
		p.next()
		if err := p.expect("*"); err != nil {
			return nil, err
		}
		content, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return RegularType{Content: content, Size: size}, nil
	case tokPunct:
		switch p.tok.text {
		case "?":
			p.next()
			content, err := p.parseType()
			if err != nil {
				return nil, err
			}
			return OptionType{Content: content}, nil
		case "{":
			p.next()
			contents, fields, err := p.parseFields("}")
			if err != nil {
				return nil, err
			}
			return RecordType{Contents: contents, Fields: fields}, nil
		case "(":
			p.next()
			contents, err := p.parseTypeList(")")
			if err != nil {
				return nil, err
			}
			return RecordType{Contents: contents}, nil
		case "[":
			return p.parseBracketDimension()
		}
	case tokIdent:
		return p.parseNamed()
	}
	return nil, p.errorf("unexpected %q", p.tok.text)
}

// parseBracketDimension reads "[var * T, parameters={...}]" or "[N * T, ...]".
func (p *parser) parseBracketDimension() (Type, error) {
	p.next()
	var size = -1
	switch {
	case p.tok.kind == tokIdent && p.tok.text == "var":
	case p.tok.kind == tokInt:
		size, _ = strconv.Atoi(p.tok.text)
	default:
		return nil, p.errorf("expected dimension, got %q", p.tok.text)
	}
	p.next()
	if err := p.expect("*"); err != nil {
		return nil, err
	}
	content, err := p.parseType()
	if err != nil {
		return nil, err
	}
	params, err := p.optionalParams()
	if err != nil {
		return nil, err
	}
	if err := p.expect("]"); err != nil {
		return nil, err
	}
	if size < 0 {
		return ListType{Content: content, Params: params}, nil
	}
	return RegularType{Content: content, Size: size, Params: params}, nil
}

func (p *parser) parseNamed() (Type, error) {
	name := p.tok.text
	p.next()
	switch name {
	case "var":
		if err := p.expect("*"); err != nil {
			return nil, err
		}
		content, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return ListType{Content: content}, nil
	case "unknown":
		params, err := p.bracketParams()
		return UnknownType{Params: params}, err
	case "string", "bytes":
		leaf, outer := "char", "string"
		if name == "bytes" {
			leaf, outer = "byte", "bytestring"
		}
		content := NumpyType{Primitive: dtype.Uint8, Params: NewParameters(ArrayKey, leaf)}
		if p.isPunct("[") {
			p.next()
			if p.tok.kind != tokInt {
				return nil, p.errorf("expected size, got %q", p.tok.text)
			}
			size, _ := strconv.Atoi(p.tok.text)
			p.next()
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			return RegularType{Content: content, Size: size, Params: NewParameters(ArrayKey, outer)}, nil
		}
		return ListType{Content: content, Params: NewParameters(ArrayKey, outer)}, nil
	case "char", "byte":
		params, err := p.bracketParams()
		if err != nil {
			return nil, err
		}
		return NumpyType{Primitive: dtype.Uint8, Params: NewParameters(ArrayKey, name).Merge(params)}, nil
	case "option":
		if err := p.expect("["); err != nil {
			return nil, err
		}
		content, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params, err := p.optionalParams()
		if err != nil {
			return nil, err
		}
		return OptionType{Content: content, Params: params}, p.expect("]")
	case "union":
		if err := p.expect("["); err != nil {
			return nil, err
		}
		var contents []Type
		var params Parameters
		for !p.isPunct("]") {
			if p.tok.kind == tokParams {
				var err error
				if params, err = p.parseParams(); err != nil {
					return nil, err
				}
				break
			}
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			contents = append(contents, t)
			if p.isPunct(",") {
				p.next()
			}
		}
		return UnionType{Contents: contents, Params: params}, p.expect("]")
	case "struct":
		if err := p.expect("["); err != nil {
			return nil, err
		}
		if err := p.expect("{"); err != nil {
			return nil, err
		}
		contents, fields, err := p.parseFields("}")
		if err != nil {
			return nil, err
		}
		params, err := p.optionalParams()
		if err != nil {
			return nil, err
		}
		return RecordType{Contents: contents, Fields: fields, Params: params}, p.expect("]")
	case "tuple":
		if err := p.expect("["); err != nil {
			return nil, err
		}
		if err := p.expect("["); err != nil {
			return nil, err
		}
		contents, err := p.parseTypeList("]")
		if err != nil {
			return nil, err
		}
		params, err := p.optionalParams()
		if err != nil {
			return nil, err
		}
		return RecordType{Contents: contents, Params: params}, p.expect("]")
	}
	if dt, err := dtype.Parse(name); err == nil {
		params, err := p.bracketParams()
		return NumpyType{Primitive: dt, Params: params}, err
	}
	return p.parseNamedRecord(name)
}

// parseNamedRecord reads Name[x: T, ...] or Name[T, ...].
func (p *parser) parseNamedRecord(name string) (Type, error) {
	if err := p.expect("["); err != nil {
		return nil, err
	}
	params := NewParameters(RecordKey, name)
	var contents []Type
	var fields []string
	tuple := true
	for i := 0; !p.isPunct("]"); i++ {
		if p.tok.kind == tokParams {
			extra, err := p.parseParams()
			if err != nil {
				return nil, err
			}
			params = params.Merge(extra)
			break
		}
		if i == 0 {
			tuple = !p.peekField()
		}
		if !tuple {
			field, err := p.parseFieldName()
			if err != nil {
				return nil, err
			}
			fields = append(fields, field)
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		contents = append(contents, t)
		if p.isPunct(",") {
			p.next()
		}
	}
	if err := p.expect("]"); err != nil {
		return nil, err
	}
	if tuple {
		fields = nil
	} else if fields == nil {
		fields = []string{}
	}
	return RecordType{Contents: contents, Fields: fields, Params: params}, nil
}

// peekField reports whether the current token is followed by ':'.
func (p *parser) peekField() bool {
	if p.tok.kind != tokIdent && p.tok.kind != tokString {
		return false
	}
	i := p.pos
	for i < len(p.src) && unicode.IsSpace(rune(p.src[i])) {
		i++
	}
	return i < len(p.src) && p.src[i] == ':'
}

func (p *parser) parseFieldName() (string, error) {
	var name string
	switch p.tok.kind {
	case tokIdent:
		name = p.tok.text
	case tokString:
		unquoted, err := strconv.Unquote(p.tok.text)
		if err != nil {
			return "", p.errorf("invalid field name %s", p.tok.text)
		}
		name = unquoted
	default:
		return "", p.errorf("expected field name, got %q", p.tok.text)
	}
	p.next()
	return name, p.expect(":")
}

func (p *parser) parseFields(closing string) ([]Type, []string, error) {
	contents := []Type{}
	fields := []string{}
	for !p.isPunct(closing) {
		field, err := p.parseFieldName()
		if err != nil {
			return nil, nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, nil, err
		}
		fields = append(fields, field)
		contents = append(contents, t)
		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	return contents, fields, p.expect(closing)
}

func (p *parser) parseTypeList(closing string) ([]Type, error) {
	contents := []Type{}
	for !p.isPunct(closing) {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		contents = append(contents, t)
		if !p.isPunct(",") {
			break
		}
		p.next()
	}
	return contents, p.expect(closing)
}
