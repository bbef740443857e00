package parser

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// rawSchema is the parse tree; it is converted to domain.Schema after parsing.
type rawSchema struct {
	Pos   lexer.Position
	Items []*rawItem `parser:"@@*"`
}

type rawItem struct {
	Model *rawModel `parser:"  @@"`
	Enum  *rawEnum  `parser:"| @@"`
}

type rawModel struct {
	Pos             lexer.Position
	Name            string          `parser:"\"model\" @Ident"`
	Fields          []*rawField     `parser:"\"{\" @@*"`
	BlockAttributes []*rawAttribute `parser:"(\"@@\" @@)* \"}\""`
}

type rawEnum struct {
	Pos    lexer.Position
	Name   string   `parser:"\"enum\" @Ident"`
	Values []string `parser:"\"{\" (@Ident \",\"?)* \"}\""`
}

type rawField struct {
	Pos          lexer.Position
	Name         string          `parser:"@(Ident | Keyword)"`
	Type         string          `parser:"@Ident"`
	ListSuffix   *string         `parser:"@(\"[\" \"]\")?"`
	OptionalMark *string         `parser:"@\"?\"?"`
	Attributes   []*rawAttribute `parser:"(\"@\" @@)*"`
}

type rawAttribute struct {
	Pos       lexer.Position
	Name      string         `parser:"@Ident (@\".\" @Ident)*"`
	Arguments []*rawArgument `parser:"(\"(\" (@@ (\",\" @@)*)? \")\")?"`
}

type rawArgument struct {
	Pos   lexer.Position
	Name  *string   `parser:"(@Ident \":\")?"`
	Value *rawValue `parser:"@@"`
}

type rawValue struct {
	Pos    lexer.Position
	String *string   `parser:"  @String"`
	Number *string   `parser:"| @Number"`
	Array  *rawArray `parser:"| @@"`
	Call   *rawCall  `parser:"| @@"`
	Ident  *string   `parser:"| @Ident"`
}

type rawArray struct {
	Elements []*rawValue `parser:"\"[\" (@@ (\",\" @@)*)? \"]\""`
}

type rawCall struct {
	Name      string      `parser:"@Ident \"(\""`
	Arguments []*rawValue `parser:"(@@ (\",\" @@)*)? \")\""`
}

var schemaParser = participle.MustBuild[rawSchema](
	participle.Lexer(SchemaLexer),
	participle.Elide("Whitespace", "Newline", "Comment", "MultiLineComment"),
	participle.Unquote("String"),
	participle.UseLookahead(10),
)
