// Package ast defines the syntax tree produced by the parser.
//
// Every node keeps the token it was built from. String renders a canonical
// form of the node that the parser accepts again; it is stable but not
// source-identical (infix expressions are fully parenthesized, for example).
package ast

import (
	"bytes"
	"strings"

	"github.com/podhmo/coral/token"
)

// Node is implemented by every syntax tree node.
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement is a node that appears in statement position.
type Statement interface {
	Node
	statementNode()
}

// Expression is a node that produces a value.
type Expression interface {
	Node
	expressionNode()
}

// writeStatements renders stmts one after another. Expression statements that
// are followed by another statement are terminated with ';' so that the output
// cannot be re-read as a single call or infix expression.
func writeStatements(out *bytes.Buffer, stmts []Statement, sep string) {
	for i, s := range stmts {
		out.WriteString(s.String())
		if _, ok := s.(*ExpressionStatement); ok && i < len(stmts)-1 {
			out.WriteString(";")
		}
		out.WriteString(sep)
	}
}

func joinExpressions(exps []Expression) string {
	parts := make([]string, 0, len(exps))
	for _, e := range exps {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ", ")
}

// --- Statements ---

// Program is the root node of every parsed source.
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out bytes.Buffer
	writeStatements(&out, p.Statements, "\n")
	return out.String()
}

// LetStatement binds Name to Value in the current scope.
type LetStatement struct {
	Token token.Token // the 'let' token
	Name  *Identifier
	Value Expression
}

func (ls *LetStatement) statementNode()       {}
func (ls *LetStatement) TokenLiteral() string { return ls.Token.Literal }
func (ls *LetStatement) String() string {
	return ls.TokenLiteral() + " " + ls.Name.String() + " =  " + ls.Value.String() + ";"
}

// ReturnStatement leaves the enclosing function with ReturnValue.
type ReturnStatement struct {
	Token       token.Token // the 'return' token
	ReturnValue Expression
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) String() string {
	return rs.TokenLiteral() + " " + rs.ReturnValue.String() + ";"
}

// ExpressionStatement wraps an expression used as a statement.
type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) String() string       { return es.Expression.String() }

// BlockStatement is a braced statement list: a function body or an if branch.
type BlockStatement struct {
	Token      token.Token // the '{' token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	writeStatements(&out, bs.Statements, " ")
	out.WriteString("}")
	return out.String()
}

// --- Literals ---

type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }

type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntegerLiteral) String() string       { return il.Token.Literal }

type Boolean struct {
	Token token.Token
	Value bool
}

func (b *Boolean) expressionNode()      {}
func (b *Boolean) TokenLiteral() string { return b.Token.Literal }
func (b *Boolean) String() string       { return b.Token.Literal }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) String() string       { return `"` + sl.Value + `"` }

type ArrayLiteral struct {
	Token    token.Token // the '[' token
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode()      {}
func (al *ArrayLiteral) TokenLiteral() string { return al.Token.Literal }
func (al *ArrayLiteral) String() string {
	return "[" + joinExpressions(al.Elements) + "]"
}

// HashPair is one `key: value` entry of a hash literal.
type HashPair struct {
	Key   Expression
	Value Expression
}

// HashLiteral keeps its pairs in source order; the order has no meaning at
// runtime but keeps rendering deterministic.
type HashLiteral struct {
	Token token.Token // the '{' token
	Pairs []HashPair
}

func (hl *HashLiteral) expressionNode()      {}
func (hl *HashLiteral) TokenLiteral() string { return hl.Token.Literal }
func (hl *HashLiteral) String() string {
	pairs := make([]string, 0, len(hl.Pairs))
	for _, pair := range hl.Pairs {
		pairs = append(pairs, pair.Key.String()+": "+pair.Value.String())
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// FunctionLiteral is `fn(params) { body }`.
type FunctionLiteral struct {
	Token      token.Token // the 'fn' token
	Parameters []*Identifier
	Body       *BlockStatement
}

func (fl *FunctionLiteral) expressionNode()      {}
func (fl *FunctionLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FunctionLiteral) String() string {
	params := make([]string, 0, len(fl.Parameters))
	for _, p := range fl.Parameters {
		params = append(params, p.String())
	}
	return fl.TokenLiteral() + "(" + strings.Join(params, ", ") + ") " + fl.Body.String()
}

// --- Operators ---

type PrefixExpression struct {
	Token    token.Token // the prefix token, e.g. '!'
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

type InfixExpression struct {
	Token    token.Token // the operator token, e.g. '+'
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) String() string {
	return "( " + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + " )"
}

// IfExpression evaluates to the value of the branch taken. Alternative is nil
// when there is no else branch.
type IfExpression struct {
	Token       token.Token // the 'if' token
	Condition   Expression
	Consequence *BlockStatement
	Alternative *BlockStatement
}

func (ie *IfExpression) expressionNode()      {}
func (ie *IfExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IfExpression) String() string {
	var out bytes.Buffer
	out.WriteString("if (")
	out.WriteString(ie.Condition.String())
	out.WriteString(") ")
	out.WriteString(ie.Consequence.String())
	if ie.Alternative != nil {
		out.WriteString(" else ")
		out.WriteString(ie.Alternative.String())
	}
	return out.String()
}

type CallExpression struct {
	Token     token.Token // the '(' token
	Function  Expression  // Identifier or FunctionLiteral
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) String() string {
	return ce.Function.String() + "(" + joinExpressions(ce.Arguments) + ")"
}

type IndexExpression struct {
	Token token.Token // the '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) String() string {
	return "(" + ie.Left.String() + "[" + ie.Index.String() + "])"
}

// ChainExpression is a method call on a receiver: `recv.name`, `recv.name(args)`
// or `recv.name[index]`.
//
// Member is one of *Identifier, *CallExpression whose Function is an
// *Identifier, or *IndexExpression whose Left is an *Identifier.
type ChainExpression struct {
	Token    token.Token // the '.' token
	Receiver Expression
	Member   Expression
}

func (ce *ChainExpression) expressionNode()      {}
func (ce *ChainExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *ChainExpression) String() string {
	member := ce.Member.String()
	if ie, ok := ce.Member.(*IndexExpression); ok {
		member = ie.Left.String() + "[" + ie.Index.String() + "]"
	}
	return ce.Receiver.String() + "." + member
}

// MethodName returns the name of the method that the chain invokes.
func (ce *ChainExpression) MethodName() string {
	switch m := ce.Member.(type) {
	case *Identifier:
		return m.Value
	case *CallExpression:
		return m.Function.String()
	case *IndexExpression:
		return m.Left.String()
	default:
		return ce.Member.String()
	}
}
