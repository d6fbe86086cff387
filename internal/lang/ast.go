package lang

import "strings"

// Expr represents an expression in the finity language.
type Expr interface {
	isExpr()
	String() string
}

// LiteralExpr represents a literal value.
type LiteralExpr struct {
	Val Value
}

func (LiteralExpr) isExpr() {}
func (e LiteralExpr) String() string {
	return e.Val.String()
}

// VarExpr represents a variable reference.
type VarExpr struct {
	Name string
}

func (VarExpr) isExpr() {}
func (e VarExpr) String() string {
	return e.Name
}

// BinaryOp represents binary operators.
type BinaryOp int

const (
	_ BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "?"
	}
}

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (BinaryExpr) isExpr() {}
func (e BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

// UnaryOp represents unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpNeg:
		return "-"
	default:
		return "?"
	}
}

// UnaryExpr represents a unary expression.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
}

func (UnaryExpr) isExpr() {}
func (e UnaryExpr) String() string {
	return "(" + e.Op.String() + e.Operand.String() + ")"
}

// ArrayExpr represents an array literal: [e1, e2, ...]
type ArrayExpr struct {
	Elems []Expr
}

func (ArrayExpr) isExpr() {}
func (e ArrayExpr) String() string {
	parts := make([]string, len(e.Elems))
	for i, el := range e.Elems {
		parts[i] = el.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// IndexExpr represents array indexing: base[index]
type IndexExpr struct {
	Base  Expr
	Index Expr
}

func (IndexExpr) isExpr() {}
func (e IndexExpr) String() string {
	return e.Base.String() + "[" + e.Index.String() + "]"
}

// CallExpr represents application of a named lambda: f(args...)
type CallExpr struct {
	Func string
	Args []Expr
}

func (CallExpr) isExpr() {}
func (e CallExpr) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return e.Func + "(" + strings.Join(parts, ", ") + ")"
}

// Lambda represents a lambda literal: (params...) -> body.
// Lambdas are bound once to a top-level name and live in the program's
// function table, never in an environment, so environment equality
// stays a pure first-order value comparison.
type Lambda struct {
	Params []string
	Body   Expr
}

func (l Lambda) String() string {
	return "(" + strings.Join(l.Params, ", ") + ") -> " + l.Body.String()
}

// Stmt represents a statement in the finity language.
type Stmt interface {
	isStmt()
	String() string
}

// DeclStmt declares a variable with a finite domain. A declaration
// without an initializer makes the variable a free program input whose
// domain is enumerated during exploration.
type DeclStmt struct {
	Var    string
	Domain Domain
	Init   Expr // nil for free input variables
}

func (DeclStmt) isStmt() {}
func (s DeclStmt) String() string {
	out := s.Domain.String() + " " + s.Var
	if s.Init != nil {
		out += " = " + s.Init.String()
	}
	return out
}

// AssignStmt represents an assignment: x = e
type AssignStmt struct {
	Var  string
	Expr Expr
}

func (AssignStmt) isStmt() {}
func (s AssignStmt) String() string {
	return s.Var + " = " + s.Expr.String()
}

// IndexAssignStmt represents an indexed assignment: x[i] = e
type IndexAssignStmt struct {
	Var   string
	Index Expr
	Expr  Expr
}

func (IndexAssignStmt) isStmt() {}
func (s IndexAssignStmt) String() string {
	return s.Var + "[" + s.Index.String() + "] = " + s.Expr.String()
}

// FuncStmt binds a lambda literal to a top-level name: f = (a, b) -> e
type FuncStmt struct {
	Name   string
	Lambda Lambda
}

func (FuncStmt) isStmt() {}
func (s FuncStmt) String() string {
	return s.Name + " = " + s.Lambda.String()
}

// IfStmt represents a conditional: if cond { then } else { els }
type IfStmt struct {
	Cond Expr
	Then Stmt
	Else Stmt // can be nil
}

func (IfStmt) isStmt() {}
func (s IfStmt) String() string {
	out := "if " + s.Cond.String() + " { " + s.Then.String() + " }"
	if s.Else != nil {
		out += " else { " + s.Else.String() + " }"
	}
	return out
}

// WhileStmt represents a loop: while cond { body }
type WhileStmt struct {
	Cond Expr
	Body Stmt
}

func (WhileStmt) isStmt() {}
func (s WhileStmt) String() string {
	return "while " + s.Cond.String() + " { " + s.Body.String() + " }"
}

// ReturnStmt halts the program with an output value.
type ReturnStmt struct {
	Value Expr
}

func (ReturnStmt) isStmt() {}
func (s ReturnStmt) String() string {
	return "return " + s.Value.String()
}

// BlockStmt represents a block of statements.
type BlockStmt struct {
	Stmts []Stmt
}

func (BlockStmt) isStmt() {}
func (s BlockStmt) String() string {
	if len(s.Stmts) == 0 {
		return "{}"
	}
	parts := make([]string, len(s.Stmts))
	for i, st := range s.Stmts {
		parts[i] = st.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

// Helper constructors, used heavily in tests.

// Lit creates a literal expression from a value.
func Lit(v Value) Expr {
	return LiteralExpr{Val: v}
}

// IntLit creates an integer literal expression.
func IntLit(v int64) Expr {
	return LiteralExpr{Val: IntValue{Val: v}}
}

// StrLit creates a string literal expression.
func StrLit(v string) Expr {
	return LiteralExpr{Val: StringValue{Val: v}}
}

// Var creates a variable reference expression.
func Var(name string) Expr {
	return VarExpr{Name: name}
}

// Binary creates a binary expression.
func Binary(op BinaryOp, left, right Expr) Expr {
	return BinaryExpr{Op: op, Left: left, Right: right}
}

// Unary creates a unary expression.
func Unary(op UnaryOp, operand Expr) Expr {
	return UnaryExpr{Op: op, Operand: operand}
}

// Index creates an indexing expression.
func Index(base, idx Expr) Expr {
	return IndexExpr{Base: base, Index: idx}
}

// Call creates a call expression.
func Call(fn string, args ...Expr) Expr {
	return CallExpr{Func: fn, Args: args}
}

// Decl declares a free input variable.
func Decl(name string, dom Domain) Stmt {
	return DeclStmt{Var: name, Domain: dom}
}

// DeclInit declares an initialized variable.
func DeclInit(name string, dom Domain, init Expr) Stmt {
	return DeclStmt{Var: name, Domain: dom, Init: init}
}

// Assign creates an assignment statement.
func Assign(v string, e Expr) Stmt {
	return AssignStmt{Var: v, Expr: e}
}

// AssignIndex creates an indexed assignment statement.
func AssignIndex(v string, idx, e Expr) Stmt {
	return IndexAssignStmt{Var: v, Index: idx, Expr: e}
}

// Func binds a lambda to a top-level name.
func Func(name string, params []string, body Expr) Stmt {
	return FuncStmt{Name: name, Lambda: Lambda{Params: params, Body: body}}
}

// If creates a conditional statement.
func If(cond Expr, then, els Stmt) Stmt {
	return IfStmt{Cond: cond, Then: then, Else: els}
}

// While creates a loop statement.
func While(cond Expr, body Stmt) Stmt {
	return WhileStmt{Cond: cond, Body: body}
}

// Return creates a return statement.
func Return(e Expr) Stmt {
	return ReturnStmt{Value: e}
}

// Block creates a block statement.
func Block(stmts ...Stmt) Stmt {
	return BlockStmt{Stmts: stmts}
}
