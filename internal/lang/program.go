package lang

import (
	"fmt"
	"sort"
	"strings"
)

// Instr is one instruction of a lowered program. Lowering flattens the
// statement tree into a list so that a program location is a plain
// instruction pointer, which keeps the state key small and exact.
type Instr interface {
	isInstr()
	String() string
}

// AssignInstr stores the result of Expr into Var.
type AssignInstr struct {
	Var  string
	Expr Expr
}

func (AssignInstr) isInstr() {}
func (i AssignInstr) String() string {
	return i.Var + " = " + i.Expr.String()
}

// IndexAssignInstr stores the result of Expr into Var[Index].
type IndexAssignInstr struct {
	Var   string
	Index Expr
	Expr  Expr
}

func (IndexAssignInstr) isInstr() {}
func (i IndexAssignInstr) String() string {
	return i.Var + "[" + i.Index.String() + "] = " + i.Expr.String()
}

// BranchInstr evaluates Cond; execution falls through when true and
// jumps to Else when false.
type BranchInstr struct {
	Cond Expr
	Else int
}

func (BranchInstr) isInstr() {}
func (i BranchInstr) String() string {
	return fmt.Sprintf("branch %s else %d", i.Cond.String(), i.Else)
}

// JumpInstr transfers control unconditionally.
type JumpInstr struct {
	Target int
}

func (JumpInstr) isInstr() {}
func (i JumpInstr) String() string {
	return fmt.Sprintf("jump %d", i.Target)
}

// ReturnInstr halts the program with the value of Value.
type ReturnInstr struct {
	Value Expr
}

func (ReturnInstr) isInstr() {}
func (i ReturnInstr) String() string {
	return "return " + i.Value.String()
}

// Program is a lowered finity program: a flat instruction list plus the
// static tables gathered from declarations. Execution falling past the
// last instruction halts with NilValue.
type Program struct {
	Instrs  []Instr
	Domains map[string]Domain
	Funcs   map[string]Lambda
	// Inputs are the free input variables (declared without an
	// initializer), sorted by name. Their domains' Cartesian product
	// forms the set of initial environments.
	Inputs []string
}

// InputDomains returns the domain of each free input variable, aligned
// with Inputs.
func (p *Program) InputDomains() []Domain {
	doms := make([]Domain, len(p.Inputs))
	for i, name := range p.Inputs {
		doms[i] = p.Domains[name]
	}
	return doms
}

// String renders the instruction listing, one instruction per line.
func (p *Program) String() string {
	var sb strings.Builder
	for i, in := range p.Instrs {
		fmt.Fprintf(&sb, "%3d: %s\n", i, in.String())
	}
	return sb.String()
}

// Lower flattens a statement list into a Program. It gathers declared
// domains and top-level lambdas, resolves jump targets, and performs the
// static checks that make exploration total: every referenced variable
// must carry a declared finite domain, every call target must exist.
func Lower(stmts []Stmt) (*Program, error) {
	p := &Program{
		Domains: make(map[string]Domain),
		Funcs:   make(map[string]Lambda),
	}

	if err := p.collectDecls(stmts); err != nil {
		return nil, err
	}

	for _, s := range stmts {
		if err := p.lowerStmt(s); err != nil {
			return nil, err
		}
	}

	if err := p.checkNames(stmts); err != nil {
		return nil, err
	}

	sort.Strings(p.Inputs)
	return p, nil
}

// collectDecls registers every declaration and lambda binding before
// lowering so that forward references resolve.
func (p *Program) collectDecls(stmts []Stmt) error {
	for _, s := range stmts {
		switch st := s.(type) {
		case DeclStmt:
			if _, ok := p.Domains[st.Var]; ok {
				return Rejectf(KindDomain, "duplicate declaration of %q", st.Var)
			}
			if _, ok := p.Funcs[st.Var]; ok {
				return Rejectf(KindName, "%q declared as both variable and function", st.Var)
			}
			if st.Domain == nil || st.Domain.Size() <= 0 {
				return Rejectf(KindDomain, "variable %q lacks a finite declared domain", st.Var)
			}
			p.Domains[st.Var] = st.Domain
			if st.Init == nil {
				p.Inputs = append(p.Inputs, st.Var)
			}
		case FuncStmt:
			if _, ok := p.Funcs[st.Name]; ok {
				return Rejectf(KindName, "duplicate function %q", st.Name)
			}
			if _, ok := p.Domains[st.Name]; ok {
				return Rejectf(KindName, "%q declared as both variable and function", st.Name)
			}
			p.Funcs[st.Name] = st.Lambda
		case BlockStmt:
			if err := p.collectDecls(st.Stmts); err != nil {
				return err
			}
		case IfStmt:
			sub := []Stmt{st.Then}
			if st.Else != nil {
				sub = append(sub, st.Else)
			}
			if err := p.collectDecls(sub); err != nil {
				return err
			}
		case WhileStmt:
			if err := p.collectDecls([]Stmt{st.Body}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Program) lowerStmt(s Stmt) error {
	switch st := s.(type) {
	case DeclStmt:
		if st.Init != nil {
			p.Instrs = append(p.Instrs, AssignInstr{Var: st.Var, Expr: st.Init})
		}

	case FuncStmt:
		// static table entry only

	case AssignStmt:
		if _, ok := p.Domains[st.Var]; !ok {
			return Rejectf(KindDomain, "variable %q lacks a finite declared domain", st.Var)
		}
		p.Instrs = append(p.Instrs, AssignInstr{Var: st.Var, Expr: st.Expr})

	case IndexAssignStmt:
		if _, ok := p.Domains[st.Var]; !ok {
			return Rejectf(KindDomain, "variable %q lacks a finite declared domain", st.Var)
		}
		p.Instrs = append(p.Instrs, IndexAssignInstr{Var: st.Var, Index: st.Index, Expr: st.Expr})

	case IfStmt:
		branchAt := len(p.Instrs)
		p.Instrs = append(p.Instrs, nil) // patched below
		if err := p.lowerStmt(st.Then); err != nil {
			return err
		}
		if st.Else == nil {
			p.Instrs[branchAt] = BranchInstr{Cond: st.Cond, Else: len(p.Instrs)}
			return nil
		}
		jumpAt := len(p.Instrs)
		p.Instrs = append(p.Instrs, nil)
		p.Instrs[branchAt] = BranchInstr{Cond: st.Cond, Else: len(p.Instrs)}
		if err := p.lowerStmt(st.Else); err != nil {
			return err
		}
		p.Instrs[jumpAt] = JumpInstr{Target: len(p.Instrs)}

	case WhileStmt:
		top := len(p.Instrs)
		p.Instrs = append(p.Instrs, nil)
		if err := p.lowerStmt(st.Body); err != nil {
			return err
		}
		p.Instrs = append(p.Instrs, JumpInstr{Target: top})
		p.Instrs[top] = BranchInstr{Cond: st.Cond, Else: len(p.Instrs)}

	case ReturnStmt:
		p.Instrs = append(p.Instrs, ReturnInstr{Value: st.Value})

	case BlockStmt:
		for _, sub := range st.Stmts {
			if err := p.lowerStmt(sub); err != nil {
				return err
			}
		}

	default:
		return Rejectf(KindName, "unsupported statement %T", s)
	}
	return nil
}

// checkNames verifies up front that every referenced name resolves to a
// declared variable, a lambda parameter in scope, or a function. This
// is the single static precondition that makes exploration decidable.
func (p *Program) checkNames(stmts []Stmt) error {
	for _, s := range stmts {
		if err := p.checkStmtNames(s); err != nil {
			return err
		}
	}
	for name, fn := range p.Funcs {
		scope := make(map[string]bool, len(fn.Params))
		for _, param := range fn.Params {
			scope[param] = true
		}
		if err := p.checkExprNames(fn.Body, scope); err != nil {
			return fmt.Errorf("in function %q: %w", name, err)
		}
	}
	return nil
}

func (p *Program) checkStmtNames(s Stmt) error {
	switch st := s.(type) {
	case DeclStmt:
		if st.Init != nil {
			return p.checkExprNames(st.Init, nil)
		}
	case AssignStmt:
		return p.checkExprNames(st.Expr, nil)
	case IndexAssignStmt:
		if err := p.checkExprNames(st.Index, nil); err != nil {
			return err
		}
		return p.checkExprNames(st.Expr, nil)
	case IfStmt:
		if err := p.checkExprNames(st.Cond, nil); err != nil {
			return err
		}
		if err := p.checkStmtNames(st.Then); err != nil {
			return err
		}
		if st.Else != nil {
			return p.checkStmtNames(st.Else)
		}
	case WhileStmt:
		if err := p.checkExprNames(st.Cond, nil); err != nil {
			return err
		}
		return p.checkStmtNames(st.Body)
	case ReturnStmt:
		return p.checkExprNames(st.Value, nil)
	case BlockStmt:
		for _, sub := range st.Stmts {
			if err := p.checkStmtNames(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Program) checkExprNames(e Expr, scope map[string]bool) error {
	switch ex := e.(type) {
	case VarExpr:
		if scope[ex.Name] {
			return nil
		}
		if _, ok := p.Domains[ex.Name]; ok {
			return nil
		}
		return Rejectf(KindDomain, "variable %q lacks a finite declared domain", ex.Name)
	case BinaryExpr:
		if err := p.checkExprNames(ex.Left, scope); err != nil {
			return err
		}
		return p.checkExprNames(ex.Right, scope)
	case UnaryExpr:
		return p.checkExprNames(ex.Operand, scope)
	case ArrayExpr:
		for _, el := range ex.Elems {
			if err := p.checkExprNames(el, scope); err != nil {
				return err
			}
		}
	case IndexExpr:
		if err := p.checkExprNames(ex.Base, scope); err != nil {
			return err
		}
		return p.checkExprNames(ex.Index, scope)
	case CallExpr:
		fn, ok := p.Funcs[ex.Func]
		if !ok {
			return Rejectf(KindName, "call to undefined function %q", ex.Func)
		}
		if len(ex.Args) != len(fn.Params) {
			return Rejectf(KindArity, "function %q expects %d arguments, got %d",
				ex.Func, len(fn.Params), len(ex.Args))
		}
		for _, a := range ex.Args {
			if err := p.checkExprNames(a, scope); err != nil {
				return err
			}
		}
	}
	return nil
}
