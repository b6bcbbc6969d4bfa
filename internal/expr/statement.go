package expr

import (
	"github.com/canonical/surrealair/internal/fragment"
)

// Kind tags the variant of a Statement.
type Kind int

const (
	KindLet Kind = iota
	KindExpression
	KindReturn
	KindBreak
	KindContinue
	KindBeginTransaction
	KindCommitTransaction
	KindCancelTransaction
	KindFor
)

var kindNames = [...]string{
	KindLet:               "let",
	KindExpression:        "expression",
	KindReturn:            "return",
	KindBreak:             "break",
	KindContinue:          "continue",
	KindBeginTransaction:  "begin transaction",
	KindCommitTransaction: "commit transaction",
	KindCancelTransaction: "cancel transaction",
	KindFor:               "for",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Statement is one compiled statement. Building a statement writes its query
// text, including the terminating semicolon.
type Statement interface {
	fragment.Fragment
	Kind() Kind
	// String renders the statement with values inlined.
	String() string
}

// Let binds the result of an expression to a query variable.
type Let struct {
	Name  string
	Value fragment.Fragment
}

func (s *Let) Kind() Kind { return KindLet }

func (s *Let) BuildFragment(b *fragment.Builder) {
	b.WriteString("LET $" + s.Name + " = ")
	b.Write(s.Value)
	b.WriteString(";")
}

func (s *Let) String() string { return fragment.String(s) }

// Expression is a bare expression. Its result is reported under Name.
type Expression struct {
	Name string
	Expr fragment.Fragment
}

func (s *Expression) Kind() Kind { return KindExpression }

func (s *Expression) BuildFragment(b *fragment.Builder) {
	b.Write(s.Expr)
	b.WriteString(";")
}

func (s *Expression) String() string { return fragment.String(s) }

// Return ends the query with the value of an expression.
type Return struct {
	Value fragment.Fragment
}

func (s *Return) Kind() Kind { return KindReturn }

func (s *Return) BuildFragment(b *fragment.Builder) {
	b.WriteString("RETURN ")
	b.Write(s.Value)
	b.WriteString(";")
}

func (s *Return) String() string { return fragment.String(s) }

// keywordStatement is a statement made of fixed keywords only.
type keywordStatement struct {
	kind Kind
	text string
}

func (s *keywordStatement) Kind() Kind { return s.kind }

func (s *keywordStatement) BuildFragment(b *fragment.Builder) {
	b.WriteString(s.text)
}

func (s *keywordStatement) String() string { return s.text }

var (
	breakStatement    = &keywordStatement{KindBreak, "BREAK;"}
	continueStatement = &keywordStatement{KindContinue, "CONTINUE;"}
	beginStatement    = &keywordStatement{KindBeginTransaction, "BEGIN TRANSACTION;"}
	commitStatement   = &keywordStatement{KindCommitTransaction, "COMMIT TRANSACTION;"}
	cancelStatement   = &keywordStatement{KindCancelTransaction, "CANCEL TRANSACTION;"}
)

// Break returns the statement leaving the innermost loop.
func Break() Statement { return breakStatement }

// Continue returns the statement skipping to the next loop iteration.
func Continue() Statement { return continueStatement }

// BeginTransaction returns the statement opening a transaction.
func BeginTransaction() Statement { return beginStatement }

// CommitTransaction returns the statement committing a transaction.
func CommitTransaction() Statement { return commitStatement }

// CancelTransaction returns the statement cancelling a transaction.
func CancelTransaction() Statement { return cancelStatement }

// For runs Body once for every element of Iterable, bound to $Name.
// Result is the generated name of the loop's result slot.
type For struct {
	Name     string
	Result   string
	Iterable fragment.Fragment
	Body     []Statement
}

func (s *For) Kind() Kind { return KindFor }

func (s *For) BuildFragment(b *fragment.Builder) {
	b.WriteString("FOR $" + s.Name + " IN ")
	b.Write(s.Iterable)
	if len(s.Body) == 0 {
		b.WriteString(" {};")
		return
	}
	b.WriteString(" {")
	for _, st := range s.Body {
		b.WriteString(" ")
		b.Write(st)
	}
	b.WriteString(" };")
}

func (s *For) String() string { return fragment.String(s) }
