package sql

// Statement tree produced by the parser and consumed by the planner. Every
// node exclusively owns its children, the planner relies on Clone to produce
// independent copies before any branch specific rewriting.

const (
	NodeSelect = iota
	NodeSelectList
	NodeAll
	NodeDerivedColumn
	NodeColumnAlias
	NodeFrom
	NodeTableName
	NodeWhere
	NodeGroupBy
	NodeLimit
	NodeOffset
	NodeColumnName
	NodeResolvedColumn
	NodeMethodCall
	NodeLiteral
	NodeSeries
	NodeSeriesName
	NodeDraw

	// operators
	NodeEqExpr
	NodeNeqExpr
	NodeLtExpr
	NodeLteExpr
	NodeGtExpr
	NodeGteExpr
	NodeAndExpr
	NodeOrExpr
	NodeAddExpr
	NodeSubExpr
	NodeMulExpr
	NodeDivExpr
	NodeModExpr
	NodePowExpr
	NodeNegateExpr
	NodeNotExpr
	NodeLikeExpr
)

func NodeName(tag int) string {
	switch tag {
	case NodeSelect:
		return "SELECT"
	case NodeSelectList:
		return "SELECT_LIST"
	case NodeAll:
		return "ALL"
	case NodeDerivedColumn:
		return "DERIVED_COLUMN"
	case NodeColumnAlias:
		return "COLUMN_ALIAS"
	case NodeFrom:
		return "FROM"
	case NodeTableName:
		return "TABLE_NAME"
	case NodeWhere:
		return "WHERE"
	case NodeGroupBy:
		return "GROUP_BY"
	case NodeLimit:
		return "LIMIT"
	case NodeOffset:
		return "OFFSET"
	case NodeColumnName:
		return "COLUMN_NAME"
	case NodeResolvedColumn:
		return "RESOLVED_COLUMN"
	case NodeMethodCall:
		return "METHOD_CALL"
	case NodeLiteral:
		return "LITERAL"
	case NodeSeries:
		return "SERIES"
	case NodeSeriesName:
		return "SERIES_NAME"
	case NodeDraw:
		return "DRAW"
	case NodeEqExpr:
		return "EQ_EXPR"
	case NodeNeqExpr:
		return "NEQ_EXPR"
	case NodeLtExpr:
		return "LT_EXPR"
	case NodeLteExpr:
		return "LTE_EXPR"
	case NodeGtExpr:
		return "GT_EXPR"
	case NodeGteExpr:
		return "GTE_EXPR"
	case NodeAndExpr:
		return "AND_EXPR"
	case NodeOrExpr:
		return "OR_EXPR"
	case NodeAddExpr:
		return "ADD_EXPR"
	case NodeSubExpr:
		return "SUB_EXPR"
	case NodeMulExpr:
		return "MUL_EXPR"
	case NodeDivExpr:
		return "DIV_EXPR"
	case NodeModExpr:
		return "MOD_EXPR"
	case NodePowExpr:
		return "POW_EXPR"
	case NodeNegateExpr:
		return "NEGATE_EXPR"
	case NodeNotExpr:
		return "NOT_EXPR"
	case NodeLikeExpr:
		return "LIKE_EXPR"
	default:
		return "UNKNOWN"
	}
}

// Token payload, Type is one of the Tk constants.
type Token struct {
	Type int
	Text string
	Int  int64
	Real float64
}

func (self *Token) Clone() *Token {
	if self == nil {
		return nil
	}
	x := *self
	return &x
}

func (self *Token) Equal(that *Token) bool {
	if self == nil || that == nil {
		return self == that
	}
	return *self == *that
}

type Node struct {
	Tag      int
	Children []*Node
	Token    *Token

	// only meaningful for NodeResolvedColumn
	ID int
}

func NewNode(tag int, children ...*Node) *Node {
	return &Node{
		Tag:      tag,
		Children: children,
	}
}

func NewTokenNode(tag int, tk *Token, children ...*Node) *Node {
	return &Node{
		Tag:      tag,
		Children: children,
		Token:    tk,
	}
}

// Clone performs a deep copy of the subtree, token included.
func (self *Node) Clone() *Node {
	if self == nil {
		return nil
	}
	n := &Node{
		Tag:   self.Tag,
		Token: self.Token.Clone(),
		ID:    self.ID,
	}
	if len(self.Children) > 0 {
		n.Children = make([]*Node, 0, len(self.Children))
		for _, c := range self.Children {
			n.Children = append(n.Children, c.Clone())
		}
	}
	return n
}

func (self *Node) AppendChild(n *Node) int {
	self.Children = append(self.Children, n)
	return len(self.Children) - 1
}

// InsertChild puts n at idx, shifting the rest to the right. An idx beyond
// the end appends.
func (self *Node) InsertChild(idx int, n *Node) {
	if idx >= len(self.Children) {
		self.Children = append(self.Children, n)
		return
	}
	if idx < 0 {
		idx = 0
	}
	self.Children = append(self.Children, nil)
	copy(self.Children[idx+1:], self.Children[idx:])
	self.Children[idx] = n
}

func (self *Node) RemoveChild(idx int) *Node {
	if idx < 0 || idx >= len(self.Children) {
		return nil
	}
	n := self.Children[idx]
	self.Children = append(self.Children[:idx], self.Children[idx+1:]...)
	return n
}

// FindChild returns the index of the first direct child carrying the tag or
// -1 when there is none.
func (self *Node) FindChild(tag int) int {
	for idx, c := range self.Children {
		if c.Tag == tag {
			return idx
		}
	}
	return -1
}

func (self *Node) Child(tag int) *Node {
	if idx := self.FindChild(tag); idx >= 0 {
		return self.Children[idx]
	}
	return nil
}

// Equal compares two trees structurally, identity is never considered.
func (self *Node) Equal(that *Node) bool {
	if self == nil || that == nil {
		return self == that
	}
	if self.Tag != that.Tag || self.ID != that.ID {
		return false
	}
	if !self.Token.Equal(that.Token) {
		return false
	}
	if len(self.Children) != len(that.Children) {
		return false
	}
	for idx, c := range self.Children {
		if !c.Equal(that.Children[idx]) {
			return false
		}
	}
	return true
}

// Text returns the token text or an empty string.
func (self *Node) Text() string {
	if self.Token == nil {
		return ""
	}
	return self.Token.Text
}

// Walk visits the subtree depth first, pre-order. Returning false from the
// visitor stops the walk.
func (self *Node) Walk(visit func(*Node) bool) bool {
	if !visit(self) {
		return false
	}
	for _, c := range self.Children {
		if !c.Walk(visit) {
			return false
		}
	}
	return true
}
