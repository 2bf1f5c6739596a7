package md2docx

// BlockType identifies a block-level Markdown construct.
type BlockType int

const (
	BlockDoc BlockType = iota
	BlockQuote
	BlockUL
	BlockOL
	BlockLI
	BlockHR
	BlockH
	BlockCode
	BlockHTML
	BlockP
	BlockTable
	BlockTHead
	BlockTBody
	BlockTR
	BlockTH
	BlockTD
)

var blockNames = [...]string{"doc", "quote", "ul", "ol", "li", "hr", "h", "code", "html", "p", "table", "thead", "tbody", "tr", "th", "td"}

func (b BlockType) String() string {
	if int(b) < len(blockNames) {
		return blockNames[b]
	}
	return "block?"
}

// BlockDetail carries block attributes. Only the fields relevant to the
// block type are set.
type BlockDetail struct {
	Level   int  // heading level 1..6
	Start   int  // first number of an ordered list
	Columns int  // column count of a table
	Tight   bool // list without blank lines between items
}

// SpanType identifies an inline Markdown construct.
type SpanType int

const (
	SpanEm SpanType = iota
	SpanStrong
	SpanA
	SpanImg
	SpanCode
	SpanDel
	SpanU
)

var spanNames = [...]string{"em", "strong", "a", "img", "code", "del", "u"}

func (s SpanType) String() string {
	if int(s) < len(spanNames) {
		return spanNames[s]
	}
	return "span?"
}

// SpanDetail carries span attributes for links and images.
type SpanDetail struct {
	Dest  string
	Title string
	Alt   string // images only
}

// TextType identifies the kind of a text event.
type TextType int

const (
	TextNormal TextType = iota
	TextNullChar
	TextBreak
	TextSoftBreak
	TextEntity
	TextCode
	TextHTML
)

// Handler consumes the event stream of one Markdown parse. Returning an
// error stops the parse.
type Handler interface {
	EnterBlock(t BlockType, d BlockDetail) error
	LeaveBlock(t BlockType, d BlockDetail) error
	EnterSpan(t SpanType, d SpanDetail) error
	LeaveSpan(t SpanType, d SpanDetail) error
	Text(t TextType, text string) error
}

// Extensions selects the Markdown dialect features.
type Extensions struct {
	Tables        bool
	Strikethrough bool
	TaskLists     bool
	Autolinks     bool
	// Underline maps single-underscore emphasis (_x_) to underline.
	Underline bool
}

// AllExtensions enables every supported feature.
func AllExtensions() Extensions {
	return Extensions{Tables: true, Strikethrough: true, TaskLists: true, Autolinks: true, Underline: true}
}
