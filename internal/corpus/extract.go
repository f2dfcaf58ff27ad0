package corpus

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/seqscore/internal/ir"
)

// TempPrefix names the synthetic variables that hold nested call results.
const TempPrefix = "$tmp"

var (
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	castRe  = regexp.MustCompile(`^\(\s*[A-Za-z_][A-Za-z0-9_\s\*]*\)\s*`)
	exitRe  = regexp.MustCompile(`^(return|goto|exit|_exit|abort)\b`)
	outRe   = regexp.MustCompile(`^&\s*([A-Za-z_][A-Za-z0-9_]*)$`)
)

// Extractor pulls library calls out of C-like fixture source.
//
// A call is recorded when its name starts with one of the model's prefixes,
// or, for models without prefixes, when the model declares it. Names that
// match a prefix but are absent from the model are still recorded so the
// validator can report them as unknown symbols.
type Extractor struct {
	model *ir.InterfaceModel
}

// NewExtractor creates an extractor for model.
func NewExtractor(model *ir.InterfaceModel) *Extractor {
	return &Extractor{model: model}
}

// extraction is the state of one Extract call.
type extraction struct {
	src    []byte
	masked []byte
	lines  []int // offset of the start of each line
	bound  map[string]bool
	temps  int
	calls  []ir.Call
	exits  [][2]int // braces of if/else bodies that leave the function
}

// Extract returns the library calls of src in evaluation order.
//
// Comments, string and character literals and preprocessor lines are masked
// before scanning. A library call nested inside another library call's
// arguments is emitted first with a synthetic destination ($tmp1, $tmp2, ...)
// and the outer argument becomes a reference to it. "x = f(...)" and
// "T *x = f(...)" bind x, as does "&x" passed to a produces parameter. Identifiers previously bound by a library call are
// variable arguments; every other argument is a literal.
//
// Calls inside a braced if/else body whose last statement is return, goto,
// exit or abort are error paths and are left out of the sequence.
func (x *Extractor) Extract(src []byte) []ir.Call {
	e := &extraction{
		src:    src,
		masked: mask(src),
		bound:  make(map[string]bool),
		calls:  []ir.Call{},
	}
	e.lines = append(e.lines, 0)
	for i, c := range src {
		if c == '\n' {
			e.lines = append(e.lines, i+1)
		}
	}
	e.exits = e.exitBlocks()

	for pos := 0; pos < len(e.masked); {
		name, start, open, ok := e.nextIdent(pos, len(e.masked))
		if !ok {
			break
		}
		if end, skip := e.inExit(start); skip {
			pos = end + 1
			continue
		}
		if open < 0 || !x.isLibrary(name) {
			pos = start + len(name)
			continue
		}
		closing := e.matchParen(open)
		if closing < 0 {
			break
		}
		dest := e.destBefore(start)
		x.emit(e, name, start, open, closing, dest)
		pos = closing + 1
	}

	return e.calls
}

func (x *Extractor) isLibrary(name string) bool {
	if len(x.model.Prefixes) == 0 {
		_, ok := x.model.Function(name)
		return ok
	}
	for _, p := range x.model.Prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// emit records the call spanning [start, closing] after its nested calls.
func (x *Extractor) emit(e *extraction, name string, start, open, closing int, dest string) {
	call := ir.Call{Function: name, Args: []ir.Binding{}, Dest: dest, Line: e.lineOf(start)}
	fn, _ := x.model.Function(name)

	var outs []string
	for i, span := range e.splitArgs(open+1, closing) {
		if fn != nil && i < len(fn.Params) && fn.Params[i].Role == ir.RoleProduces {
			if m := outRe.FindStringSubmatch(strings.TrimSpace(string(e.masked[span[0]:span[1]]))); m != nil {
				call.Args = append(call.Args, ir.Out(m[1]))
				outs = append(outs, m[1])
				continue
			}
		}
		call.Args = append(call.Args, x.argument(e, span[0], span[1]))
	}

	e.calls = append(e.calls, call)
	for _, v := range outs {
		e.bound[v] = true
	}
	if dest != "" {
		e.bound[dest] = true
	}
}

// argument resolves one argument span, emitting nested calls first.
func (x *Extractor) argument(e *extraction, from, to int) ir.Binding {
	text := strings.TrimSpace(string(e.src[from:to]))
	var last string

	for pos := from; pos < to; {
		name, start, open, ok := e.nextIdent(pos, to)
		if !ok {
			break
		}
		if open < 0 || !x.isLibrary(name) {
			pos = start + len(name)
			continue
		}
		closing := e.matchParen(open)
		if closing < 0 || closing >= to {
			break
		}
		e.temps++
		last = fmt.Sprintf("%s%d", TempPrefix, e.temps)
		x.emit(e, name, start, open, closing, last)

		// the argument is exactly this call, possibly behind a cast
		inner := stripCast(string(e.masked[from:to]))
		if strings.TrimSpace(inner) == strings.TrimSpace(string(e.masked[start:closing+1])) {
			return ir.Var(last)
		}
		pos = closing + 1
	}

	ident := stripCast(text)
	if identRe.MatchString(ident) && e.bound[ident] {
		return ir.Var(ident)
	}
	return ir.Lit(text)
}

func stripCast(s string) string {
	s = strings.TrimSpace(s)
	for {
		loc := castRe.FindStringIndex(s)
		if loc == nil {
			return s
		}
		s = s[loc[1]:]
	}
}

// nextIdent finds the next identifier in masked[pos:end]. open is the offset
// of a '(' directly following it (whitespace allowed), or -1.
func (e *extraction) nextIdent(pos, end int) (name string, start, open int, ok bool) {
	m := e.masked
	for i := pos; i < end; i++ {
		if !isIdentStart(m[i]) || (i > 0 && isIdentChar(m[i-1])) {
			continue
		}
		j := i + 1
		for j < end && isIdentChar(m[j]) {
			j++
		}
		k := j
		for k < end && isSpace(m[k]) {
			k++
		}
		open = -1
		if k < end && m[k] == '(' {
			open = k
		}
		return string(m[i:j]), i, open, true
	}
	return "", 0, 0, false
}

// matchParen returns the offset of the ')' closing the '(' at open, or -1.
func (e *extraction) matchParen(open int) int {
	depth := 0
	for i := open; i < len(e.masked); i++ {
		switch e.masked[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchBrace returns the offset of the '}' closing the '{' at open, or -1.
func (e *extraction) matchBrace(open int) int {
	depth := 0
	for i := open; i < len(e.masked); i++ {
		switch e.masked[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// exitBlocks returns the spans of braced if/else bodies whose last
// statement is an early exit, in source order.
func (e *extraction) exitBlocks() [][2]int {
	var spans [][2]int
	for i, c := range e.masked {
		if c != '{' || !e.conditionalBody(i) {
			continue
		}
		closing := e.matchBrace(i)
		if closing < 0 {
			break
		}
		body := strings.TrimSpace(string(e.masked[i+1 : closing]))
		body = strings.TrimSuffix(body, ";")
		last := strings.TrimSpace(body[strings.LastIndexAny(body, ";{}")+1:])
		if exitRe.MatchString(last) {
			spans = append(spans, [2]int{i, closing})
		}
	}
	return spans
}

// conditionalBody reports whether the '{' at open starts the body of an
// if or else.
func (e *extraction) conditionalBody(open int) bool {
	m := e.masked
	i := open - 1
	for i >= 0 && isSpace(m[i]) {
		i--
	}
	if i < 0 {
		return false
	}
	if m[i] == ')' {
		depth := 0
		for ; i >= 0; i-- {
			if m[i] == ')' {
				depth++
			} else if m[i] == '(' {
				depth--
				if depth == 0 {
					break
				}
			}
		}
		if i < 0 {
			return false
		}
		i--
		for i >= 0 && isSpace(m[i]) {
			i--
		}
	}
	end := i + 1
	for i >= 0 && isIdentChar(m[i]) {
		i--
	}
	word := string(m[i+1 : end])
	return word == "if" || word == "else"
}

// inExit reports whether offset lies in an early-exit block and returns the
// end of the outermost such block.
func (e *extraction) inExit(offset int) (int, bool) {
	for _, span := range e.exits {
		if span[0] > offset {
			break
		}
		if offset < span[1] {
			return span[1], true
		}
	}
	return 0, false
}

// splitArgs splits masked[from:to] at top-level commas.
func (e *extraction) splitArgs(from, to int) [][2]int {
	if strings.TrimSpace(string(e.masked[from:to])) == "" {
		return nil
	}
	var spans [][2]int
	depth := 0
	begin := from
	for i := from; i < to; i++ {
		switch e.masked[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				spans = append(spans, [2]int{begin, i})
				begin = i + 1
			}
		}
	}
	return append(spans, [2]int{begin, to})
}

// destBefore returns the variable assigned by "x = call(...)" ending at
// start, or "" when the call is not a plain assignment.
func (e *extraction) destBefore(start int) string {
	m := e.masked
	i := start - 1
	for i >= 0 && isSpace(m[i]) {
		i--
	}
	// skip a cast between '=' and the call
	if i >= 0 && m[i] == ')' {
		depth := 0
		for ; i >= 0; i-- {
			if m[i] == ')' {
				depth++
			} else if m[i] == '(' {
				depth--
				if depth == 0 {
					i--
					break
				}
			}
		}
		for i >= 0 && isSpace(m[i]) {
			i--
		}
	}
	if i < 0 || m[i] != '=' {
		return ""
	}
	if i > 0 && strings.IndexByte("=!<>+-*/%&|^", m[i-1]) >= 0 {
		return ""
	}
	i--
	for i >= 0 && isSpace(m[i]) {
		i--
	}
	end := i + 1
	for i >= 0 && isIdentChar(m[i]) {
		i--
	}
	name := string(m[i+1 : end])
	if !identRe.MatchString(name) {
		return ""
	}
	if i >= 0 && (m[i] == '.' || (m[i] == '>' && i > 0 && m[i-1] == '-')) {
		return ""
	}
	return name
}

// lineOf returns the 1-based line of offset.
func (e *extraction) lineOf(offset int) int {
	lo, hi := 0, len(e.lines)
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if e.lines[mid] <= offset {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo + 1
}

// mask blanks comments, string and character literals and preprocessor
// lines, keeping newlines so offsets and line numbers are unchanged.
func mask(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)

	blank := func(from, to int) {
		for k := from; k < to && k < len(out); k++ {
			if out[k] != '\n' {
				out[k] = ' '
			}
		}
	}

	lineStart := true
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\n':
			lineStart = true
			i++
			continue
		case lineStart && c == '#':
			j := i
			for j < len(src) && src[j] != '\n' {
				if src[j] == '\\' && j+1 < len(src) {
					j++
				}
				j++
			}
			blank(i, j)
			i = j
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			j := i
			for j < len(src) && src[j] != '\n' {
				j++
			}
			blank(i, j)
			i = j
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			j := i + 2
			for j+1 < len(src) && !(src[j] == '*' && src[j+1] == '/') {
				j++
			}
			j = min(j+2, len(src))
			blank(i, j)
			i = j
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(src) && src[j] != c && src[j] != '\n' {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			// keep the quotes, blank the contents
			blank(i+1, j)
			if j < len(src) && src[j] == c {
				j++
			}
			i = j
		default:
			i++
		}
		if !isSpace(c) {
			lineStart = false
		}
	}
	return out
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}
