// Package defs tokenizes Ultima Online rule files such as Body.def and
// mobtypes.txt.
//
// Rule files are Windows-1252 text. Each line holds whitespace separated
// fields; a field may be a brace group "{1, 2, 3}" listing several values.
// Everything after '#' is a comment. Empty and comment-only lines are skipped.
package defs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrField is returned when a field is absent or not a number.
	ErrField = errors.New("defs: bad field")

	// ErrSyntax is returned for unbalanced brace groups.
	ErrSyntax = errors.New("defs: syntax error")
)

// Reader iterates over the lines of a rule file.
type Reader struct {
	sc     *bufio.Scanner
	closer io.Closer
	line   int
	fields [][]string
	err    error
}

// Open opens a rule file. The caller must Close the reader.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("defs: %w", err)
	}
	r := NewReader(f)
	r.closer = f
	return r, nil
}

// NewReader reads Windows-1252 rule text from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{sc: bufio.NewScanner(charmap.Windows1252.NewDecoder().Reader(r))}
}

// Next advances to the next line with at least one field. Lines with
// unbalanced braces are skipped; Err reports the last one seen.
func (r *Reader) Next() bool {
	for r.sc.Scan() {
		r.line++
		fields, err := Split(r.sc.Text())
		if err != nil {
			r.err = fmt.Errorf("line %d: %w", r.line, err)
			continue
		}
		if len(fields) == 0 {
			continue
		}
		r.fields = fields
		return true
	}
	if err := r.sc.Err(); err != nil {
		r.err = err
	}
	r.fields = nil
	return false
}

// Err returns the last read or syntax error.
func (r *Reader) Err() error {
	return r.err
}

// Line returns the 1-based number of the current line.
func (r *Reader) Line() int {
	return r.line
}

// Len returns the number of fields on the current line.
func (r *Reader) Len() int {
	return len(r.fields)
}

// String returns the first token of field i, or "" when absent.
func (r *Reader) String(i int) string {
	if i < 0 || i >= len(r.fields) || len(r.fields[i]) == 0 {
		return ""
	}
	return r.fields[i][0]
}

// Int parses the first token of field i as a decimal (or 0x-prefixed hex)
// integer.
func (r *Reader) Int(i int) (int, error) {
	tok := r.String(i)
	if tok == "" {
		return 0, fmt.Errorf("%w: line %d field %d missing", ErrField, r.line, i)
	}
	v, err := ParseInt(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d field %d: %w", ErrField, r.line, i, err)
	}
	return v, nil
}

// Hex parses the first token of field i as hexadecimal, with or without a
// 0x prefix.
func (r *Reader) Hex(i int) (uint32, error) {
	tok := r.String(i)
	if tok == "" {
		return 0, fmt.Errorf("%w: line %d field %d missing", ErrField, r.line, i)
	}
	v, err := strconv.ParseUint(trimHexPrefix(tok), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d field %d: %w", ErrField, r.line, i, err)
	}
	return uint32(v), nil
}

// Group parses every token of field i as an integer. A plain field yields a
// one-element group.
func (r *Reader) Group(i int) ([]int, error) {
	if i < 0 || i >= len(r.fields) || len(r.fields[i]) == 0 {
		return nil, fmt.Errorf("%w: line %d group %d missing", ErrField, r.line, i)
	}
	out := make([]int, 0, len(r.fields[i]))
	for _, tok := range r.fields[i] {
		v, err := ParseInt(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d group %d: %w", ErrField, r.line, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Close closes the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ParseInt parses a decimal integer, or a hex integer with a 0x prefix.
func ParseInt(tok string) (int, error) {
	if h := trimHexPrefix(tok); h != tok {
		v, err := strconv.ParseInt(h, 16, 64)
		return int(v), err
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	return int(v), err
}

func trimHexPrefix(tok string) string {
	if len(tok) > 2 && tok[0] == '0' && (tok[1] == 'x' || tok[1] == 'X') {
		return tok[2:]
	}
	return tok
}

// Split tokenizes one line into fields. Brace groups become one field
// holding their comma or space separated tokens; an empty group is dropped.
func Split(line string) ([][]string, error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}

	var fields [][]string
	for rest := strings.TrimSpace(line); rest != ""; rest = strings.TrimSpace(rest) {
		if rest[0] == '{' {
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed group", ErrSyntax)
			}
			group := strings.FieldsFunc(rest[1:end], func(r rune) bool {
				return r == ',' || r == ' ' || r == '\t'
			})
			if len(group) > 0 {
				fields = append(fields, group)
			}
			rest = rest[end+1:]
			continue
		}
		if rest[0] == '}' {
			return nil, fmt.Errorf("%w: stray '}'", ErrSyntax)
		}
		end := strings.IndexAny(rest, " \t{")
		if end < 0 {
			end = len(rest)
		}
		fields = append(fields, []string{rest[:end]})
		rest = rest[end:]
	}
	return fields, nil
}
