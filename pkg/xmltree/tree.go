package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound        = errors.New("file not found")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrParsing         = errors.New("parsing failure")
)

// SyntaxError reports malformed XML. Line is zero when the decoder gave no
// position.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("error parsing xml at line %d: %s", e.Line, e.Msg)
	}
	return "error parsing xml: " + e.Msg
}

func (e *SyntaxError) Unwrap() error {
	return ErrParsing
}

// Node is one element. Text holds the character data found directly
// inside the element, verbatim, and is only meaningful when HasText is
// true. Attributes are not kept.
type Node struct {
	Name     string
	Text     string
	HasText  bool
	Children []*Node
	Line     int
}

// IsLeaf reports whether the element has no element children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// ReadFile validates that path names an existing .xml file and parses it.
func ReadFile(path string) (*Node, error) {
	data, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	root, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// LoadFile returns the content of the .xml file at path.
func LoadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if !strings.EqualFold(filepath.Ext(path), ".xml") {
		return nil, fmt.Errorf("%s is not an xml file: %w", path, ErrInvalidFileType)
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, ErrNotFound)
	}
	return data, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse builds the element tree of a complete XML document and returns its
// root element.
func Parse(data []byte) (*Node, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	body := bytes.TrimSpace(data)
	if len(body) == 0 {
		return nil, &SyntaxError{Msg: "empty document"}
	}
	if body[0] != '<' {
		return nil, fmt.Errorf("content is not xml: %w", ErrInvalidFileType)
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	var (
		root  *Node
		stack []*Node
	)
	for {
		line, _ := dec.InputPos()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, syntaxError(err, line)
		}

		switch tok := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, &SyntaxError{Line: line, Msg: "multiple root elements"}
			}
			node := &Node{Name: tok.Name.Local, Line: line}
			if len(stack) == 0 {
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(tok)) > 0 {
					return nil, &SyntaxError{Line: line, Msg: "character data outside root element"}
				}
				continue
			}
			if len(tok) == 0 {
				continue
			}
			cur := stack[len(stack)-1]
			cur.Text += string(tok)
			cur.HasText = true
		}
	}

	if root == nil {
		return nil, &SyntaxError{Msg: "no root element"}
	}
	if len(stack) > 0 {
		return nil, &SyntaxError{Msg: fmt.Sprintf("unexpected end of document inside <%s>", stack[len(stack)-1].Name)}
	}
	return root, nil
}

func syntaxError(err error, line int) error {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return &SyntaxError{Line: se.Line, Msg: se.Msg}
	}
	return &SyntaxError{Line: line, Msg: err.Error()}
}
