package markdown

import (
	"strings"

	"github.com/russross/blackfriday/v2"
)

// Section is a heading with the list items that follow it
type Section struct {
	Title string
	Level int
	Items []string
}

func parse(src string) *blackfriday.Node {
	md := blackfriday.New(blackfriday.WithExtensions(blackfriday.CommonExtensions))
	return md.Parse([]byte(src))
}

// ExtractCodeBlocks returns the bodies of fenced code blocks in src. When
// lang is not empty only blocks whose info string starts with lang are kept.
func ExtractCodeBlocks(src, lang string) []string {
	if src == "" {
		return nil
	}

	var blocks []string
	parse(src).Walk(func(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering || node.Type != blackfriday.CodeBlock {
			return blackfriday.GoToNext
		}
		info := strings.TrimSpace(string(node.CodeBlockData.Info))
		if lang == "" || strings.HasPrefix(strings.ToLower(info), lang) {
			blocks = append(blocks, strings.TrimSpace(string(node.Literal)))
		}
		return blackfriday.SkipChildren
	})
	return blocks
}

// ParseSections splits src into headings and their list items. Inline
// formatting is dropped; only the text of each item is kept.
func ParseSections(src string) []Section {
	var (
		sections []Section
		current  *Section
	)

	parse(src).Walk(func(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering {
			return blackfriday.GoToNext
		}
		switch node.Type {
		case blackfriday.Heading:
			if current != nil {
				sections = append(sections, *current)
			}
			current = &Section{
				Title: strings.TrimSpace(plainText(node)),
				Level: node.HeadingData.Level,
			}
			return blackfriday.SkipChildren
		case blackfriday.Item:
			if current == nil {
				return blackfriday.SkipChildren
			}
			if text := strings.TrimSpace(plainText(node)); text != "" {
				current.Items = append(current.Items, text)
			}
			return blackfriday.SkipChildren
		}
		return blackfriday.GoToNext
	})

	if current != nil {
		sections = append(sections, *current)
	}
	return sections
}

// plainText concatenates the text and code literals under node
func plainText(node *blackfriday.Node) string {
	var b strings.Builder
	node.Walk(func(n *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering {
			return blackfriday.GoToNext
		}
		switch n.Type {
		case blackfriday.Text, blackfriday.Code:
			b.Write(n.Literal)
		case blackfriday.Softbreak, blackfriday.Hardbreak:
			b.WriteByte(' ')
		}
		return blackfriday.GoToNext
	})
	return b.String()
}
