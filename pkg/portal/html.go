package portal

import (
	"strings"

	"golang.org/x/net/html"
)

// form is the subset of an HTML form needed to log in
type form struct {
	action string
	method string
	// fields holds hidden and prefilled inputs
	fields   map[string]string
	username string
	password string
}

// firstForm reads the first form in the document, or returns nil
func firstForm(doc *html.Node) *form {
	var node *html.Node
	walk(doc, func(n *html.Node) bool {
		if node != nil {
			return false
		}
		if n.Type == html.ElementNode && n.Data == "form" {
			node = n
			return false
		}
		return true
	})
	if node == nil {
		return nil
	}

	f := &form{fields: make(map[string]string)}
	f.action, _ = attr(node, "action")
	f.method, _ = attr(node, "method")

	walk(node, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "input" {
			return true
		}
		name, ok := attr(n, "name")
		if !ok || name == "" {
			return false
		}
		typ, _ := attr(n, "type")
		value, _ := attr(n, "value")

		switch strings.ToLower(typ) {
		case "password":
			if f.password == "" {
				f.password = name
			}
		case "", "text", "email":
			if f.username == "" {
				f.username = name
			} else {
				f.fields[name] = value
			}
		case "checkbox", "radio":
			if _, checked := attr(n, "checked"); checked {
				f.fields[name] = value
			}
		case "button", "reset", "image", "file":
		default:
			f.fields[name] = value
		}
		return false
	})
	return f
}

// walk visits n and its descendants depth first. Children are skipped
// when visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// text concatenates the text nodes below n
func text(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}
