package executor

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// xmlNode is the decoding target for parseXML. nodeToMap turns it into the
// plain object script code sees: attributes under "@name" keys, leaf text
// under "#text", and each child element under its tag name.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

func registerXML(vm *goja.Runtime) {
	vm.Set("parseXML", func(call goja.FunctionCall) goja.Value {
		raw := call.Argument(0).String()
		var n xmlNode
		if err := xml.Unmarshal([]byte(raw), &n); err != nil {
			panic(vm.ToValue("parseXML: " + err.Error()))
		}
		return vm.ToValue(nodeToMap(n))
	})

	vm.Set("toXML", func(call goja.FunctionCall) goja.Value {
		obj := call.Argument(0).Export()
		var sb strings.Builder
		writeXMLValue(&sb, "root", obj)
		return vm.ToValue(sb.String())
	})
}

func nodeToMap(n xmlNode) map[string]any {
	m := map[string]any{}
	for _, a := range n.Attrs {
		m["@"+a.Name.Local] = a.Value
	}
	if len(n.Children) == 0 {
		text := strings.TrimSpace(n.Content)
		if text != "" {
			m["#text"] = text
		}
		return m
	}
	for _, c := range n.Children {
		m[c.XMLName.Local] = nodeToMap(c)
	}
	return m
}

func writeXMLValue(sb *strings.Builder, tag string, v any) {
	sb.WriteString("<")
	sb.WriteString(tag)
	sb.WriteString(">")
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			if strings.HasPrefix(k, "@") {
				continue
			}
			writeXMLValue(sb, k, child)
		}
	case []any:
		for _, child := range val {
			writeXMLValue(sb, tag, child)
		}
	default:
		xml.EscapeText(sb, []byte(valueToString(val)))
	}
	sb.WriteString("</")
	sb.WriteString(tag)
	sb.WriteString(">")
}

func valueToString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
