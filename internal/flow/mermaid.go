package flow

import (
	"fmt"
	"strings"
)

// Mermaid renders the flow as a Mermaid flowchart. Decisions are rhombi,
// data nodes cylinders, and ends stadiums.
func Mermaid(f *Flow) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	if f.Name != "" {
		fmt.Fprintf(&b, "  %%%% %s\n", f.Name)
	}

	ids := make(map[string]string, len(f.Nodes))
	for i, n := range f.Nodes {
		ids[n.ID] = fmt.Sprintf("n%d", i)
	}

	for _, n := range f.Nodes {
		label := escapeLabel(n.Label)
		id := ids[n.ID]
		switch n.Role {
		case RoleDecision:
			fmt.Fprintf(&b, "  %s{\"%s\"}\n", id, label)
		case RoleData:
			fmt.Fprintf(&b, "  %s[(\"%s\")]\n", id, label)
		case RoleEnd:
			fmt.Fprintf(&b, "  %s([\"%s\"])\n", id, label)
		case RoleEntry:
			fmt.Fprintf(&b, "  %s[[\"%s\"]]\n", id, label)
		default:
			fmt.Fprintf(&b, "  %s[\"%s\"]\n", id, label)
		}
	}

	for _, e := range f.Edges {
		from, to := ids[e.From], ids[e.To]
		switch e.Type {
		case EdgeConditional:
			fmt.Fprintf(&b, "  %s -->|cond| %s\n", from, to)
		case EdgeLoop:
			fmt.Fprintf(&b, "  %s -->|loop| %s\n", from, to)
		case EdgeAsync:
			fmt.Fprintf(&b, "  %s -.->|async| %s\n", from, to)
		default:
			fmt.Fprintf(&b, "  %s --> %s\n", from, to)
		}
	}

	for _, n := range f.Nodes {
		if n.External {
			fmt.Fprintf(&b, "  class %s external\n", ids[n.ID])
		}
	}
	return b.String()
}

func escapeLabel(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "\n", " ").Replace(s)
}
