package plan

import (
	"fmt"
	"strings"
)

// Render produces the deterministic text form of a body. The rendering is
// stable across runs for the same body and is what golden tests snapshot.
func Render(b *Body) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s {\n", b.Capability, b.TypeName)
	renderSteps(&sb, b.Steps, 1)
	sb.WriteString("}\n")
	return sb.String()
}

func renderSteps(sb *strings.Builder, steps []Step, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, s := range steps {
		switch st := s.(type) {
		case AcquireContainer:
			fmt.Fprintf(sb, "%scontainer := acquire(keys: [%s])\n", indent, strings.Join(st.Keys, " "))
		case EncodeField:
			fmt.Fprintf(sb, "%scontainer.%s(%s, key: .%s)\n", indent, encodeVerb(st.IfPresent), st.Member, st.Key)
		case DecodeField:
			fmt.Fprintf(sb, "%s%s = container.%s(%s, key: .%s)\n", indent, st.Member, decodeVerb(st.IfPresent), st.TypeName, st.Key)
		case EncodeAncestor:
			fmt.Fprintf(sb, "%sancestor.encode(container.sub(.%s))\n", indent, st.Key)
		case DecodeAncestor:
			fmt.Fprintf(sb, "%sancestor.decode(container.sub(.%s))\n", indent, st.Key)
		case InitAncestor:
			if st.Propagates {
				fmt.Fprintf(sb, "%stry ancestor.init()\n", indent)
			} else {
				fmt.Fprintf(sb, "%sancestor.init()\n", indent)
			}
		case GuardSingleKey:
			fmt.Fprintf(sb, "%sguard single-key else fail type-mismatch %q\n", indent, st.Message)
		case Switch:
			fmt.Fprintf(sb, "%sswitch %s {\n", indent, st.Subject)
			for _, c := range st.Cases {
				if c.Key != "" {
					fmt.Fprintf(sb, "%scase %s (key .%s):\n", indent, c.Variant, c.Key)
				} else {
					fmt.Fprintf(sb, "%scase %s:\n", indent, c.Variant)
				}
				renderSteps(sb, c.Steps, depth+1)
			}
			fmt.Fprintf(sb, "%s}\n", indent)
		case AcquireNested:
			fmt.Fprintf(sb, "%snested := container.nested(.%s, keys: [%s])\n", indent, st.Key, strings.Join(st.Keys, " "))
		case EncodeParam:
			fmt.Fprintf(sb, "%snested.%s(%s, key: .%s)\n", indent, encodeVerb(st.IfPresent), st.Param, st.Key)
		case DecodeParam:
			fmt.Fprintf(sb, "%s%s := nested.decode(%s, key: .%s)\n", indent, st.Param, st.TypeName, st.Key)
		case DefaultParam:
			fmt.Fprintf(sb, "%s%s := default()\n", indent, st.Param)
		case FailUnrepresentable:
			fmt.Fprintf(sb, "%sfail invalid-value %q\n", indent, st.Message)
		case Construct:
			if !st.Labeled {
				fmt.Fprintf(sb, "%sresult = .%s\n", indent, st.Variant)
			} else {
				fmt.Fprintf(sb, "%sresult = .%s(%s)\n", indent, st.Variant, strings.Join(st.Params, ", "))
			}
		default:
			fmt.Fprintf(sb, "%s<unknown step %T>\n", indent, s)
		}
	}
}

func encodeVerb(ifPresent bool) string {
	if ifPresent {
		return "encodeIfPresent"
	}
	return "encode"
}

func decodeVerb(ifPresent bool) string {
	if ifPresent {
		return "decodeIfPresent"
	}
	return "decode"
}
