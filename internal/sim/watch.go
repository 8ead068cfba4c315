package sim

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/diagsim/diagsim/internal/block"
	"github.com/diagsim/diagsim/internal/diagram"
)

// watchTarget is one resolved entry of the watch list: a block output
// port sampled at every accepted step.
type watchTarget struct {
	name string
	b    block.Block
	port int
}

// resolveWatch turns a watch spec into a target. Specs may be strings
// ("gain.0" or "gain.0[1]"), Plugs, or Blocks (output port 0); names
// refer to the flattened plan, so subsystem-internal signals are
// reachable with their prefixed names.
func resolveWatch(p *diagram.Plan, spec any) (watchTarget, error) {
	switch v := spec.(type) {
	case string:
		name, port, err := splitWatch(v)
		if err != nil {
			return watchTarget{}, err
		}
		b, ok := p.BlockByName(name)
		if !ok {
			return watchTarget{}, block.ConfigErrorf(name, "watch: no such block")
		}
		return makeTarget(b, port)
	case block.Plug:
		return makeTarget(v.Block, v.Lo)
	case *block.Plug:
		return makeTarget(v.Block, v.Lo)
	case block.Block:
		return makeTarget(v, 0)
	}
	return watchTarget{}, fmt.Errorf("watch: unsupported spec %T", spec)
}

func makeTarget(b block.Block, port int) (watchTarget, error) {
	m := b.Meta()
	if port < 0 || port >= m.NOut {
		return watchTarget{}, block.ConfigErrorf(m.Name, "watch: output %d out of range [0, %d)", port, m.NOut)
	}
	return watchTarget{
		name: fmt.Sprintf("%s[%d]", m.Name, port),
		b:    b,
		port: port,
	}, nil
}

// splitWatch parses "name" or "name[port]".
func splitWatch(s string) (string, int, error) {
	if !strings.HasSuffix(s, "]") {
		return s, 0, nil
	}
	open := strings.LastIndex(s, "[")
	if open < 0 {
		return "", 0, fmt.Errorf("watch: malformed spec %q", s)
	}
	port, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil {
		return "", 0, fmt.Errorf("watch: malformed port in %q", s)
	}
	return s[:open], port, nil
}
