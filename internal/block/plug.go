package block

import "fmt"

// Plug addresses a port, or a contiguous slice of ports, on a block.
// Plugs are created transiently to describe wire endpoints.
type Plug struct {
	Block Block
	Lo    int // first port index
	Hi    int // one past the last port index
}

// PortOf addresses a single port on a block.
func PortOf(b Block, port int) Plug {
	return Plug{Block: b, Lo: port, Hi: port + 1}
}

// SliceOf addresses ports [lo, hi) on a block.
func SliceOf(b Block, lo, hi int) Plug {
	return Plug{Block: b, Lo: lo, Hi: hi}
}

func (p Plug) Width() int {
	return p.Hi - p.Lo
}

func (p Plug) Ports() []int {
	ports := make([]int, 0, p.Width())
	for i := p.Lo; i < p.Hi; i++ {
		ports = append(ports, i)
	}
	return ports
}

func (p Plug) String() string {
	name := "?"
	if p.Block != nil {
		name = p.Block.Meta().String()
	}
	if p.Width() == 1 {
		return fmt.Sprintf("%s[%d]", name, p.Lo)
	}
	return fmt.Sprintf("%s[%d:%d]", name, p.Lo, p.Hi)
}
