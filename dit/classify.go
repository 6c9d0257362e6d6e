package dit

import (
	"fmt"

	"github.com/mewmew/dit/mir"
	"github.com/pkg/errors"
)

// ErrEmptyEntryBlock is returned when the entry block of a protected function
// has no instruction to anchor the enable sequence at.
var ErrEmptyEntryBlock = errors.New("empty entry basic block")

// Kind is the kind of a boundary point.
type Kind uint8

// Boundary point kinds.
const (
	// SetPoint marks the beginning of a protected region.
	SetPoint Kind = iota + 1
	// UnsetPoint marks the end of a protected region.
	UnsetPoint
)

// String returns the string representation of the boundary point kind.
func (kind Kind) String() string {
	switch kind {
	case SetPoint:
		return "set"
	case UnsetPoint:
		return "unset"
	}
	return fmt.Sprintf("Kind(%d)", uint8(kind))
}

// Point is a boundary point of a protected region; the enable or disable
// sequence is inserted immediately before its anchor instruction.
type Point struct {
	// Boundary point kind.
	Kind Kind
	// Instruction before which the sequence is inserted.
	Anchor *mir.Inst
}

// String returns the string representation of the boundary point.
func (p Point) String() string {
	return fmt.Sprintf("%v point before %q", p.Kind, p.Anchor)
}

// Classify locates the boundary points of the given basic block; isEntry
// specifies whether block is the entry block of its function.
//
// A set point is located at the first instruction following each run of
// frame-setup instructions, and an unset point at the first frame-destroy
// instruction. Set points precede the unset point in the returned list. The
// entry block always receives a set point; if its instructions contain no
// terminated frame-setup run, the set point is located at its first
// instruction. An empty entry block is reported as ErrEmptyEntryBlock.
func Classify(block *mir.Block, isEntry bool) ([]Point, error) {
	var points []Point
	var unset *mir.Inst
	inFrameSetup := false
	for _, inst := range block.Insts {
		cur := inst.Flag(mir.FrameSetup)
		if inFrameSetup && !cur {
			points = append(points, Point{Kind: SetPoint, Anchor: inst})
		}
		inFrameSetup = cur
		if unset == nil && inst.Flag(mir.FrameDestroy) {
			unset = inst
		}
	}
	if isEntry && len(points) == 0 {
		if len(block.Insts) == 0 {
			return nil, errors.Wrapf(ErrEmptyEntryBlock, "unable to locate set point of basic block %q", block.Name)
		}
		points = append(points, Point{Kind: SetPoint, Anchor: block.Insts[0]})
	}
	if unset != nil {
		points = append(points, Point{Kind: UnsetPoint, Anchor: unset})
	}
	return points, nil
}
