package dispatch

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// OpcodeSet 一个方向上合法的opcode及名字，构造之后只读
type OpcodeSet struct {
	names map[uint16]string
}

func NewOpcodeSet(names map[uint16]string) OpcodeSet {
	return OpcodeSet{names: lo.Assign(names)}
}

func (s OpcodeSet) Name(op uint16) (string, bool) {
	name, ok := s.names[op]
	return name, ok
}

func (s OpcodeSet) Contains(op uint16) bool {
	_, ok := s.names[op]
	return ok
}

func (s OpcodeSet) Len() int {
	return len(s.names)
}

// Opcodes 按数值排序
func (s OpcodeSet) Opcodes() []uint16 {
	ops := lo.Keys(s.names)
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Describe 日志里展示用
func (s OpcodeSet) Describe(op uint16) string {
	if name, ok := s.names[op]; ok {
		return name
	}
	return fmt.Sprintf("unknown (0x%04X)", op)
}
