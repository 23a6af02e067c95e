package jointstate

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/fortiblox/regsort/pkg/machine"
)

// KeyMode selects how a joint state is reduced to a visited-store key.
type KeyMode uint8

const (
	// KeyExact concatenates the sorted members byte for byte. Two joint
	// states share a key only if they are equal.
	KeyExact KeyMode = iota

	// KeyRenaming records, per member, the slot positions holding each
	// rank, with the per-rank lists sorted, plus the flags. Members that
	// differ only by a relabelling of ranks collapse. This is coarser than
	// exact equality and may merge states that do not sort alike.
	KeyRenaming
)

var keyModeNames = map[KeyMode]string{
	KeyExact:    "exact",
	KeyRenaming: "renaming",
}

func (m KeyMode) String() string {
	if name, ok := keyModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("KeyMode(%d)", uint8(m))
}

// ParseKeyMode maps a configuration name to a KeyMode.
func ParseKeyMode(s string) (KeyMode, error) {
	for m, name := range keyModeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown key mode %q", s)
}

// Key returns the canonical key of js. Equal joint states always produce
// equal keys regardless of how their members were ordered on input.
func Key(l machine.Layout, js JointState, mode KeyMode) []byte {
	if mode == KeyRenaming {
		return renamingKey(l, js)
	}
	w := l.Width()
	key := make([]byte, 0, len(js)*w)
	for _, s := range ordered(js) {
		key = append(key, s[:w]...)
	}
	return key
}

// ordered returns js itself when strictly increasing, or a sorted,
// deduplicated copy.
func ordered(js JointState) JointState {
	for i := 1; i < len(js); i++ {
		if js[i-1].Compare(js[i]) >= 0 {
			return FromMembers(js)
		}
	}
	return js
}

func renamingKey(l machine.Layout, js JointState) []byte {
	sigs := make([][]byte, 0, len(js))
	for _, s := range js {
		sigs = append(sigs, memberSignature(l, s))
	}
	sort.Slice(sigs, func(i, j int) bool { return bytes.Compare(sigs[i], sigs[j]) < 0 })

	var key []byte
	for i, sig := range sigs {
		if i > 0 && bytes.Equal(sig, sigs[i-1]) {
			continue
		}
		key = append(key, sig...)
	}
	return key
}

// memberSignature encodes each rank's position list as a length byte
// followed by the positions, sorts the lists, and appends the flags.
func memberSignature(l machine.Layout, s machine.State) []byte {
	lists := make([][]byte, l.Values)
	for rank := 1; rank <= l.Values; rank++ {
		list := []byte{0}
		for slot := 0; slot < l.Width(); slot++ {
			if l.IsValueSlot(slot) && int(s[slot]) == rank {
				list = append(list, byte(slot))
			}
		}
		list[0] = byte(len(list) - 1)
		lists[rank-1] = list
	}
	sort.Slice(lists, func(i, j int) bool { return bytes.Compare(lists[i], lists[j]) < 0 })

	var sig []byte
	for _, list := range lists {
		sig = append(sig, list...)
	}
	return append(sig, s[l.FlagLT()], s[l.FlagGT()])
}
