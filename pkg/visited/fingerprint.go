package visited

import (
	"github.com/fortiblox/regsort/internal/types"
	"github.com/fortiblox/regsort/pkg/jointstate"
	"github.com/fortiblox/regsort/pkg/machine"
	"github.com/zeebo/blake3"
)

// fingerprintVersion is bumped whenever key encoding changes.
const fingerprintVersion = "regsort/visited/v1"

// Fingerprint digests everything that determines the meaning of a stored
// key: the layout, the key mode and the ordered catalog.
func Fingerprint(l machine.Layout, c machine.Catalog, mode jointstate.KeyMode) types.Fingerprint {
	h := blake3.New()
	h.Write([]byte(fingerprintVersion))

	vector := byte(0)
	if l.Vector {
		vector = 1
	}
	h.Write([]byte{byte(l.Values), byte(l.Scratch), vector, byte(mode)})
	for _, ins := range c {
		h.Write([]byte{byte(ins.Op), ins.Dst, ins.Src})
	}

	var f types.Fingerprint
	copy(f[:], h.Sum(nil))
	return f
}
