package audit

import (
	"encoding/binary"
	"time"

	"golang.org/x/crypto/blake2b"
)

// genesisHash seeds the chain for sequence 1, since there is no previous
// entry to key off of.
var genesisHash = make([]byte, blake2b.Size256)

// computeHash chains one audit entry onto the previous one:
//
//	entry_hash = BLAKE2b-256(key = previous_hash, sequence || timestamp || actor || action || entity_type || entity_id || payload)
//
// blake2b's native keying lets previous_hash seed the hash directly
// instead of being concatenated as one more byte slice, which is why it
// was chosen over crypto/sha256 (see SPEC_FULL.md).
func computeHash(sequence int64, timestamp time.Time, actor, action, entityType, entityID string, payload []byte, previousHash []byte) ([]byte, error) {
	key := previousHash
	if len(key) == 0 {
		key = genesisHash
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return nil, err
	}

	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], uint64(sequence))
	h.Write(seqBuf[:])

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(timestamp.UnixNano()))
	h.Write(tsBuf[:])

	h.Write([]byte(actor))
	h.Write([]byte(action))
	h.Write([]byte(entityType))
	h.Write([]byte(entityID))
	h.Write(payload)

	return h.Sum(nil), nil
}
