package ledger

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// hashPayload is the canonical projection of an entry's essential fields.
// Field order is irrelevant: the CBOR core deterministic encoding sorts map
// keys, so equal payloads always serialize to equal bytes.
type hashPayload struct {
	ChainPosition      int64  `cbor:"pos"`
	Timestamp          string `cbor:"ts"`
	ActorID            string `cbor:"actor"`
	Action             string `cbor:"action"`
	ResourceType       string `cbor:"rtype"`
	ResourceID         string `cbor:"rid"`
	OrgID              string `cbor:"org"`
	Granted            bool   `cbor:"granted"`
	RequiredPermission string `cbor:"perm"`
	GrantMethod        string `cbor:"method"`
	DenialReason       string `cbor:"denial"`
	PreviousHash       string `cbor:"prev"`
}

var hashEncMode cbor.EncMode

func init() {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ledger: cbor enc mode: %v", err))
	}
	hashEncMode = mode
}

// ComputeHash returns the hex BLAKE3-256 digest of the entry's canonical
// serialization. ChainPosition and PreviousHash must already be set on the
// entry; the first entry of a chain uses position 1 and an empty previous
// hash.
func ComputeHash(entry Entry) (string, error) {
	data, err := hashEncMode.Marshal(hashPayload{
		ChainPosition:      entry.ChainPosition,
		Timestamp:          entry.Timestamp.UTC().Format(time.RFC3339Nano),
		ActorID:            entry.ActorID,
		Action:             entry.Action,
		ResourceType:       entry.ResourceType,
		ResourceID:         entry.ResourceID,
		OrgID:              entry.OrgID,
		Granted:            entry.Granted,
		RequiredPermission: entry.RequiredPermission,
		GrantMethod:        entry.GrantMethod,
		DenialReason:       entry.DenialReason,
		PreviousHash:       entry.PreviousHash,
	})
	if err != nil {
		return "", fmt.Errorf("ledger: canonical encode: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
