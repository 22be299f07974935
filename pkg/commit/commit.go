// Package commit implements the Commit wire type and canonical encoding of
// spec §4.2/§6 (Component F): the signed, ordered, timestamped patches
// that are the only way to mutate state.
package commit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cuemby/atomstore/pkg/value"
)

// Commit is the decoded form of the wire format in spec §6. Remove, Set
// and Destroy are the three mutation primitives applied, in that order,
// by the pipeline's stage 7.
type Commit struct {
	Subject        string                  `json:"@id"`
	Target         string                  `json:"subject"`
	Signer         string                  `json:"signer"`
	CreatedAt      int64                   `json:"created_at"`
	PreviousCommit string                  `json:"previous_commit,omitempty"`
	Set            map[string]value.Value  `json:"set,omitempty"`
	Remove         []string                `json:"remove,omitempty"`
	Destroy        bool                    `json:"destroy,omitempty"`
	Signature      string                  `json:"signature,omitempty"`
}

// wireValue is the JSON shape a Set entry's typed value takes on the wire:
// a {"datatype","value"} pair rather than a bare string, so a reader can
// recover the intended DataType without consulting the property schema.
type wireValue struct {
	Datatype value.DataType `json:"datatype"`
	Value    string         `json:"value"`
}

// Canonicalize builds the deterministic byte sequence spec §4.2 stage 1
// and §6 describe: object keys in lexicographic order, the "set" map's
// keys lexicographically ordered, the "remove" list sorted, and the
// signature field always omitted (it is computed over everything else).
// This is the signing payload, and includes "@id" since the commit's
// content-addressed subject is assigned before signing (see
// ContentAddress).
func (c Commit) Canonicalize() []byte {
	return c.canonicalize(true)
}

// bodyForAddress is the same canonical encoding minus "@id", the payload
// ContentAddress hashes to derive a commit's own subject.
func (c Commit) bodyForAddress() []byte {
	return c.canonicalize(false)
}

func (c Commit) canonicalize(includeID bool) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')

	fields := 0
	writeField := func(key string, value json.RawMessage) {
		if fields > 0 {
			buf.WriteByte(',')
		}
		fields++
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(value)
	}

	if includeID {
		writeField("@id", mustMarshal(c.Subject))
	}
	writeField("created_at", mustMarshal(c.CreatedAt))
	if c.Destroy {
		writeField("destroy", mustMarshal(true))
	}
	if c.PreviousCommit != "" {
		writeField("previous_commit", mustMarshal(c.PreviousCommit))
	}
	if len(c.Remove) > 0 {
		sorted := append([]string(nil), c.Remove...)
		sort.Strings(sorted)
		writeField("remove", mustMarshal(sorted))
	}
	if len(c.Set) > 0 {
		keys := make([]string, 0, len(c.Set))
		for k := range c.Set {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var setBuf bytes.Buffer
		setBuf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				setBuf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			setBuf.Write(kb)
			setBuf.WriteByte(':')
			v := c.Set[k]
			vb, _ := json.Marshal(wireValue{Datatype: v.Datatype, Value: v.Raw})
			setBuf.Write(vb)
		}
		setBuf.WriteByte('}')
		writeField("set", setBuf.Bytes())
	}
	writeField("signer", mustMarshal(c.Signer))
	writeField("subject", mustMarshal(c.Target))

	buf.WriteByte('}')
	return buf.Bytes()
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("commit: marshal %T: %v", v, err))
	}
	return b
}

// ContentAddress derives c's own subject from its canonical bytes minus
// the @id and signature fields, the content-addressed scheme of spec §4.2
// stage 10. Callers fill in every field except Subject, call this, then
// set Subject before signing.
func (c Commit) ContentAddress(serverRoot string) string {
	sum := sha256.Sum256(c.bodyForAddress())
	return serverRoot + "/commits/" + hex.EncodeToString(sum[:])
}
