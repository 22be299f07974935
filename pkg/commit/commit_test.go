package commit

import (
	"testing"

	"github.com/cuemby/atomstore/pkg/value"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeIsDeterministicAcrossMapIteration(t *testing.T) {
	nameVal, _ := value.New(value.String, "alice")
	ageVal, _ := value.New(value.Integer, "42")

	c1 := Commit{
		Target:    "https://example.com/res/1",
		Signer:    "https://example.com/agents/a",
		CreatedAt: 1000,
		Set:       map[string]value.Value{"z-prop": ageVal, "a-prop": nameVal},
	}
	c2 := Commit{
		Target:    "https://example.com/res/1",
		Signer:    "https://example.com/agents/a",
		CreatedAt: 1000,
		Set:       map[string]value.Value{"a-prop": nameVal, "z-prop": ageVal},
	}

	assert.Equal(t, c1.Canonicalize(), c2.Canonicalize())
}

func TestCanonicalizeOmitsSignatureAndEmptyFields(t *testing.T) {
	c := Commit{
		Target:    "https://example.com/res/1",
		Signer:    "https://example.com/agents/a",
		CreatedAt: 1000,
		Signature: "should-not-appear",
	}
	out := string(c.Canonicalize())
	assert.NotContains(t, out, "should-not-appear")
	assert.NotContains(t, out, "\"destroy\"")
	assert.NotContains(t, out, "\"remove\"")
	assert.NotContains(t, out, "\"set\"")
}

func TestContentAddressIsStableAndOmitsID(t *testing.T) {
	c := Commit{
		Target:    "https://example.com/res/1",
		Signer:    "https://example.com/agents/a",
		CreatedAt: 1000,
	}
	addr1 := c.ContentAddress("https://example.com")
	c.Subject = "https://example.com/commits/placeholder"
	addr2 := c.ContentAddress("https://example.com")
	assert.Equal(t, addr1, addr2)
}

func TestContentAddressChangesWithPayload(t *testing.T) {
	base := Commit{Target: "https://example.com/res/1", Signer: "https://example.com/agents/a", CreatedAt: 1000}
	other := base
	other.CreatedAt = 1001

	assert.NotEqual(t, base.ContentAddress("https://example.com"), other.ContentAddress("https://example.com"))
}
