package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLabelSet_FingerprintIsOrderIndependentAndDropsName(t *testing.T) {
	a := LabelSet{"job": "api", "__name__": "up", "env": "prod"}
	b := LabelSet{"env": "prod", "job": "api"}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestLabelSet_FingerprintDiffersOnValue(t *testing.T) {
	a := LabelSet{"job": "api"}
	b := LabelSet{"job": "worker"}

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestCacheKey_IsDeterministicAndDistinguishesQuery(t *testing.T) {
	fp := LabelSet{"job": "api"}.Fingerprint()

	k1 := CacheKey("up", fp)
	k2 := CacheKey("up", fp)
	k3 := CacheKey("down", fp)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Len(t, k1, 32)
}

func TestCacheEntry_IsUnusedMetric(t *testing.T) {
	now := time.Now()
	placeholder := NewPlaceholder(0, 60, LabelSet{"job": "api"}, now)

	assert.True(t, placeholder.IsUnusedMetric())
	assert.True(t, placeholder.IsPlaceholder)
	assert.Equal(t, "api", placeholder.Labels["job"])

	regular := &CacheEntry{Labels: LabelSet{"job": "api"}}
	assert.False(t, regular.IsUnusedMetric())

	var nilEntry *CacheEntry
	assert.False(t, nilEntry.IsUnusedMetric())
}
