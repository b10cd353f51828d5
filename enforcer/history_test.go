package enforcer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

func TestAlertHistoryRing(t *testing.T) {
	h := newAlertHistory(3)

	assert.Empty(t, h.recent(0))
	assert.Zero(t, h.count())

	for i := 1; i <= 5; i++ {
		h.add(interfaces.NewRegularityAlert(fmt.Sprintf("shard-%d", i)))
	}

	assert.Equal(t, uint64(5), h.count(), "count survives eviction")

	all := h.recent(0)
	require.Len(t, all, 3)
	assert.Equal(t, "shard-5", all[0].Shard)
	assert.Equal(t, "shard-4", all[1].Shard)
	assert.Equal(t, "shard-3", all[2].Shard)

	two := h.recent(2)
	require.Len(t, two, 2)
	assert.Equal(t, "shard-5", two[0].Shard)
	assert.Equal(t, "shard-4", two[1].Shard)

	assert.Len(t, h.recent(10), 3, "requests beyond capacity return what is held")
}

func TestAlertHistoryBeforeWraparound(t *testing.T) {
	h := newAlertHistory(8)

	h.add(interfaces.NewRegularityAlert("first"))
	h.add(interfaces.NewRegularityAlert("second"))

	recent := h.recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Shard)
	assert.Equal(t, "first", recent[1].Shard)
	assert.Equal(t, uint64(2), h.count())
}
