package catalog

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadAndClear(t *testing.T) {
	s := NewStore()
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	assert.False(t, s.IsLoaded())
	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNoDataset)

	ds := s.Load(sampleRecords(), "parts.xlsx")
	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, fixed, ds.LoadedAt)
	assert.Equal(t, 5, ds.Len())
	assert.True(t, s.IsLoaded())

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Same(t, ds, cur)
	assert.Equal(t, []string{"Acme", "Bolt Co", "Zed"}, cur.Facets.Values(ManufacturerName))

	s.Clear()
	assert.False(t, s.IsLoaded())
	_, err = s.Current()
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestStore_ReloadReplaces(t *testing.T) {
	s := NewStore()
	first := s.Load(sampleRecords(), "a.csv")
	second := s.Load([]Record{{Description: "only"}}, "b.csv")
	assert.NotEqual(t, first.ID, second.ID)

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "b.csv", cur.Filename)
	assert.Equal(t, 1, cur.Len())
	assert.Empty(t, cur.Facets.Values(ManufacturerName))
}

func TestStore_EmptyLoadIsNotLoaded(t *testing.T) {
	s := NewStore()
	s.Load(nil, "empty.csv")
	assert.False(t, s.IsLoaded())
	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s := NewStore()
	s.Load([]Record{{Description: "seed", ItemNo: "0"}}, "seed")

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			records := make([]Record, n)
			for j := range records {
				records[j] = Record{Description: "d", ItemNo: fmt.Sprint(n)}
			}
			s.Load(records, fmt.Sprint(n))
		}(i)
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ds, err := s.Current()
			if err != nil {
				return
			}
			for _, r := range ds.Records {
				assert.Equal(t, ds.Filename, r.ItemNo)
			}
			if ds.Filename != "seed" {
				assert.Equal(t, ds.Filename, fmt.Sprint(ds.Len()))
			}
		}()
	}
	wg.Wait()
}
