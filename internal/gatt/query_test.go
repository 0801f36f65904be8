package gatt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedQuery answers calls from a fixed list of (n, err) pairs and fills
// the buffer with sequential values on success.
type scriptedQuery struct {
	replies    []reply
	capacities []int
}

type reply struct {
	n   int
	err error
}

func (q *scriptedQuery) call(buf []int) (int, error) {
	q.capacities = append(q.capacities, len(buf))
	r := q.replies[len(q.capacities)-1]
	if r.err == nil {
		for i := 0; i < r.n && i < len(buf); i++ {
			buf[i] = i + 1
		}
	}
	return r.n, r.err
}

func TestRunQuery(t *testing.T) {
	hardFailure := errors.New("device unreachable")

	tests := []struct {
		name           string
		replies        []reply
		wantItems      []int
		wantErr        error
		wantCapacities []int
	}{
		{
			name:           "empty result on first call",
			replies:        []reply{{0, nil}},
			wantItems:      nil,
			wantCapacities: []int{0},
		},
		{
			name:           "single resize to the exact reported size",
			replies:        []reply{{3, ErrMoreData}, {3, nil}},
			wantItems:      []int{1, 2, 3},
			wantCapacities: []int{0, 3},
		},
		{
			name:           "fewer items than reported",
			replies:        []reply{{4, ErrMoreData}, {2, nil}},
			wantItems:      []int{1, 2},
			wantCapacities: []int{0, 4},
		},
		{
			name:           "second resize request is fatal",
			replies:        []reply{{3, ErrMoreData}, {5, ErrMoreData}},
			wantErr:        ErrProtocolViolation,
			wantCapacities: []int{0, 3},
		},
		{
			name:           "hard failure on first call propagates",
			replies:        []reply{{0, hardFailure}},
			wantErr:        hardFailure,
			wantCapacities: []int{0},
		},
		{
			name:           "hard failure after resize propagates",
			replies:        []reply{{2, ErrMoreData}, {0, hardFailure}},
			wantErr:        hardFailure,
			wantCapacities: []int{0, 2},
		},
		{
			name:           "resize request without a size is fatal",
			replies:        []reply{{0, ErrMoreData}},
			wantErr:        ErrProtocolViolation,
			wantCapacities: []int{0},
		},
		{
			name:           "count beyond capacity is fatal",
			replies:        []reply{{2, ErrMoreData}, {3, nil}},
			wantErr:        ErrProtocolViolation,
			wantCapacities: []int{0, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &scriptedQuery{replies: tt.replies}

			items, err := runQuery(q.call)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr, "error MUST match the expected cause")
				assert.Nil(t, items, "failed query MUST NOT return items")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantItems, items, "items MUST be the filled prefix of the buffer")
			}
			assert.Equal(t, tt.wantCapacities, q.capacities, "query MUST submit exactly these capacities")
			assert.LessOrEqual(t, len(q.capacities), 2, "query MUST NOT issue more than two native calls")
		})
	}
}

func TestRunQuery_WrappedMoreData(t *testing.T) {
	calls := 0
	value, err := runQuery(func(buf []byte) (int, error) {
		calls++
		if len(buf) < 2 {
			return 2, errors.Join(errors.New("buffer too small"), ErrMoreData)
		}
		return copy(buf, []byte{0xAB, 0xCD}), nil
	})

	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB, 0xCD}, value)
	assert.Equal(t, 2, calls, "wrapped insufficient-space result MUST trigger one resize")
}
