package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathSegmentAfter(t *testing.T) {
	id, err := PathSegmentAfter("https://www.amazon.in/Some-Phone/dp/B0C1234XYZ/ref=sr_1_1?keywords=phone", "dp")
	require.NoError(t, err)
	assert.Equal(t, "B0C1234XYZ", id)

	_, err = PathSegmentAfter("https://www.amazon.in/s?k=phone", "dp")
	assert.Error(t, err)
}

func TestQueryParam(t *testing.T) {
	pid, err := QueryParam("https://www.flipkart.com/x/p/itm1?pid=MOBG123&lid=L1", "pid")
	require.NoError(t, err)
	assert.Equal(t, "MOBG123", pid)

	_, err = QueryParam("https://www.flipkart.com/x/p/itm1", "pid")
	assert.Error(t, err)
}

func TestLastPathSegment(t *testing.T) {
	id, err := LastPathSegment("https://www.meesho.com/cotton-kurti/p/4abc9?src=search")
	require.NoError(t, err)
	assert.Equal(t, "4abc9", id)

	_, err = LastPathSegment("https:")
	assert.Error(t, err)
}
