package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelbrief/hotelbrief/internal/common"
)

func newTestConverter() *Converter {
	return NewConverter(common.GetLogger())
}

func TestConvert_Deterministic(t *testing.T) {
	c := newTestConverter()
	html := `<h1>Seaside Inn</h1><p>Ocean-view rooms from $199.</p>`

	first, err := c.Convert(html)
	require.NoError(t, err)
	second, err := c.Convert(html)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, common.ContentChecksum(first), common.ContentChecksum(second))
}

func TestConvert_ATXHeading(t *testing.T) {
	c := newTestConverter()
	out, err := c.Convert(`<h2>Amenities</h2>`)
	require.NoError(t, err)
	assert.Equal(t, "## Amenities", out)
}

func TestConvert_AnchorDropsURL(t *testing.T) {
	c := newTestConverter()
	out, err := c.Convert(`<p>See our <a href="https://example.com/rooms?sid=123">rooms</a> today</p>`)
	require.NoError(t, err)
	assert.Contains(t, out, "rooms [link]")
	assert.NotContains(t, out, "example.com")
	assert.NotContains(t, out, "sid=123")
}

func TestConvert_ButtonStyledAnchor(t *testing.T) {
	c := newTestConverter()

	out, err := c.Convert(`<a class="cta-btn primary" href="/book">Book Now</a>`)
	require.NoError(t, err)
	assert.Contains(t, out, "Book Now [button]")

	out, err = c.Convert(`<a role="button" href="/book">Reserve</a>`)
	require.NoError(t, err)
	assert.Contains(t, out, "Reserve [button]")
}

func TestConvert_EmptyAnchorYieldsNothing(t *testing.T) {
	c := newTestConverter()
	out, err := c.Convert(`<p>before<a href="/x"></a>after</p>`)
	require.NoError(t, err)
	assert.NotContains(t, out, "[link]")
}

func TestConvert_ImagesDropped(t *testing.T) {
	c := newTestConverter()
	out, err := c.Convert(`<p>Lobby<img src="/lobby.jpg" alt="our lobby">view</p>`)
	require.NoError(t, err)
	assert.NotContains(t, out, "lobby.jpg")
	assert.NotContains(t, out, "![")
	assert.NotContains(t, out, "our lobby")
}

func TestConvert_ButtonElement(t *testing.T) {
	c := newTestConverter()
	out, err := c.Convert(`<button>Check Availability</button>`)
	require.NoError(t, err)
	assert.Contains(t, out, "Check Availability [button]")

	out, err = c.Convert(`<button></button>`)
	require.NoError(t, err)
	assert.NotContains(t, out, "[button]")
}

func TestConvert_BulletMarker(t *testing.T) {
	c := newTestConverter()
	out, err := c.Convert(`<ul><li>Pool</li><li>Spa</li></ul>`)
	require.NoError(t, err)
	assert.Contains(t, out, "- Pool")
	assert.Contains(t, out, "- Spa")
}

func TestConvert_PostProcessing(t *testing.T) {
	c := newTestConverter()
	out, err := c.Convert("  <p>Welcome</p>  ")
	require.NoError(t, err)
	assert.Equal(t, "Welcome", out)
	assert.NotContains(t, out, "\r\n")
}

func TestConvert_EmptyInput(t *testing.T) {
	c := newTestConverter()
	out, err := c.Convert("   ")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
