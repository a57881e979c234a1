package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "cafe jozef's", Fold("Café Józef’s"))
	assert.Equal(t, "joe's pizza", Fold("JOE'S PIZZA"))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Visit Café Luna in Brooklyn", "cafe luna"))
	assert.False(t, ContainsFold("anything", "  "))
	assert.False(t, ContainsFold("Best Pizza", "Joe's"))
}

func TestFirstToken(t *testing.T) {
	tests := map[string]string{
		"Joe's Pizza":    "Joe's",
		"Brooklyn, NY":   "Brooklyn",
		"  ...  Austin ": "Austin",
		"(St.) Louis":    "St",
		"":               "",
		"!!!":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, FirstToken(in), in)
	}
}

func TestHostAndDomain(t *testing.T) {
	assert.Equal(t, "joespizza.example", Host("https://www.JoesPizza.example:8443/menu"))
	assert.Equal(t, "shop.joespizza.co.uk", Host("shop.joespizza.co.uk"))
	assert.Equal(t, "joespizza.co.uk", Domain("https://shop.joespizza.co.uk/a"))
	assert.Equal(t, "joespizza.com", Domain("joespizza.com"))
	assert.Equal(t, "127.0.0.1", Domain("http://127.0.0.1:8080"))
	assert.Equal(t, "", Domain(""))
}

func TestURLMatchesDomain(t *testing.T) {
	assert.True(t, URLMatchesDomain("https://www.joespizza.com/menu", "joespizza.com"))
	assert.True(t, URLMatchesDomain("https://order.joespizza.com", "joespizza.com"))
	assert.True(t, URLMatchesDomain("https://yelp.com/biz?url=joespizza.com", "joespizza.com"))
	assert.False(t, URLMatchesDomain("https://bestpizza.com", "joespizza.com"))
	assert.False(t, URLMatchesDomain("https://bestpizza.com", ""))
}

func TestSiteKey(t *testing.T) {
	tests := map[string]string{
		"https://www.joespizza.com/menu":                "joespizza.com",
		"https://www.facebook.com/JoesPizzaBK/about":    "facebook.com/joespizzabk",
		"https://m.facebook.com/joespizzabk":            "facebook.com/joespizzabk",
		"https://facebook.com":                          "",
		"https://sites.google.com/view/joes-pizza/home": "sites.google.com/view/joes-pizza",
		"https://www.yelp.com/biz/joes-pizza-brooklyn":  "yelp.com/biz/joes-pizza-brooklyn",
		"https://joes.squarespace.com/menu":             "joes.squarespace.com",
		"https://squarespace.com":                       "",
		"":                                              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SiteKey(in), in)
	}
}

func TestURLMatchesDomain_SharedPlatform(t *testing.T) {
	key := SiteKey("https://www.facebook.com/joespizzabk")
	assert.True(t, URLMatchesDomain("https://facebook.com/joespizzabk/posts/1", key))
	assert.False(t, URLMatchesDomain("https://www.facebook.com/lucali", key))
	assert.False(t, URLMatchesDomain("https://www.facebook.com/joespizzabk2", key))

	sites := SiteKey("https://sites.google.com/view/joes")
	assert.False(t, URLMatchesDomain("https://www.google.com/maps/place/Lucali", sites))
	assert.False(t, URLMatchesDomain("https://www.facebook.com/lucali", "facebook.com"))
}

func TestSameBusiness(t *testing.T) {
	assert.True(t, SameBusiness("Joe’s Pizza - Brooklyn", "joe's pizza"))
	assert.False(t, SameBusiness("Best Pizza", "Joe's Pizza"))
}
