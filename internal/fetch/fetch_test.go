package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "KBFactory")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><main>hello</main></body></html>"))
	}))
	defer server.Close()

	client := NewClient(0)
	result, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.True(t, result.IsHTML())
	assert.Contains(t, result.HTML, "hello")
}

func TestGet_NonOKReturnsResultAndError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(0)
	result, err := client.Get(context.Background(), server.URL+"/missing")

	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Message, "404")
}

func TestGet_InvalidURL(t *testing.T) {
	client := NewClient(0)
	_, err := client.Get(context.Background(), "not-a-url")

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Message, "invalid URL")
}

func TestResult_IsHTML(t *testing.T) {
	assert.True(t, (&Result{ContentType: "text/html; charset=utf-8"}).IsHTML())
	assert.False(t, (&Result{ContentType: "application/pdf"}).IsHTML())
	assert.False(t, (&Result{ContentType: "image/png"}).IsHTML())
}

func TestExtractMainText_PrefersMainContent(t *testing.T) {
	html := `
		<html><body>
			<nav>Site Nav</nav>
			<main>
				<h1>Emergency HVAC Repair</h1>
				<p>Available around the clock in Phoenix.</p>
			</main>
			<footer>Copyright</footer>
		</body></html>`

	text, err := ExtractMainText(html)
	require.NoError(t, err)

	assert.Contains(t, text, "Emergency HVAC Repair")
	assert.Contains(t, text, "Available around the clock")
	assert.NotContains(t, text, "Site Nav")
	assert.NotContains(t, text, "Copyright")
}

func TestExtractMainText_FallsBackToBody(t *testing.T) {
	html := `<html><body><p>No main element here.</p></body></html>`
	text, err := ExtractMainText(html)
	require.NoError(t, err)
	assert.Contains(t, text, "No main element here.")
}

func TestExtractTitle(t *testing.T) {
	html := `<html><head><title>  Acme HVAC | Phoenix  </title></head><body></body></html>`
	assert.Equal(t, "Acme HVAC | Phoenix", ExtractTitle(html))
	assert.Empty(t, ExtractTitle("<html><body></body></html>"))
}

func TestShouldRender(t *testing.T) {
	assert.True(t, ShouldRender("   "))
	assert.True(t, ShouldRender("tiny"))

	long := make([]byte, MinRenderedLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, ShouldRender(string(long)))
}
