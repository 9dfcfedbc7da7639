package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/:provider/threads/:thread_id", func(c *gin.Context) {
		switch c.Param("thread_id") {
		case "t-1":
			c.JSON(http.StatusOK, gin.H{
				"message_id": "m-1",
				"from":       "ceo@vendor.test",
				"subject":    c.Param("provider"),
				"body":       "hello",
			})
		case "broken":
			c.String(http.StatusInternalServerError, "boom")
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetThread(t *testing.T) {
	srv := testServer(t)
	p := NewProvider(TypeMicrosoft, srv.URL+"/")

	email, err := p.GetThread(context.Background(), "t-1")
	require.NoError(t, err)
	require.NotNil(t, email)
	assert.Equal(t, "m-1", email.MessageID)
	assert.Equal(t, "t-1", email.ThreadID)
	assert.Equal(t, "ceo@vendor.test", email.From)
	assert.Equal(t, TypeMicrosoft, email.Subject)
}

func TestGetThreadNotFound(t *testing.T) {
	email, err := NewProvider("", testServer(t).URL).GetThread(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, email)
}

func TestGetThreadServerError(t *testing.T) {
	_, err := NewProvider(TypeGoogle, testServer(t).URL).GetThread(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestNewProviderDefaultsToGoogle(t *testing.T) {
	assert.Equal(t, TypeGoogle, NewProvider("", "").Type())
	assert.Equal(t, TypeGoogle, NewProvider("yahoo", "").Type())
}
