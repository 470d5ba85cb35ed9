// Package flash carries one-shot user notices across a redirect in a cookie.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const cookieName = "nanas_flash"

// Set queues msg under key for the next response that calls Pop. A later Set
// with the same key replaces the earlier message.
func Set(c *gin.Context, key, msg string) {
	notices := pending(c)
	notices[key] = msg
	c.Set(cookieName, notices)
	write(c, notices)
}

// Pop returns and clears every queued notice.
func Pop(c *gin.Context) map[string]string {
	notices := pending(c)
	if len(notices) == 0 {
		return map[string]string{}
	}
	c.Set(cookieName, map[string]string{})
	c.SetCookie(cookieName, "", -1, "/", "", false, true)
	return notices
}

// pending merges notices already set in this request with the cookie.
func pending(c *gin.Context) map[string]string {
	if v, ok := c.Get(cookieName); ok {
		if m, ok := v.(map[string]string); ok {
			return m
		}
	}
	notices := map[string]string{}
	raw, err := c.Cookie(cookieName)
	if err != nil || raw == "" {
		return notices
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return notices
	}
	_ = json.Unmarshal(b, &notices) // a garbled cookie is dropped
	return notices
}

func write(c *gin.Context, notices map[string]string) {
	b, _ := json.Marshal(notices)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, base64.RawURLEncoding.EncodeToString(b), 300, "/", "", false, true)
}
