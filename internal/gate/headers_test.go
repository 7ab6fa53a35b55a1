package gate

import (
	"net/http"
	"testing"
)

func TestNoCacheHeaders_ReturnsFreshHeader(t *testing.T) {
	h := NoCacheHeaders()
	assertNoCache(t, h)

	h.Set("Pragma", "changed")
	assertNoCache(t, NoCacheHeaders())
}

func TestApplyHeaders_OverwritesExisting(t *testing.T) {
	dst := http.Header{}
	dst.Set("Cache-Control", "public, max-age=3600")
	dst.Set("Content-Type", "text/html")

	ApplyHeaders(dst, NoCacheHeaders())

	assertNoCache(t, dst)
	if got := dst.Values("Cache-Control"); len(got) != 1 {
		t.Errorf("Cache-Control values = %v, want exactly one", got)
	}
	if dst.Get("Content-Type") != "text/html" {
		t.Error("unrelated headers must be preserved")
	}
}
