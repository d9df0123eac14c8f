package session

import (
	"bytes"
	"testing"
	"time"
)

var testEpoch = time.Unix(1700000000, 0)

// FuzzOpenUser feeds arbitrary cookie values to the USER decoder.
// Malformed input must fail without panicking.
func FuzzOpenUser(f *testing.F) {
	c, err := NewCodec(bytes.Repeat([]byte{3}, KeySize), Names{})
	if err != nil {
		f.Fatalf("NewCodec failed: %v", err)
	}
	key := bytes.Repeat([]byte{5}, KeySize)
	v, err := c.Issue(1, "seed", key, testEpoch, false)
	if err == nil {
		f.Add(v.User, v.VerifyUser)
	}
	f.Add("", "")
	f.Add("AAAA", "AAAA")

	f.Fuzz(func(t *testing.T, user, verifyUser string) {
		jar := cookieJar{
			c.Names().User:       user,
			c.Names().VerifyUser: verifyUser,
			c.Names().VerifyHash: "x",
		}
		id, _, err := c.OpenUser(jar)
		if err == nil && id <= 0 {
			t.Fatalf("accepted non-positive user id %d", id)
		}
	})
}
