package core

import (
	"sync"
	"time"
)

var (
	jakartaOnce sync.Once
	jakarta     *time.Location
)

// JakartaLocation returns Asia/Jakarta, or a fixed UTC+7 zone when the
// host has no tzdata.
func JakartaLocation() *time.Location {
	jakartaOnce.Do(func() {
		loc, err := time.LoadLocation("Asia/Jakarta")
		if err != nil {
			loc = time.FixedZone("WIB", 7*60*60)
		}
		jakarta = loc
	})
	return jakarta
}

// FormatJakartaTime renders t the way id-ID locales print a timestamp, in WIB
func FormatJakartaTime(t time.Time) string {
	return t.In(JakartaLocation()).Format("2/1/2006, 15.04.05")
}
