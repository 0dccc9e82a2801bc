// Package guard switches the process into test mode when imported, so
// binaries started from integration tests skip external side effects.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("GADGETBAY_TEST_MODE") == "" {
			_ = os.Setenv("GADGETBAY_TEST_MODE", "1")
		}
	})
}
