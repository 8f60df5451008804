package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("PANEL_TEST_MODE") == "" {
			_ = os.Setenv("PANEL_TEST_MODE", "1")
		}
	})
}
