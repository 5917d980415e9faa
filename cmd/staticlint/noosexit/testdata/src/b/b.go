package b

import "os"

func Exit() {
	os.Exit(1)
}
