package pcapio

import "os"

func openFileHandle(path string) (*os.File, error) {
	return os.Open(path)
}
