//go:build !unix

package transfer

func isEXDEV(err error) bool {
	return false
}
