//go:build !linux

package cmd

import "errors"

func setNice(int) error {
	return errors.New("process priority is only supported on linux")
}
