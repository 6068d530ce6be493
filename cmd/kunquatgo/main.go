// Command kunquatgo is a reference host for the Kunquat render core: it
// loads a composition fixture, drives a Player against a synthetic demo
// pattern, and writes the result to a WAV file or a live audio device.
package main

import (
	"os"

	"github.com/kunquatgo/kunquat/pkg/kunquat/klog"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		klog.For("cli").Error("command failed", "err", err)
		os.Exit(1)
	}
}
